// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - an optional rotating JSON log file (lumberjack) teed with the console,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities.
//
// Services accept a context and extract the logger from it, so every line
// carries the name of the component that wrote it.
package logger
