// Package launcher is the core the UI talks to. It keeps the last refresh of
// every channel, joins it with the ledger and the filesystem, and starts
// installs, games, folders and release pages on request.
package launcher
