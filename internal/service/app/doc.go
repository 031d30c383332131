// Package app implements the launcher commands: the interactive session and
// the one-shot status, install, notes, launch and folder actions.
//
// Each command exposes Options and a Run-style function that loads settings,
// configures logging and assembles the launcher core.
package app
