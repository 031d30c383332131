// Package installer downloads a channel build, mounts or extracts it, swaps the
// installed bundle and carries player data over to the new version.
//
// An install walks a fixed sequence of stages and reports each one as an Event.
// Any failure ends in the Failed stage with a kind-tagged *Error; the ledger is
// only updated after every stage succeeded.
package installer
