// Package game contains the core domain types of the launcher.
//
// It defines the fixed catalogue of channels (independently installed game
// builds), the rules that decide which release asset is installable on macOS,
// the installed-version mapping persisted by the ledger and the transient
// ReleaseInfo computed on every refresh.
package game
