// Package ledger implements persistence of installed game versions.
//
// FileRepository stores the channel → tag mapping as a flat JSON object and
// replaces the file atomically on every save. Book wraps a repository with the
// launcher's policy: load once, degrade to "nothing installed" on any read
// failure, swallow write failures, and only trust a record whose bundle still
// exists on disk.
package ledger
