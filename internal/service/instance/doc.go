// Package instance makes sure only one launcher runs per user. The first
// process serves a Unix socket; later processes signal it and exit.
package instance
