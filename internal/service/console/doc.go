// Package console is the line-oriented front end of the launcher. It reads
// commands from a reader, drives the launcher core and prints a status table
// rendered from an explicit View value.
package console
