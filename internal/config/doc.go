// Package config defines the launcher settings and provides helpers to load,
// validate and save them in YAML format.
//
// Every field is optional: Validate fills defaults rooted at the per-user
// application support directory, so a missing settings file is not an error.
package config
