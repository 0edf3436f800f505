// Package config defines the loader settings and provides helpers to load,
// validate and save them in YAML format.
//
// Validate fills defaults: port 80, SHA-512, a request path derived from the
// expected digest, "<output>.tmp" for the unverified download.
package config
