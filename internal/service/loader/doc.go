// Package loader runs one fetch-verify-promote cycle.
//
// It merges configuration with command-line overrides, downloads the payload
// into a temporary file, verifies it against the expected digest, promotes it
// under its final name and optionally starts it as the next stage.
package loader
