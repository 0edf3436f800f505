// Package hasher prints the digest of local files, the value a loader
// configuration expects for a payload.
package hasher
