// Package digest streams bytes through a cryptographic hash and renders the
// result as canonical lowercase hex.
//
// An Engine is the streaming context: write any number of chunks, then
// Finalize exactly once. File and Reader hash whole inputs in bounded chunks.
// The algorithm is always an explicit parameter, there is no package default
// other than DefaultAlgorithm used by configuration.
package digest
