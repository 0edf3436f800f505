// Package gate verifies a downloaded artifact and commits it under its final
// name only when the digest matches.
//
// The temporary file is always consumed: it is either promoted or removed. A
// failed verification never touches a previously promoted artifact, and a
// failed promotion never leaves an unverified file under the final name.
package gate
