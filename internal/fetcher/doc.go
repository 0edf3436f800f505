// Package fetcher downloads one payload over a raw HTTP/1.1 byte stream.
//
// It sends a single minimal GET request, frames the response by hand (header
// block up to CRLFCRLF, then exactly Content-Length body bytes) and streams the
// body into a temporary file. There are no redirects, no chunked encoding and
// no retries: every failure is classified with a cycle.Kind and returned.
package fetcher
