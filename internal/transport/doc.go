// Package transport is the single platform capability the fetcher depends on:
// resolve a host, open a blocking byte-stream connection to it, then write and
// read bytes. The net-based Dialer is the only adapter Go needs on every
// supported platform.
package transport
