// Package iox provides I/O helpers for child process plumbing.
package iox

import "io"

// DiscardClose closes c and discards the error. For deferred closes of
// artifact readers, where a close error changes nothing:
//
//	defer iox.DiscardClose(rc)
func DiscardClose(c io.Closer) { _ = c.Close() }

// Drain reads r to EOF and discards the data, returning the number of
// bytes dropped. A child blocked writing to a pipe nobody reads never
// exits, so a reader that gives up on a stream drains it instead.
func Drain(r io.Reader) int64 {
	n, _ := io.Copy(io.Discard, r)
	return n
}
