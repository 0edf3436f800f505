// Package progress turns transfer byte counts into coarse percentage signals.
package progress

import (
	"fmt"
	"io"
)

// Transfer is the byte accounting of one body download.
type Transfer struct {
	// Received counts body bytes written so far.
	Received int64
	// Declared is the Content-Length of the response.
	Declared int64
	// Remaining is Declared minus Received, never negative.
	Remaining int64
}

// NewTransfer starts accounting for a body of declared bytes.
func NewTransfer(declared int64) Transfer {
	return Transfer{
		Declared:  declared,
		Remaining: declared,
	}
}

// Add records n more body bytes and returns how many of them belong to the
// body. Bytes past the declared length are not counted.
func (t *Transfer) Add(n int64) int64 {
	n = min(n, t.Remaining)
	t.Received += n
	t.Remaining -= n

	return n
}

// Complete reports whether the whole body has been received.
func (t Transfer) Complete() bool {
	return t.Remaining == 0
}

// Percent returns 100 - floor(Remaining / Declared * 100). An empty body is
// complete from the start.
func (t Transfer) Percent() int {
	if t.Declared <= 0 {
		return 100
	}

	return 100 - int(t.Remaining*100/t.Declared)
}

// Reporter prints a percentage whenever it changes: the first signal and every
// tenth percent as "N%", anything in between as a dot.
type Reporter struct {
	w       io.Writer
	last    int
	emitted bool
}

// NewReporter writes progress to w. A nil w keeps the bookkeeping silent.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Observe computes the percentage of t and reports it if it differs from the
// last emitted value. It returns the percentage and whether it was emitted.
// Output errors are ignored, progress never affects the transfer.
func (r *Reporter) Observe(t Transfer) (int, bool) {
	if r == nil {
		return t.Percent(), false
	}

	p := t.Percent()
	if r.emitted && p == r.last {
		return p, false
	}

	first := !r.emitted
	r.last = p
	r.emitted = true

	if r.w == nil {
		return p, true
	}

	if first || p%10 == 0 {
		_, _ = fmt.Fprintf(r.w, "%d%%", p)
	} else {
		_, _ = io.WriteString(r.w, ".")
	}

	return p, true
}

// Finish terminates the progress line.
func (r *Reporter) Finish() {
	if r == nil || r.w == nil || !r.emitted {
		return
	}

	_, _ = io.WriteString(r.w, "\n")
}
