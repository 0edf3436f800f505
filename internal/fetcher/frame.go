package fetcher

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxHeaderSize bounds the response header block.
const MaxHeaderSize = 64 * 1024

var (
	// headerBoundary separates the header block from the body.
	//nolint:gochecknoglobals // Constant byte sequence.
	headerBoundary = []byte("\r\n\r\n")
	// contentLengthName is matched case-insensitively.
	//nolint:gochecknoglobals // Constant byte sequence.
	contentLengthName = []byte("content-length")
)

var (
	errNoContentLength  = errors.New("content-length header not found")
	errBadContentLength = errors.New("content-length is not a base-10 integer")
	errHeaderTooLarge   = errors.New("header block exceeds limit")
	errInvalidTarget    = errors.New("host and path must not contain whitespace or control characters")
)

// Status is the parsed response status line. The loader does not act on it.
type Status struct {
	// Proto is the protocol version, e.g. "HTTP/1.1".
	Proto string
	// Code is the status code, 0 if the line could not be parsed.
	Code int
	// Reason is the reason phrase.
	Reason string
}

// OK reports whether the status is a 2xx code.
func (s Status) OK() bool {
	return s.Code >= 200 && s.Code < 300
}

// Header is what the fetcher extracts from the response header block.
type Header struct {
	Status        Status
	ContentLength int64
}

// BuildRequest renders the exact request bytes sent to the server.
func BuildRequest(host, path string) ([]byte, error) {
	if !validTarget(host) || !validTarget(path) {
		return nil, errInvalidTarget
	}

	return []byte("GET " + path + " HTTP/1.1\r\nHost: " + host + "\r\n\r\n"), nil
}

// validTarget rejects values that would break the request line.
func validTarget(s string) bool {
	if s == "" {
		return false
	}

	return !strings.ContainsFunc(s, func(r rune) bool {
		return r <= ' ' || r == 0x7f
	})
}

// findBoundary returns the index of CRLFCRLF in buf, searching from from.
func findBoundary(buf []byte, from int) int {
	from = max(from, 0)

	idx := bytes.Index(buf[from:], headerBoundary)
	if idx < 0 {
		return -1
	}

	return from + idx
}

// ParseHeader parses a header block ending with CRLFCRLF.
func ParseHeader(block []byte) (Header, error) {
	length, err := parseContentLength(block)
	if err != nil {
		return Header{}, err
	}

	return Header{
		Status:        parseStatus(block),
		ContentLength: length,
	}, nil
}

// parseContentLength reads the value after the first case-insensitive match of
// the header name: an optional colon and blanks, then digits up to CR.
func parseContentLength(block []byte) (int64, error) {
	idx := indexFold(block, contentLengthName)
	if idx < 0 {
		return 0, errNoContentLength
	}

	rest := block[idx+len(contentLengthName):]

	end := bytes.IndexByte(rest, '\r')
	if end < 0 {
		return 0, errBadContentLength
	}

	value := rest[:end]
	value = bytes.TrimPrefix(value, []byte(":"))
	value = bytes.Trim(value, " \t")

	if len(value) == 0 {
		return 0, errBadContentLength
	}

	for _, c := range value {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", errBadContentLength, value)
		}
	}

	length, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errBadContentLength, err)
	}

	return length, nil
}

// indexFold is bytes.Index with ASCII case folding. name must be lowercase.
// Unlike bytes.ToLower it keeps offsets intact for non-UTF-8 input.
func indexFold(buf, name []byte) int {
	for i := 0; i+len(name) <= len(buf); i++ {
		match := true

		for j, c := range name {
			b := buf[i+j]
			if 'A' <= b && b <= 'Z' {
				b += 'a' - 'A'
			}

			if b != c {
				match = false
				break
			}
		}

		if match {
			return i
		}
	}

	return -1
}

// parseStatus parses "HTTP/1.1 200 OK". Unparsable lines yield a zero Status.
func parseStatus(block []byte) Status {
	line := block
	if idx := bytes.Index(block, []byte("\r\n")); idx >= 0 {
		line = block[:idx]
	}

	proto, rest, ok := strings.Cut(string(line), " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return Status{}
	}

	codeText, reason, _ := strings.Cut(rest, " ")

	code, err := strconv.Atoi(codeText)
	if err != nil || len(codeText) != 3 {
		return Status{Proto: proto}
	}

	return Status{
		Proto:  proto,
		Code:   code,
		Reason: reason,
	}
}
