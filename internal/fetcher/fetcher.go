package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/stage-loader/internal/domain/cycle"
	"github.com/oshokin/stage-loader/internal/logger"
	"github.com/oshokin/stage-loader/internal/progress"
	"github.com/oshokin/stage-loader/internal/transport"
)

const (
	// DefaultPort is the plain HTTP port.
	DefaultPort = 80
	// DefaultReadBufferSize is the size of a single network read.
	DefaultReadBufferSize = 64 * 1024
	// DefaultReadTimeout bounds every network read.
	DefaultReadTimeout = 30 * time.Second
	// tempFileMode is the mode of the artifact while it is unverified.
	tempFileMode os.FileMode = 0o600
)

var (
	errTempPathRequired  = errors.New("temporary path must be provided")
	errShortWrite        = errors.New("request written partially")
	errClosedInHeader    = errors.New("connection closed before end of header block")
	errClosedInBody      = errors.New("connection closed before declared length")
	errInvalidPort       = errors.New("port must be within 1..65535")
	errDialerUnavailable = errors.New("dialer is not set")
)

// Request describes one download.
type Request struct {
	// Host is resolved and sent in the Host header.
	Host string
	// Port defaults to DefaultPort.
	Port int
	// Path is the request target, e.g. "/payload".
	Path string
	// TempPath receives the body. It is removed on failure.
	TempPath string
	// ReadBufferSize defaults to DefaultReadBufferSize.
	ReadBufferSize int
	// ReadTimeout defaults to DefaultReadTimeout; negative disables it.
	ReadTimeout time.Duration
	// Progress observes byte counts, optional.
	Progress *progress.Reporter
	// Machine tracks the cycle state, optional.
	Machine *cycle.Machine
}

// Result is a fully written temporary artifact.
type Result struct {
	// TempPath holds exactly Transfer.Declared bytes.
	TempPath string
	// Status is the response status line, informational only.
	Status Status
	// Transfer is the final byte accounting.
	Transfer progress.Transfer
}

// Fetcher downloads payloads through a transport.Dialer.
type Fetcher struct {
	// dialer opens connections.
	dialer transport.Dialer
}

// New returns a Fetcher using dialer.
func New(dialer transport.Dialer) *Fetcher {
	return &Fetcher{
		dialer: dialer,
	}
}

// Fetch resolves, connects, sends the request and streams the body into
// req.TempPath. Only a complete body produces a Result; on any failure the
// temporary file is removed and a *cycle.Error is returned.
func (f *Fetcher) Fetch(ctx context.Context, req *Request) (*Result, error) {
	if f.dialer == nil {
		return nil, errDialerUnavailable
	}

	r, err := newRun(req)
	if err != nil {
		return nil, err
	}

	m := req.Machine

	if err = m.Advance(cycle.StateResolving); err != nil {
		return nil, err
	}

	addr, err := f.dialer.Resolve(ctx, req.Host)
	if err != nil {
		return nil, m.Reject(cycle.Wrap(cycle.KindResolutionFailed, "resolve", err))
	}

	logger.DebugKV(ctx, "Resolved host", "host", req.Host, "address", addr.String())

	if err = m.Advance(cycle.StateConnecting); err != nil {
		return nil, err
	}

	conn, err := f.dialer.Dial(ctx, addr, r.port)
	if err != nil {
		return nil, m.Reject(cycle.Wrap(cycle.KindConnectFailed, "connect", err))
	}

	defer func() {
		_ = conn.Close()
	}()

	// Closing the connection unblocks a pending Read on cancellation.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	if err = r.createTemp(); err != nil {
		return nil, m.Reject(err)
	}

	result, err := f.exchange(ctx, conn, r, m)
	if err != nil {
		r.discardTemp()

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, m.Reject(fmt.Errorf("%w: %w", ctxErr, err))
		}

		return nil, m.Reject(err)
	}

	return result, nil
}

// exchange sends the request and receives the response into the open temp file.
func (f *Fetcher) exchange(ctx context.Context, conn transport.Conn, r *run, m *cycle.Machine) (*Result, error) {
	if err := m.Advance(cycle.StateSendingRequest); err != nil {
		return nil, err
	}

	n, err := conn.Write(r.request)
	if err == nil && n != len(r.request) {
		err = errShortWrite
	}

	if err != nil {
		return nil, cycle.Wrap(cycle.KindSendFailed, "send request", err)
	}

	if err = m.Advance(cycle.StateReceivingHeaders); err != nil {
		return nil, err
	}

	if err = r.receive(ctx, conn, m); err != nil {
		return nil, err
	}

	if err = r.file.Close(); err != nil {
		r.file = nil
		return nil, cycle.Wrap(cycle.KindFileIOFailed, "close temporary file", err)
	}

	r.file = nil

	logger.InfoKV(ctx, "Download completed",
		"path", r.tempPath,
		"size", humanize.IBytes(uint64(r.transfer.Received)), //nolint:gosec // Never negative.
		"status", r.header.Status.Code)

	return &Result{
		TempPath: r.tempPath,
		Status:   r.header.Status,
		Transfer: r.transfer,
	}, nil
}

// run is the mutable state of a single Fetch call.
type run struct {
	port        int
	request     []byte
	tempPath    string
	bufferSize  int
	readTimeout time.Duration
	reporter    *progress.Reporter

	file     *os.File
	header   Header
	pending  []byte
	inBody   bool
	transfer progress.Transfer
}

// newRun validates req and applies defaults.
func newRun(req *Request) (*run, error) {
	if req.TempPath == "" {
		return nil, errTempPathRequired
	}

	port := req.Port
	if port == 0 {
		port = DefaultPort
	}

	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("%d: %w", port, errInvalidPort)
	}

	request, err := BuildRequest(req.Host, req.Path)
	if err != nil {
		return nil, err
	}

	bufferSize := req.ReadBufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultReadBufferSize
	}

	readTimeout := req.ReadTimeout
	if readTimeout == 0 {
		readTimeout = DefaultReadTimeout
	}

	return &run{
		port:        port,
		request:     request,
		tempPath:    filepath.Clean(req.TempPath),
		bufferSize:  bufferSize,
		readTimeout: readTimeout,
		reporter:    req.Progress,
	}, nil
}

// createTemp creates the empty artifact, truncating leftovers of earlier runs.
func (r *run) createTemp() error {
	file, err := os.OpenFile(r.tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, tempFileMode)
	if err != nil {
		return cycle.Wrap(cycle.KindFileIOFailed, "create temporary file", err)
	}

	r.file = file

	return nil
}

// discardTemp closes and removes the temporary artifact.
func (r *run) discardTemp() {
	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}

	_ = os.Remove(r.tempPath)
}

// receive reads until the declared body length has been written.
func (r *run) receive(ctx context.Context, conn transport.Conn, m *cycle.Machine) error {
	buf := make([]byte, r.bufferSize)

	for {
		if r.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(r.readTimeout)); err != nil {
				return r.readFailure(err)
			}
		}

		n, readErr := conn.Read(buf)
		if n > 0 {
			done, err := r.consume(ctx, buf[:n], m)
			if err != nil {
				return err
			}

			if done {
				return nil
			}
		}

		if readErr != nil {
			return r.readFailure(readErr)
		}
	}
}

// readFailure classifies a read error by the frame part being received.
func (r *run) readFailure(err error) error {
	if !r.inBody {
		if errors.Is(err, io.EOF) {
			err = errClosedInHeader
		}

		return cycle.Wrap(cycle.KindMalformedResponse, "read header", err)
	}

	if errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: %d of %d bytes", errClosedInBody, r.transfer.Received, r.transfer.Declared)
	}

	return cycle.Wrap(cycle.KindTruncatedBody, "read body", err)
}

// consume handles one read and reports whether the body is complete.
func (r *run) consume(ctx context.Context, chunk []byte, m *cycle.Machine) (bool, error) {
	if r.inBody {
		return r.writeBody(chunk)
	}

	// The boundary may straddle two reads.
	from := len(r.pending) - len(headerBoundary) + 1
	r.pending = append(r.pending, chunk...)

	idx := findBoundary(r.pending, from)
	if idx < 0 {
		if len(r.pending) > MaxHeaderSize {
			return false, cycle.Wrap(cycle.KindMalformedResponse, "read header", errHeaderTooLarge)
		}

		return false, nil
	}

	end := idx + len(headerBoundary)
	if end > MaxHeaderSize {
		return false, cycle.Wrap(cycle.KindMalformedResponse, "read header", errHeaderTooLarge)
	}

	header, err := ParseHeader(r.pending[:end])
	if err != nil {
		return false, cycle.Wrap(cycle.KindMalformedResponse, "parse header", err)
	}

	r.header = header
	r.inBody = true
	r.transfer = progress.NewTransfer(header.ContentLength)

	if !header.Status.OK() {
		logger.WarnKV(ctx, "Server returned a non-success status, body is accepted as is",
			"code", header.Status.Code, "reason", header.Status.Reason)
	}

	logger.DebugKV(ctx, "Received response header",
		"status", header.Status.Code,
		"content_length", humanize.IBytes(uint64(header.ContentLength))) //nolint:gosec // Never negative.

	if err = m.Advance(cycle.StateReceivingBody); err != nil {
		return false, err
	}

	body := r.pending[end:]
	r.pending = nil

	r.reporter.Observe(r.transfer)

	return r.writeBody(body)
}

// writeBody appends body bytes to the artifact, ignoring bytes past the declared length.
func (r *run) writeBody(chunk []byte) (bool, error) {
	n := r.transfer.Add(int64(len(chunk)))
	if n > 0 {
		if _, err := r.file.Write(chunk[:n]); err != nil {
			return false, cycle.Wrap(cycle.KindFileIOFailed, "write temporary file", err)
		}

		r.reporter.Observe(r.transfer)
	}

	return r.transfer.Complete(), nil
}
