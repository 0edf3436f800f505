package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
	"time"
)

// Conn is a blocking byte-stream connection.
type Conn interface {
	io.ReadWriteCloser
	// SetReadDeadline bounds the next Read calls; the zero time disables it.
	SetReadDeadline(t time.Time) error
}

// Dialer resolves hosts and opens connections. Resolution and connection are
// separate steps so callers can tell the two failures apart.
type Dialer interface {
	Resolve(ctx context.Context, host string) (netip.Addr, error)
	Dial(ctx context.Context, addr netip.Addr, port int) (Conn, error)
}

// ErrNoAddress is returned when a host resolves to an empty address list.
var ErrNoAddress = errors.New("host has no addresses")

// NetDialer is the net package backed Dialer.
type NetDialer struct {
	// Resolver is used for lookups, net.DefaultResolver when nil.
	Resolver *net.Resolver
	// ConnectTimeout bounds the TCP handshake, unlimited when zero.
	ConnectTimeout time.Duration
}

// Option configures a NetDialer.
type Option func(*NetDialer)

// WithConnectTimeout sets the TCP handshake timeout.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(d *NetDialer) {
		if timeout > 0 {
			d.ConnectTimeout = timeout
		}
	}
}

// NewNetDialer returns a Dialer using the system resolver.
func NewNetDialer(opts ...Option) *NetDialer {
	d := &NetDialer{
		Resolver: net.DefaultResolver,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Resolve returns the first address of host, preferring IPv4 like the
// classic gethostbyname lookup. IP literals are returned as is.
func (d *NetDialer) Resolve(ctx context.Context, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr, nil
	}

	resolver := d.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	addrs, err := resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("lookup %s: %w", host, err)
	}

	if len(addrs) == 0 {
		return netip.Addr{}, fmt.Errorf("lookup %s: %w", host, ErrNoAddress)
	}

	for _, addr := range addrs {
		if addr.Unmap().Is4() {
			return addr.Unmap(), nil
		}
	}

	return addrs[0], nil
}

// Dial opens a TCP connection to addr:port.
func (d *NetDialer) Dial(ctx context.Context, addr netip.Addr, port int) (Conn, error) {
	dialer := net.Dialer{
		Timeout: d.ConnectTimeout,
	}

	target := net.JoinHostPort(addr.String(), strconv.Itoa(port))

	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", target, err)
	}

	return conn, nil
}
