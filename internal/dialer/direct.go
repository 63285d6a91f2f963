package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/die-net/socksrelay/internal/resolver"
	"github.com/die-net/socksrelay/internal/socks5"
)

// DirectDialer connects straight to the destination.
type DirectDialer struct {
	cfg      Config
	resolver resolver.Resolver
}

// NewDirectDialer returns a DirectDialer for cfg.
func NewDirectDialer(cfg Config) *DirectDialer {
	r := cfg.Resolver
	if r == nil {
		r = resolver.NewSystem()
	}
	return &DirectDialer{cfg: cfg, resolver: r}
}

// DialContext connects to address, which may name a host or an IP literal.
func (d *DirectDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, fmt.Errorf("dial %s %s: unsupported network", network, address)
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: invalid port: %w", network, address, err)
	}

	t := socks5.TargetFromHost(host, uint16(port))
	if a, err := netip.ParseAddr(host); err == nil {
		t = socks5.TargetFromAddrPort(netip.AddrPortFrom(a, uint16(port)))
	}
	return d.DialTarget(ctx, network, t)
}

// DialTarget resolves t and connects to the first candidate that accepts.
func (d *DirectDialer) DialTarget(ctx context.Context, network string, t socks5.Target) (net.Conn, error) {
	rctx := ctx
	if d.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, d.cfg.DialTimeout)
		defer cancel()
	}

	candidates, err := resolver.Resolve(rctx, d.resolver, t, d.cfg.PreferIPv6)
	if err != nil {
		return nil, err
	}
	return d.DialCandidates(ctx, network, candidates)
}

// DialCandidates tries each candidate in order and returns the first
// connection that succeeds. If every attempt fails, the returned error joins
// all of the individual failures.
func (d *DirectDialer) DialCandidates(ctx context.Context, network string, candidates []netip.AddrPort) (net.Conn, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("dial %s: no candidate addresses", network)
	}

	nd := net.Dialer{Timeout: d.cfg.DialTimeout, KeepAliveConfig: d.cfg.KeepAlive}
	if !d.cfg.KeepAlive.Enable {
		nd.KeepAlive = -1
	}

	var errs []error
	for _, ap := range candidates {
		conn, err := nd.DialContext(ctx, network, ap.String())
		if err == nil {
			return conn, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("dial %s: %w", network, errors.Join(errs...))
}
