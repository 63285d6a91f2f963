package resolver

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"slices"

	"github.com/die-net/socksrelay/internal/socks5"
)

// Resolver looks up the IP addresses of a host name.
type Resolver interface {
	LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error)
}

// System resolves with a net.Resolver.
type System struct {
	r *net.Resolver
}

// NewSystem returns a Resolver using net.DefaultResolver.
func NewSystem() *System {
	return &System{r: net.DefaultResolver}
}

func (s *System) LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error) {
	addrs, err := s.r.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	for i, a := range addrs {
		addrs[i] = a.Unmap()
	}
	return addrs, nil
}

// Resolve returns the candidate addresses for t in dial order.
//
// IP targets convert directly without consulting r. Domain targets are
// looked up with r, and the results are ordered with IPv4 first unless
// preferIPv6 is set. An empty lookup result is reported as a not-found
// *net.DNSError.
func Resolve(ctx context.Context, r Resolver, t socks5.Target, preferIPv6 bool) ([]netip.AddrPort, error) {
	if ap, ok := t.AddrPort(); ok {
		return []netip.AddrPort{netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())}, nil
	}
	if !t.IsValid() {
		return nil, fmt.Errorf("resolve: invalid target")
	}

	host := t.Host()
	if a, err := netip.ParseAddr(host); err == nil {
		return []netip.AddrPort{netip.AddrPortFrom(a.Unmap(), t.Port())}, nil
	}

	addrs, err := r.LookupNetIP(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("resolve %s: %w", host, notFound(host, ""))
	}

	addrs = slices.Clone(addrs)
	slices.SortStableFunc(addrs, func(a, b netip.Addr) int {
		return familyRank(a, preferIPv6) - familyRank(b, preferIPv6)
	})

	candidates := make([]netip.AddrPort, 0, len(addrs))
	for _, a := range addrs {
		candidates = append(candidates, netip.AddrPortFrom(a, t.Port()))
	}
	return candidates, nil
}

func familyRank(a netip.Addr, preferIPv6 bool) int {
	if a.Is4() != preferIPv6 {
		return 0
	}
	return 1
}

func notFound(host, server string) *net.DNSError {
	return &net.DNSError{Err: "no such host", Name: host, Server: server, IsNotFound: true}
}
