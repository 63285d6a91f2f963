package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

var errNXDomain = errors.New("nxdomain")

// DNSConfig configures a DNS resolver.
type DNSConfig struct {
	// Server is the DNS server address. Port 53 is used if none is given.
	Server string

	// Timeout bounds each query exchange. Zero uses the miekg/dns default.
	Timeout time.Duration

	// CacheTTL caps how long answers are cached. Answers are never kept
	// longer than their record TTL. Zero disables caching.
	CacheTTL time.Duration
}

// DNS resolves names by sending A and AAAA queries to a single server.
// Truncated UDP answers are retried over TCP.
type DNS struct {
	server   string
	udp      *dns.Client
	tcp      *dns.Client
	cache    *cache.Cache
	cacheTTL time.Duration
}

// NewDNS returns a resolver for cfg.
func NewDNS(cfg DNSConfig) (*DNS, error) {
	if cfg.Server == "" {
		return nil, errors.New("dns resolver: missing server")
	}

	server := cfg.Server
	if _, _, err := net.SplitHostPort(server); err != nil {
		host := strings.TrimSuffix(strings.TrimPrefix(server, "["), "]")
		server = net.JoinHostPort(host, "53")
	}

	d := &DNS{
		server:   server,
		udp:      &dns.Client{Net: "udp", Timeout: cfg.Timeout},
		tcp:      &dns.Client{Net: "tcp", Timeout: cfg.Timeout},
		cacheTTL: cfg.CacheTTL,
	}
	if cfg.CacheTTL > 0 {
		d.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return d, nil
}

func (d *DNS) LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error) {
	name := dns.CanonicalName(host)

	if d.cache != nil {
		if v, ok := d.cache.Get(name); ok {
			return slices.Clone(v.([]netip.Addr)), nil
		}
	}

	var (
		v4, v6     []netip.Addr
		ttl4, ttl6 uint32
		err4, err6 error
		g          errgroup.Group
	)
	g.Go(func() error {
		v4, ttl4, err4 = d.query(ctx, name, dns.TypeA)
		return nil
	})
	g.Go(func() error {
		v6, ttl6, err6 = d.query(ctx, name, dns.TypeAAAA)
		return nil
	})
	_ = g.Wait()

	addrs := append(v4, v6...)
	if len(addrs) == 0 {
		switch {
		case err4 == nil && err6 == nil, errors.Is(err4, errNXDomain) || errors.Is(err6, errNXDomain):
			return nil, notFound(host, d.server)
		default:
			err := errors.Join(err4, err6)
			return nil, &net.DNSError{
				Err:       err.Error(),
				Name:      host,
				Server:    d.server,
				IsTimeout: isTimeout(err),
			}
		}
	}

	if d.cache != nil {
		ttl := time.Duration(minTTL(len(v4), ttl4, len(v6), ttl6)) * time.Second
		if ttl > d.cacheTTL {
			ttl = d.cacheTTL
		}
		if ttl > 0 {
			d.cache.Set(name, slices.Clone(addrs), ttl)
		}
	}

	return addrs, nil
}

// query returns the addresses of type qtype for name, and the smallest TTL
// among them.
func (d *DNS) query(ctx context.Context, name string, qtype uint16) ([]netip.Addr, uint32, error) {
	m := new(dns.Msg)
	m.SetQuestion(name, qtype)
	m.RecursionDesired = true

	in, _, err := d.udp.ExchangeContext(ctx, m, d.server)
	if err == nil && in.Truncated {
		in, _, err = d.tcp.ExchangeContext(ctx, m, d.server)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", dns.TypeToString[qtype], name, err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, 0, errNXDomain
	default:
		return nil, 0, fmt.Errorf("%s %s: %s", dns.TypeToString[qtype], name, dns.RcodeToString[in.Rcode])
	}

	var (
		addrs []netip.Addr
		ttl   uint32
	)
	for _, rr := range in.Answer {
		var ip net.IP
		switch rr := rr.(type) {
		case *dns.A:
			ip = rr.A
		case *dns.AAAA:
			ip = rr.AAAA
		default:
			continue
		}
		a, ok := netip.AddrFromSlice(ip)
		if !ok {
			continue
		}
		addrs = append(addrs, a.Unmap())
		if h := rr.Header(); len(addrs) == 1 || h.Ttl < ttl {
			ttl = h.Ttl
		}
	}
	return addrs, ttl, nil
}

func minTTL(n4 int, ttl4 uint32, n6 int, ttl6 uint32) uint32 {
	switch {
	case n4 == 0:
		return ttl6
	case n6 == 0:
		return ttl4
	default:
		return min(ttl4, ttl6)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout() || errors.Is(err, context.DeadlineExceeded)
}
