package resolver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// startDNSServer serves A and AAAA answers for records on a local UDP port.
func startDNSServer(t *testing.T, records map[string][]netip.Addr, truncate bool) (string, *atomic.Int32) {
	t.Helper()

	var queries atomic.Int32
	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		queries.Add(1)

		m := new(dns.Msg)
		m.SetReply(r)

		q := r.Question[0]
		addrs, ok := records[q.Name]
		if !ok {
			m.Rcode = dns.RcodeNameError
			_ = w.WriteMsg(m)
			return
		}

		_, isUDP := w.RemoteAddr().(*net.UDPAddr)
		if truncate && isUDP {
			m.Truncated = true
			_ = w.WriteMsg(m)
			return
		}

		for _, a := range addrs {
			hdr := dns.RR_Header{Name: q.Name, Class: dns.ClassINET, Ttl: 60}
			switch {
			case a.Is4() && q.Qtype == dns.TypeA:
				hdr.Rrtype = dns.TypeA
				m.Answer = append(m.Answer, &dns.A{Hdr: hdr, A: a.AsSlice()})
			case a.Is6() && q.Qtype == dns.TypeAAAA:
				hdr.Rrtype = dns.TypeAAAA
				m.Answer = append(m.Answer, &dns.AAAA{Hdr: hdr, AAAA: a.AsSlice()})
			}
		}
		_ = w.WriteMsg(m)
	})

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := pc.LocalAddr().String()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = pc.Close()
		t.Fatal(err)
	}

	servers := []*dns.Server{
		{PacketConn: pc, Handler: handler},
		{Listener: ln, Handler: handler},
	}
	for _, srv := range servers {
		started := make(chan struct{})
		srv.NotifyStartedFunc = func() { close(started) }
		go func() { _ = srv.ActivateAndServe() }()
		<-started
		t.Cleanup(func() { _ = srv.Shutdown() })
	}

	return addr, &queries
}

func TestDNSLookup(t *testing.T) {
	records := map[string][]netip.Addr{
		"dual.test.": {netip.MustParseAddr("192.0.2.1"), netip.MustParseAddr("2001:db8::1")},
		"v4.test.":   {netip.MustParseAddr("192.0.2.2")},
	}

	tests := []struct {
		name     string
		host     string
		truncate bool
		want     []netip.Addr
		notFound bool
	}{
		{name: "dual stack", host: "dual.test", want: records["dual.test."]},
		{name: "ipv4 only", host: "v4.test", want: records["v4.test."]},
		{name: "fqdn", host: "v4.test.", want: records["v4.test."]},
		{name: "tcp fallback", host: "dual.test", truncate: true, want: records["dual.test."]},
		{name: "nxdomain", host: "nx.test", notFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := startDNSServer(t, records, tt.truncate)

			d, err := NewDNS(DNSConfig{Server: server, Timeout: 2 * time.Second})
			if err != nil {
				t.Fatal(err)
			}

			got, err := d.LookupNetIP(context.Background(), tt.host)
			if tt.notFound {
				var dnsErr *net.DNSError
				if !errors.As(err, &dnsErr) || !dnsErr.IsNotFound {
					t.Fatalf("got %v, want not-found DNSError", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(got, tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestDNSCache(t *testing.T) {
	records := map[string][]netip.Addr{
		"cached.test.": {netip.MustParseAddr("192.0.2.3")},
	}
	server, queries := startDNSServer(t, records, false)

	d, err := NewDNS(DNSConfig{Server: server, Timeout: 2 * time.Second, CacheTTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}

	// Names differing only in case or the trailing dot share an entry, and
	// callers get their own copy of it.
	for _, host := range []string{"cached.test", "Cached.TEST", "CACHED.test."} {
		got, err := d.LookupNetIP(context.Background(), host)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(got, records["cached.test."]) {
			t.Fatalf("%s: got %v", host, got)
		}
		got[0] = netip.IPv6Unspecified()
	}

	// One A and one AAAA query for the first lookup only.
	if got := queries.Load(); got != 2 {
		t.Fatalf("got %d queries want 2", got)
	}
}

func TestDNSUnreachableServer(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	server := pc.LocalAddr().String()
	defer pc.Close()

	d, err := NewDNS(DNSConfig{Server: server, Timeout: 200 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	_, err = d.LookupNetIP(context.Background(), "silent.test")
	var dnsErr *net.DNSError
	if !errors.As(err, &dnsErr) || dnsErr.IsNotFound {
		t.Fatalf("got %v, want DNSError", err)
	}
}

func TestNewDNS(t *testing.T) {
	if _, err := NewDNS(DNSConfig{}); err == nil {
		t.Fatal("expected error for missing server")
	}

	tests := []struct {
		server string
		want   string
	}{
		{server: "192.0.2.53", want: "192.0.2.53:53"},
		{server: "192.0.2.53:5353", want: "192.0.2.53:5353"},
		{server: "dns.test", want: "dns.test:53"},
		{server: "::1", want: "[::1]:53"},
		{server: "[::1]", want: "[::1]:53"},
		{server: "[::1]:5353", want: "[::1]:5353"},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			d, err := NewDNS(DNSConfig{Server: tt.server})
			if err != nil {
				t.Fatal(err)
			}
			if d.server != tt.want {
				t.Fatalf("got %q want %q", d.server, tt.want)
			}
		})
	}
}
