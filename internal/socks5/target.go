package socks5

import (
	"net"
	"net/netip"
	"strconv"
)

// Target is the destination requested by a client. It holds either a
// concrete IP address or a domain name still to be resolved, plus a port.
// The zero Target is invalid.
type Target struct {
	addr netip.Addr
	host string
	port uint16
}

// TargetFromAddrPort returns a Target for a concrete IP address and port.
func TargetFromAddrPort(ap netip.AddrPort) Target {
	return Target{addr: ap.Addr(), port: ap.Port()}
}

// TargetFromHost returns a Target for a domain name and port.
func TargetFromHost(host string, port uint16) Target {
	return Target{host: host, port: port}
}

// IsValid reports whether t was constructed with an address or a host.
func (t Target) IsValid() bool {
	return t.addr.IsValid() || t.host != ""
}

// Addr returns the IP address of t, or the zero Addr for domain targets.
func (t Target) Addr() netip.Addr {
	return t.addr
}

// Host returns the domain name, or the textual IP address.
func (t Target) Host() string {
	if t.host != "" {
		return t.host
	}
	return t.addr.String()
}

func (t Target) Port() uint16 {
	return t.port
}

// AddrPort returns the concrete address of t. ok is false for domain targets.
func (t Target) AddrPort() (ap netip.AddrPort, ok bool) {
	if !t.addr.IsValid() {
		return netip.AddrPort{}, false
	}
	return netip.AddrPortFrom(t.addr, t.port), true
}

// Type returns the wire address type t was requested with.
func (t Target) Type() byte {
	switch {
	case t.host != "":
		return ATYPDomain
	case t.addr.Is4():
		return ATYPIPv4
	default:
		return ATYPIPv6
	}
}

// String returns t in host:port form, suitable for net.Dial.
func (t Target) String() string {
	return net.JoinHostPort(t.Host(), strconv.Itoa(int(t.port)))
}
