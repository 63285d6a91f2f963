package socks5

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"
	"unicode/utf8"
)

// handshake carries the negotiation buffer for one client connection. It is
// reused by every step and never shared.
type handshake struct {
	rw  io.ReadWriter
	buf [maxFieldLen]byte
}

// Handshake negotiates an authentication method from auths (or
// DefaultAuthenticators when empty) and reads a CONNECT request from rw.
//
// A Target is only returned when every step succeeded.
func Handshake(rw io.ReadWriter, auths []Authenticator) (Target, error) {
	h := &handshake{rw: rw}

	a, err := h.negotiate(auths)
	if err != nil {
		return Target{}, err
	}
	if err := a.Authenticate(rw); err != nil {
		return Target{}, fmt.Errorf("authenticate: %w", err)
	}

	return h.readRequest()
}

func (h *handshake) read(n int) ([]byte, error) {
	if _, err := ReadExact(h.rw, h.buf[:], n); err != nil {
		return nil, err
	}
	return h.buf[:n], nil
}

// negotiate reads the client greeting, selects a method from auths, and
// writes the method selection reply. When no offered method is supported it
// replies with MethodNoAcceptable and returns ErrNoAcceptableMethods.
func (h *handshake) negotiate(auths []Authenticator) (Authenticator, error) {
	if len(auths) == 0 {
		auths = DefaultAuthenticators
	}

	b, err := h.read(2)
	if err != nil {
		return nil, fmt.Errorf("greeting: %w", err)
	}
	if b[0] != Version {
		return nil, fmt.Errorf("greeting: %w: 0x%02x", ErrUnsupportedVersion, b[0])
	}

	offered, err := h.read(int(b[1]))
	if err != nil {
		return nil, fmt.Errorf("greeting methods: %w", err)
	}

	a := selectAuthenticator(auths, offered)
	if a == nil {
		_ = writeMethodSelection(h.rw, MethodNoAcceptable)
		return nil, ErrNoAcceptableMethods
	}

	if err := writeMethodSelection(h.rw, a.Method()); err != nil {
		return nil, fmt.Errorf("method selection: %w", err)
	}
	return a, nil
}

func (h *handshake) readRequest() (Target, error) {
	b, err := h.read(4)
	if err != nil {
		return Target{}, fmt.Errorf("request: %w", err)
	}
	if b[0] != Version {
		return Target{}, fmt.Errorf("request: %w: 0x%02x", ErrUnsupportedVersion, b[0])
	}
	if b[1] != CmdConnect {
		return Target{}, fmt.Errorf("request: %w: 0x%02x", ErrUnsupportedCommand, b[1])
	}
	atyp := b[3]

	var (
		addr netip.Addr
		host string
	)
	switch atyp {
	case ATYPIPv4:
		b, err := h.read(4)
		if err != nil {
			return Target{}, fmt.Errorf("ipv4 address: %w", err)
		}
		addr = netip.AddrFrom4([4]byte(b))
	case ATYPIPv6:
		b, err := h.read(16)
		if err != nil {
			return Target{}, fmt.Errorf("ipv6 address: %w", err)
		}
		addr = netip.AddrFrom16([16]byte(b))
	case ATYPDomain:
		b, err := h.read(1)
		if err != nil {
			return Target{}, fmt.Errorf("domain length: %w", err)
		}
		b, err = h.read(int(b[0]))
		if err != nil {
			return Target{}, fmt.Errorf("domain: %w", err)
		}
		if len(b) == 0 || !utf8.Valid(b) {
			return Target{}, fmt.Errorf("domain %q: %w", b, ErrParseAddr)
		}
		host = string(b)
	default:
		return Target{}, fmt.Errorf("request: %w: 0x%02x", ErrUnrecognizedAddrType, atyp)
	}

	b, err = h.read(2)
	if err != nil {
		return Target{}, fmt.Errorf("port: %w", err)
	}
	port := binary.BigEndian.Uint16(b)

	if host != "" {
		return TargetFromHost(host, port), nil
	}
	return TargetFromAddrPort(netip.AddrPortFrom(addr, port)), nil
}
