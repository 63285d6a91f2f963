package socks5

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Handshake failures. Each one is fatal for the connection it occurred on.
var (
	ErrUnsupportedVersion   = errors.New("socks5: unsupported protocol version")
	ErrUnexpectedEOF        = errors.New("socks5: unexpected EOF")
	ErrExtraDataRead        = errors.New("socks5: unexpected extra data")
	ErrUnsupportedCommand   = errors.New("socks5: unsupported command")
	ErrUnrecognizedAddrType = errors.New("socks5: unrecognized address type")
	ErrParseAddr            = errors.New("socks5: parse address error")
	ErrNoAcceptableMethods  = errors.New("socks5: no acceptable authentication methods")
)

// ReplyCode maps an error from the handshake or the outbound connection
// attempt to the reply code reported to the client.
func ReplyCode(err error) byte {
	switch {
	case err == nil:
		return RepSuccess
	case errors.Is(err, ErrUnsupportedCommand):
		return RepCommandNotSupported
	case errors.Is(err, ErrUnrecognizedAddrType):
		return RepAddressNotSupported
	case errors.Is(err, syscall.ECONNREFUSED):
		return RepConnectionRefused
	case errors.Is(err, syscall.EHOSTUNREACH):
		return RepHostUnreachable
	case errors.Is(err, syscall.ENETUNREACH):
		return RepNetworkUnreachable
	case errors.Is(err, context.DeadlineExceeded):
		return RepTTLExpired
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return RepHostUnreachable
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return RepTTLExpired
	}

	return RepServerFailure
}

// RepliesOnFailure reports whether err is a request error the client should
// be told about before the connection is closed. Errors before a request was
// parsed (bad version, truncated fields) close silently.
func RepliesOnFailure(err error) bool {
	return errors.Is(err, ErrUnsupportedCommand) || errors.Is(err, ErrUnrecognizedAddrType)
}
