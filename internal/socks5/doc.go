// Package socks5 implements the server side of the SOCKS5 (RFC 1928) CONNECT
// handshake used by socksrelay.
//
// It covers method negotiation, request parsing into an immutable [Target],
// and typed encoders for the CONNECT reply. Protocol byte values come from
// github.com/txthinking/socks5 so the wire constants live in one place; the
// parsing itself is done here so every failure maps onto a distinct error
// that callers can match with errors.Is.
//
// BIND and UDP ASSOCIATE are rejected with [ErrUnsupportedCommand].
package socks5
