// Package dialer provides outbound dialing used by socksrelay.
//
// Dialers implement a small interface (DialContext) so the SOCKS5 server can
// be tested against fakes. The direct dialer resolves the requested host and
// tries each candidate address in order until one connects.
package dialer
