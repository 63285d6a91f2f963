package socks5

import (
	"io"
)

// Authenticator performs the sub-negotiation for one authentication method
// after the server has selected it.
type Authenticator interface {
	Method() byte
	Authenticate(rw io.ReadWriter) error
}

// NoAuth is the "no authentication required" method.
type NoAuth struct{}

func (NoAuth) Method() byte { return MethodNone }

func (NoAuth) Authenticate(io.ReadWriter) error { return nil }

// DefaultAuthenticators is used when a server is configured with none.
var DefaultAuthenticators = []Authenticator{NoAuth{}}

// selectAuthenticator returns the first of supported that the client
// offered, so the server's order expresses its preference.
func selectAuthenticator(supported []Authenticator, offered []byte) Authenticator {
	for _, a := range supported {
		for _, m := range offered {
			if m == a.Method() {
				return a
			}
		}
	}
	return nil
}
