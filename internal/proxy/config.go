package proxy

import (
	"net"
	"time"

	"github.com/die-net/socksrelay/internal/dialer"
	"github.com/die-net/socksrelay/internal/socks5"
)

type Config struct {
	// NegotiationTimeout bounds the SOCKS5 handshake. Zero means no limit.
	NegotiationTimeout time.Duration

	KeepAlive net.KeepAliveConfig

	// MaxConns caps simultaneously handled connections. Zero is unbounded.
	MaxConns int

	// ReusePort sets SO_REUSEPORT on the listening socket.
	ReusePort bool

	// Authenticators lists supported methods in preference order. If
	// empty, only "no authentication required" is offered.
	Authenticators []socks5.Authenticator

	Dialer dialer.Dialer
}
