package dialer

import (
	"net"
	"time"

	"github.com/die-net/socksrelay/internal/resolver"
)

type Config struct {
	// DialTimeout bounds name resolution and each individual connect
	// attempt.
	DialTimeout time.Duration
	KeepAlive   net.KeepAliveConfig

	// Resolver resolves domain targets. If nil, resolver.NewSystem is used.
	Resolver   resolver.Resolver
	PreferIPv6 bool
}
