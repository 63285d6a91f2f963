package proxy

import (
	"context"
	"fmt"
	"net"
)

// ListenTCP listens on the given network/address. Accepted TCP connections
// get cfg.KeepAlive applied, with keepalive off unless it is enabled there.
// The socket is opened with SO_REUSEPORT when cfg.ReusePort is set.
func ListenTCP(ctx context.Context, network, addr string, cfg Config) (net.Listener, error) {
	lc := net.ListenConfig{KeepAliveConfig: cfg.KeepAlive}
	if !cfg.KeepAlive.Enable {
		lc.KeepAlive = -1
	}
	if cfg.ReusePort {
		if !ReusePortSupported {
			return nil, fmt.Errorf("listen %s %s: SO_REUSEPORT not supported on this platform", network, addr)
		}
		lc.Control = reusePortControl
	}

	ln, err := lc.Listen(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}
	return ln, nil
}
