package proxy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/die-net/socksrelay/internal/socks5"
)

// SOCKS5Server accepts SOCKS5 CONNECT requests and relays each one to its
// destination.
type SOCKS5Server struct {
	ctx     context.Context
	cfg     Config
	sem     *semaphore.Weighted
	verbose bool
}

// NewSOCKS5Server constructs a server for cfg. Canceling ctx aborts the
// relays of connections in flight; closing the listener passed to Serve
// stops accepting new ones.
func NewSOCKS5Server(ctx context.Context, cfg Config, verbose bool) *SOCKS5Server {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &SOCKS5Server{ctx: ctx, cfg: cfg, verbose: verbose}
	if cfg.MaxConns > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConns))
	}
	return s
}

// Serve accepts connections on ln and handles each in its own goroutine. A
// failure on one connection never stops the loop; Serve returns only when
// accepting fails permanently (typically because ln was closed) or the
// server's context is canceled while waiting for a free slot.
//
// With MaxConns set, Serve stops accepting while MaxConns connections are in
// flight and resumes as they finish.
func (s *SOCKS5Server) Serve(ln net.Listener) error {
	var tempDelay time.Duration
	for {
		if err := s.acquire(); err != nil {
			return fmt.Errorf("accept: %w", err)
		}

		c, err := ln.Accept()
		if err != nil {
			s.release()
			if isTemporary(err) {
				tempDelay = nextDelay(tempDelay)
				if s.verbose {
					log.Printf("socks5: accept error: %v; retrying in %v", err, tempDelay)
				}
				time.Sleep(tempDelay)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		tempDelay = 0

		go func() {
			defer s.release()
			if err := s.handleConn(c); err != nil && s.verbose {
				log.Printf("socks5: connection error: %v", err)
			}
		}()
	}
}

func (s *SOCKS5Server) acquire() error {
	if s.sem == nil {
		return nil
	}
	return s.sem.Acquire(s.ctx, 1)
}

func (s *SOCKS5Server) release() {
	if s.sem != nil {
		s.sem.Release(1)
	}
}

// handleConn runs the handshake and relay for one client connection, and
// closes it on every path.
func (s *SOCKS5Server) handleConn(conn net.Conn) error {
	defer conn.Close()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	if s.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.NegotiationTimeout))
	}

	target, err := socks5.Handshake(conn, s.cfg.Authenticators)
	if err != nil {
		if socks5.RepliesOnFailure(err) {
			_ = socks5.WriteFailureReply(conn, socks5.ReplyCode(err), socks5.ATYPIPv4)
		}
		return fmt.Errorf("%s: handshake: %w", conn.RemoteAddr(), err)
	}

	if s.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Time{})
	}

	up, err := s.cfg.Dialer.DialContext(ctx, "tcp", target.String())
	if err != nil {
		_ = socks5.WriteFailureReply(conn, socks5.ReplyCode(err), target.Type())
		return fmt.Errorf("%s: connect %s: %w", conn.RemoteAddr(), target, err)
	}
	defer up.Close()

	if err := socks5.WriteSuccessReply(conn, up.RemoteAddr()); err != nil {
		return fmt.Errorf("%s: %w", conn.RemoteAddr(), err)
	}

	if err := CopyBidirectional(ctx, conn, up); err != nil {
		return fmt.Errorf("%s: relay %s: %w", conn.RemoteAddr(), target, err)
	}
	return nil
}

func isTemporary(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return false
	}
	var te interface{ Temporary() bool }
	return errors.As(err, &te) && te.Temporary()
}

// nextDelay backs off from 5ms up to 1s, like net/http.Server.
func nextDelay(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	return min(2*d, time.Second)
}
