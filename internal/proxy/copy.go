package proxy

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// aLongTimeAgo is a non-zero time far in the past, used to unblock pending
// reads and writes immediately.
var aLongTimeAgo = time.Unix(1, 0)

// CopyBidirectional copies left to right and right to left until either
// direction reaches EOF or fails, or ctx is canceled.
//
// Whichever happens first shuts down both connections in both directions, so
// the other direction's pending read returns and CopyBidirectional returns
// once both copies have exited. Only the error of the direction that ended
// first is reported; a clean EOF reports nil. The caller still owns and
// must close both connections.
func CopyBidirectional(ctx context.Context, left, right net.Conn) error {
	var shut atomic.Bool
	shutdownBoth := func() bool {
		if !shut.CompareAndSwap(false, true) {
			return false
		}
		shutdown(left)
		shutdown(right)
		return true
	}

	stop := context.AfterFunc(ctx, func() { shutdownBoth() })
	defer stop()

	var g errgroup.Group
	copyHalf := func(dst, src net.Conn) func() error {
		return func() error {
			_, err := io.Copy(dst, src)
			if !shutdownBoth() {
				// Ended by the other direction's shutdown.
				return nil
			}
			return err
		}
	}
	g.Go(copyHalf(left, right))
	g.Go(copyHalf(right, left))

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

type closeReader interface {
	CloseRead() error
}

type closeWriter interface {
	CloseWrite() error
}

// shutdown shuts c down for reading and writing, without releasing it. It is
// safe to call more than once; errors from an already shut down socket are
// ignored.
func shutdown(c net.Conn) {
	cr, okR := c.(closeReader)
	cw, okW := c.(closeWriter)
	if !okR || !okW {
		_ = c.Close()
		return
	}
	_ = cr.CloseRead()
	_ = cw.CloseWrite()
	_ = c.SetDeadline(aLongTimeAgo)
}
