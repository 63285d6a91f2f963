package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/socksrelay/internal/dialer"
	"github.com/die-net/socksrelay/internal/proxy"
	"github.com/die-net/socksrelay/internal/resolver"
)

const defaultListen = "0.0.0.0:1080"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listen   = pflag.String("listen", defaultListen, "SOCKS5 listen address. A single positional argument overrides it.")
		maxConns = pflag.Int("max-conns", 0, "Maximum number of simultaneously handled connections (0 is unbounded)")

		debugListen        = pflag.String("debug-listen", "", "Debug HTTP listen address exposing /debug/pprof (e.g. 127.0.0.1:6060). Empty disables.")
		dialTimeout        = pflag.Duration("dial-timeout", 10*time.Second, "Timeout for outbound DNS lookup and each TCP connect attempt")
		negotiationTimeout = pflag.Duration("negotiation-timeout", 10*time.Second, "Timeout for the SOCKS5 handshake (0 disables)")
		dnsServer          = pflag.String("dns-server", "", "DNS server (host[:port]) for resolving domain targets. Empty uses the system resolver.")
		dnsCacheTTL        = pflag.Duration("dns-cache-ttl", 5*time.Minute, "Maximum time to cache answers from --dns-server (0 disables)")
		preferIPv6         = pflag.Bool("prefer-ipv6", false, "Try IPv6 addresses of domain targets before IPv4")
		reusePort          = pflag.Bool("reuse-port", false, "Set SO_REUSEPORT on the listening socket")
		tcpKeepAlive       = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		verbose            = pflag.Bool("verbose", false, "Enable per-connection error logging")
	)

	if !proxy.ReusePortSupported {
		_ = pflag.CommandLine.MarkHidden("reuse-port")
	}

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	addr, err := listenAddr(*listen, pflag.Args())
	if err != nil {
		return err
	}

	if *maxConns < 0 {
		return errors.New("invalid --max-conns: must be >= 0")
	}

	ka, err := parseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	var res resolver.Resolver = resolver.NewSystem()
	if *dnsServer != "" {
		res, err = resolver.NewDNS(resolver.DNSConfig{
			Server:   *dnsServer,
			Timeout:  *dialTimeout,
			CacheTTL: *dnsCacheTTL,
		})
		if err != nil {
			return fmt.Errorf("invalid --dns-server: %w", err)
		}
	}

	cfg := proxy.Config{
		NegotiationTimeout: *negotiationTimeout,
		KeepAlive:          ka,
		MaxConns:           *maxConns,
		ReusePort:          *reusePort,
		Dialer: dialer.NewDirectDialer(dialer.Config{
			DialTimeout: *dialTimeout,
			KeepAlive:   ka,
			Resolver:    res,
			PreferIPv6:  *preferIPv6,
		}),
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *debugListen != "" {
		debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
		lc := net.ListenConfig{KeepAliveConfig: cfg.KeepAlive}
		debugLn, err := lc.Listen(ctx, "tcp", *debugListen)
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		log.Printf("debug listening on %s", *debugListen)
	}

	ln, err := proxy.ListenTCP(ctx, "tcp", addr, cfg)
	if err != nil {
		return fmt.Errorf("socks5 listen: %w", err)
	}
	s5 := proxy.NewSOCKS5Server(ctx, cfg, *verbose)
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	g.Go(func() error {
		err := s5.Serve(ln)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("socks5 serve: %w", err)
	})

	log.Printf("socks5 proxy listening on %s", ln.Addr())

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	log.Print("shutting down")
	return err
}

// listenAddr returns the bind address: the single positional argument if
// present, otherwise the --listen flag.
func listenAddr(flagValue string, args []string) (string, error) {
	switch len(args) {
	case 0:
		return flagValue, nil
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("expected at most one bind address argument, got %d", len(args))
	}
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return net.KeepAliveConfig{}, errors.New("empty")
	}
	if s == "on" {
		return net.KeepAliveConfig{Enable: true}, nil
	}
	if s == "off" {
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositiveSeconds(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositiveSeconds(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositiveInt(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     keepIdle,
		Interval: keepIntvl,
		Count:    keepCnt,
	}, nil
}

func parsePositiveSeconds(s string) (time.Duration, error) {
	n, err := parsePositiveInt(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}
