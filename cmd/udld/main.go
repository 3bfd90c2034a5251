package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/shuckc/pytexalarm/internal/metrics"
	"github.com/shuckc/pytexalarm/internal/udlserver"
)

func newUDLServer(cfg *appConfig, l *slog.Logger) *udlserver.Server {
	return udlserver.NewServer(
		udlserver.WithListenAddr(cfg.listenAddr),
		udlserver.WithBanner(cfg.banner),
		udlserver.WithUDLPassword(cfg.udlPasswd),
		udlserver.WithLogger(l),
	)
}

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("udld %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(2)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	switch cfg.mode {
	case "server":
		runServer(ctx, cancel, cfg, l)
	case "client":
		runClient(ctx, cfg, l)
	case "trace":
		runTrace(cfg, l)
	default:
		l.Error("unknown_mode", "mode", cfg.mode)
		os.Exit(2)
	}
}

func runServer(ctx context.Context, cancel context.CancelFunc, cfg *appConfig, l *slog.Logger) {
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	srv := newUDLServer(cfg, l)

	go func() {
		if err := srv.Serve(ctx); err != nil {
			l.Error("udl_server_error", "error", err)
			cancel()
		}
	}()

	go func() {
		select {
		case <-srv.Ready():
		case <-ctx.Done():
			return
		}
		portNum := 0
		if _, p, err := net.SplitHostPort(srv.Addr()); err == nil {
			if pn, perr := strconv.Atoi(p); perr == nil {
				portNum = pn
			}
		}
		if portNum == 0 {
			if idx := strings.LastIndex(srv.Addr(), ":"); idx >= 0 {
				if pn, perr := strconv.Atoi(srv.Addr()[idx+1:]); perr == nil {
					portNum = pn
				}
			}
		}
		cleanupMDNS, err := startMDNS(ctx, cfg, portNum)
		if err != nil {
			l.Warn("mdns_start_failed", "error", err)
			return
		}
		l.Info("mdns_started", "service", mdnsServiceType, "port", portNum)
		go func() { <-ctx.Done(); cleanupMDNS() }()
	}()

	metrics.SetReadinessFunc(func() bool {
		select {
		case <-srv.Ready():
		default:
			return false
		}
		return ctx.Err() == nil
	})

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	_ = srv.Shutdown()
	wg.Wait()
}
