package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"
	"google.golang.org/grpc"

	"github.com/RowanDark/xorbreak/internal/config"
	"github.com/RowanDark/xorbreak/internal/logging"
	"github.com/RowanDark/xorbreak/internal/rpc"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("xorbreakd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "address for the gRPC server to listen on")
	fs.StringVar(&cfg.Server.AuthToken, "token", cfg.Server.AuthToken, "bearer token required from clients (empty disables auth)")
	fs.IntVar(&cfg.Server.MaxConns, "max-conns", cfg.Server.MaxConns, "maximum simultaneous connections (0 for no limit)")
	fs.StringVar(&cfg.Server.MetricsAddr, "metrics-addr", cfg.Server.MetricsAddr, "address for the Prometheus metrics endpoint (empty to disable)")
	fs.StringVar(&cfg.AuditLog, "audit-log", cfg.AuditLog, "append audit events to this file instead of stdout")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stderr, version)
		return 0
	}
	if cfg.Server.MaxConns < 0 {
		fmt.Fprintln(stderr, "--max-conns must not be negative")
		return 2
	}

	logger := slog.New(slog.NewJSONHandler(stderr, nil))
	if cfg.Server.AuthToken == "" {
		logger.Warn("Authentication disabled; set --token or XORBREAK_AUTH_TOKEN")
	}

	auditOpts := []logging.Option{}
	if cfg.AuditLog != "" {
		auditOpts = append(auditOpts, logging.WithoutStdout(), logging.WithFile(cfg.AuditLog))
	}
	audit, err := logging.NewAuditLogger("xorbreakd", auditOpts...)
	if err != nil {
		logger.Error("Failed to open audit log", "error", err)
		return 1
	}
	defer audit.Close()

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		logger.Error("Failed to listen", "addr", cfg.Server.Addr, "error", err)
		return 1
	}
	if cfg.Server.MaxConns > 0 {
		lis = netutil.LimitListener(lis, cfg.Server.MaxConns)
	}

	if cfg.Server.MetricsAddr != "" {
		_, stopMetrics, err := startMetrics(cfg.Server.MetricsAddr, logger)
		if err != nil {
			lis.Close()
			logger.Error("Failed to start metrics endpoint", "error", err)
			return 1
		}
		defer stopMetrics()
	}

	if err := serve(ctx, lis, cfg, logger, audit); err != nil {
		logger.Error("Server failed", "error", err)
		return 1
	}
	return 0
}

// serve runs the Breaker service on lis until ctx is cancelled.
func serve(ctx context.Context, lis net.Listener, cfg config.Config, logger *slog.Logger, audit *logging.AuditLogger) error {
	breaker, err := rpc.NewServer(cfg, rpc.WithLogger(logger), rpc.WithAuditLogger(audit))
	if err != nil {
		return fmt.Errorf("configure server: %w", err)
	}
	srv := rpc.NewGRPCServer(breaker)

	lifecycle := audit.WithComponent("xorbreakd")
	_ = lifecycle.Emit(logging.AuditEvent{
		EventType: logging.EventServerLifecycle,
		Decision:  logging.DecisionInfo,
		Reason:    "started",
		Metadata:  map[string]any{"addr": lis.Addr().String(), "version": version, "auth": cfg.Server.AuthToken != ""},
	})
	logger.Info("Breaker service listening", "addr", lis.Addr().String(), "version", version)

	go func() {
		<-ctx.Done()

		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			srv.Stop()
		}
	}()

	err = srv.Serve(lis)
	_ = lifecycle.Emit(logging.AuditEvent{
		EventType: logging.EventServerLifecycle,
		Decision:  logging.DecisionInfo,
		Reason:    "stopped",
	})
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	logger.Info("Breaker service stopped")
	return nil
}
