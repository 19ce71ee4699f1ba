package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/silkgo/internal/config"
	"github.com/udisondev/silkgo/internal/gateway"
	"github.com/udisondev/silkgo/internal/metrics"
	"github.com/udisondev/silkgo/internal/protocol"
	"github.com/udisondev/silkgo/internal/stream"
)

const ConfigPath = "config/serverlist.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load config
	cfgPath := ConfigPath
	if p := os.Getenv("SILKGO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadClient(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Configure slog
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	slog.Info("silkgo serverlist starting", "address", cfg.Address, "length_mask", fmt.Sprintf("0x%04X", cfg.LengthMask))

	codec, err := protocol.NewCodec(cfg.LengthMask)
	if err != nil {
		return fmt.Errorf("creating codec: %w", err)
	}

	opts := []stream.Option{
		stream.WithCodec(codec),
		stream.WithKeepAliveInterval(cfg.KeepAliveInterval),
		stream.WithRecvQueueSize(cfg.RecvQueueSize),
		stream.WithWriteTimeout(cfg.WriteTimeout),
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddress != "" {
		reg := metrics.NewRegistry()
		opts = append(opts, stream.WithObserver(metrics.NewStreamObserver(reg)))

		srv := &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			slog.Info("starting metrics server", "address", cfg.MetricsAddress)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return session(gctx, cfg, opts)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serverlist: %w", err)
	}
	return nil
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	return mux
}

// session dials the gateway, authenticates, identifies and polls the server list until ctx is done.
func session(ctx context.Context, cfg config.Client, opts []stream.Option) error {
	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", cfg.Address, err)
	}

	s := stream.New(conn, opts...)
	defer s.Close()

	if err := s.Authenticate(ctx); err != nil {
		return err
	}

	name, err := gateway.Identify(ctx, s, cfg.ClientName, cfg.ClientLocale)
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	slog.Info("connected", "server", name)

	return gateway.Poll(ctx, s, cfg.ServerListInterval, printServerList)
}

func printServerList(list gateway.ServerList) {
	for _, f := range list.Farms {
		slog.Info("farm", "id", fmt.Sprintf("0x%02X", f.ID), "name", f.Name)
	}
	for _, s := range list.Shards {
		slog.Info("shard",
			"id", s.ID,
			"name", s.Name,
			"players", fmt.Sprintf("%d/%d", s.Current, s.Max),
			"online", s.Online(),
		)
	}
}
