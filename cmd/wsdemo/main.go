// wsdemo serves a WebSocket endpoint that answers every frame with an
// out-of-band fragment, for trying hxclient against.
// Usage: go run ./cmd/wsdemo --config configs/wsdemo.example.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/hxsocket/internal/config"
	"github.com/rickgao/hxsocket/internal/logging"
	"github.com/rickgao/hxsocket/internal/server"
	"github.com/rickgao/hxsocket/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/wsdemo.example.yaml", "path to config file")
	fallback := flag.String("target", "", "element id answered when a frame has no HX-Target")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.LoadDemo(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	configured, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		logger.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}
	logger = configured.With("instance_id", cfg.Instance.ID)
	slog.SetDefault(logger)

	logger.Info("starting wsdemo", version.Attr(), "config", *configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	srv := server.New(server.Config{
		SocketPath:     cfg.Server.SocketPath,
		HealthPath:     cfg.Server.HealthPath,
		WriteTimeout:   cfg.Server.WriteTimeout,
		FallbackTarget: *fallback,
	}, logging.Component(logger, "server"))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening",
			"port", cfg.Server.Port,
			"socket_url", fmt.Sprintf("ws://localhost:%d%s", cfg.Server.Port, cfg.Server.SocketPath),
			"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Server.Port, cfg.Server.HealthPath),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("wsdemo failed", "error", err)
		os.Exit(1)
	}
	logger.Info("wsdemo stopped", "stats", srv.Stats())
}
