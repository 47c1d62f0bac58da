// hxclient loads an HTML page, connects every ws-connect element and logs
// extension events until interrupted.
// Usage: go run ./cmd/hxclient --config configs/hxclient.example.yaml --click send
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
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/hxsocket/internal/config"
	"github.com/rickgao/hxsocket/internal/connection"
	"github.com/rickgao/hxsocket/internal/dom"
	"github.com/rickgao/hxsocket/internal/events"
	"github.com/rickgao/hxsocket/internal/logging"
	"github.com/rickgao/hxsocket/internal/loop"
	"github.com/rickgao/hxsocket/internal/trigger"
	"github.com/rickgao/hxsocket/internal/version"
	"github.com/rickgao/hxsocket/internal/wsext"
)

func main() {
	configPath := flag.String("config", "configs/hxclient.example.yaml", "path to config file")
	clickIDs := flag.String("click", "", "comma-separated element ids to click when a connection opens")
	statsEvery := flag.Duration("stats", 30*time.Second, "stats log interval (0 disables)")
	flag.Parse()

	// Bootstrap logger until the configured one is available
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.LoadAndValidate(*configPath)
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

	logger.Info("starting hxclient", version.Attr(), "config", *configPath)

	doc, err := loadDocument(cfg.Document, logging.Component(logger, "dom"))
	if err != nil {
		logger.Error("failed to load document", "error", err)
		os.Exit(1)
	}

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

	l := loop.New(loop.Config{QueueSize: cfg.Loop.QueueSize}, logging.Component(logger, "loop"))
	bus := events.New(events.Config{WatchBuffer: cfg.Loop.WatchBuffer}, logging.Component(logger, "events"))
	ext := wsext.New(
		wsext.Config{Manager: connection.ManagerConfig{Client: clientConfig(cfg.Socket)}},
		doc, bus, l, nil,
		logging.Component(logger, "wsext"),
	)

	sub := bus.Watch()
	g, gctx := errgroup.WithContext(ctx)

	// The loop outlives ctx so shutdown work can still be posted to it
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	g.Go(func() error {
		if err := l.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("event loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		watchEvents(sub, l, doc, cfg.Document.Print, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := l.Do(shutdownCtx, ext.Shutdown); err != nil {
			logger.Warn("extension shutdown incomplete", "error", err)
		}
		bus.Close()
		stopLoop()
		return nil
	})

	if *statsEvery > 0 {
		g.Go(func() error {
			logStats(gctx, *statsEvery, l, ext, logger)
			return nil
		})
	}

	l.Post(func() {
		if ids := splitIDs(*clickIDs); len(ids) > 0 {
			clickOnOpen(bus, doc, ids, logger)
		}
		ext.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("hxclient failed", "error", err)
		os.Exit(1)
	}
	logger.Info("hxclient stopped")
}

func loadDocument(cfg config.DocumentConfig, logger *slog.Logger) (*dom.Document, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	return dom.Parse(f, cfg.Location, logger)
}

func clientConfig(s config.SocketConfig) connection.ClientConfig {
	header := http.Header{}
	for k, v := range s.Headers {
		header.Set(k, v)
	}
	return connection.ClientConfig{
		HandshakeTimeout: s.HandshakeTimeout,
		WriteTimeout:     s.WriteTimeout,
		PingInterval:     s.PingInterval,
		PingTimeout:      s.PingTimeout,
		ReadLimit:        s.ReadLimit,
		Header:           header,
		Subprotocols:     s.Subprotocols,
	}
}

// watchEvents logs every extension event until the bus closes.
func watchEvents(sub events.Subscription, l *loop.Loop, doc *dom.Document, printDoc bool, logger *slog.Logger) {
	for v := range sub {
		rec, ok := v.(events.Record)
		if !ok {
			continue
		}
		logger.Info("event",
			"name", rec.Name,
			"target", rec.Target,
			"cancelled", rec.Cancelled,
		)

		if printDoc && rec.Name == events.WSAfterMessage {
			l.Post(func() {
				fmt.Println(doc.String())
			})
		}
	}
}

// clickOnOpen clicks the given elements each time a connection opens.
func clickOnOpen(bus *events.Bus, doc *dom.Document, ids []string, logger *slog.Logger) {
	bus.OnGlobal(events.WSOpen, func(*events.Event) {
		for _, id := range ids {
			n := doc.GetElementByID(id)
			if n == nil {
				logger.Warn("click target not found", "id", id)
				continue
			}
			trigger.Click(bus, n)
		}
	})
}

func logStats(ctx context.Context, every time.Duration, l *loop.Loop, ext *wsext.Extension, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var stats connection.ManagerStats
			var pending int
			if err := l.Do(ctx, func() {
				stats = ext.Manager().Stats()
				pending = ext.Pending()
			}); err != nil {
				return
			}
			logger.Info("stats",
				"live", stats.Live,
				"open", stats.Open,
				"connecting", stats.Connecting,
				"queued", stats.Queued,
				"established", stats.Established,
				"closed", stats.Closed,
				"pending_senders", pending,
				"loop", l.Stats(),
			)
		}
	}
}

func splitIDs(raw string) []string {
	var out []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimPrefix(strings.TrimSpace(id), "#"); id != "" {
			out = append(out, id)
		}
	}
	return out
}
