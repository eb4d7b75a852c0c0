package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/VerticalLabs-ai/rfp-ml-sub002/internal/archive"
	"github.com/VerticalLabs-ai/rfp-ml-sub002/internal/config"
	"github.com/VerticalLabs-ai/rfp-ml-sub002/internal/database"
	"github.com/VerticalLabs-ai/rfp-ml-sub002/internal/stream"
	"github.com/VerticalLabs-ai/rfp-ml-sub002/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/streamd.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting streamd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"endpoint", cfg.Stream.Endpoint,
	)

	// Create context with cancellation
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

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Create the archive writer
	writer := archive.NewWriter(archive.Config{
		BatchSize:     cfg.Archive.BatchSize,
		FlushInterval: cfg.Archive.FlushInterval,
		BufferSize:    cfg.Archive.BufferSize,
	}, pool, logger)

	if err := writer.Start(ctx); err != nil {
		logger.Error("failed to start archive writer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		writer.Stop(shutdownCtx)
	}()

	// Create the stream client; notifications drain into the log here,
	// a UI frontend would drain the same channel instead.
	notifier := stream.NewChanNotifier(64, logger)

	client, err := stream.New(stream.Options{
		Endpoint:            cfg.Stream.Endpoint,
		MaxAttempts:         cfg.Stream.MaxAttempts,
		BaseDelay:           cfg.Stream.BaseDelay,
		MaxDelay:            cfg.Stream.MaxDelay,
		NotifyAfterAttempts: cfg.Stream.NotifyAfterAttempts,
		HandshakeTimeout:    cfg.Stream.HandshakeTimeout,
		WriteTimeout:        cfg.Stream.WriteTimeout,
		OnMessage:           writer.Enqueue,
		Notifier:            notifier,
		Logger:              logger,
	})
	if err != nil {
		logger.Error("failed to create stream client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := client.Start(ctx); err != nil {
		logger.Error("failed to start stream client", "error", err)
		os.Exit(1)
	}

	// Status server
	statusServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Status.Port),
		Handler: createStatusHandler(pool, client, writer),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting status server", "port", cfg.Status.Port)
		if err := statusServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		drainNotifications(gCtx, notifier, logger)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return statusServer.Shutdown(shutdownCtx)
	})

	logger.Info("streamd running",
		"instance_id", cfg.Instance.ID,
		"status_url", fmt.Sprintf("http://localhost:%d/status", cfg.Status.Port),
	)

	if err := g.Wait(); err != nil {
		logger.Error("streamd exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("streamd stopped")
}

// drainNotifications forwards user-facing connection notifications to
// the log until the context is cancelled.
func drainNotifications(ctx context.Context, notifier *stream.ChanNotifier, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-notifier.Notifications():
			switch n.Kind {
			case stream.NotifyReconnected:
				logger.Info("notification: connection restored")
			case stream.NotifyReconnecting:
				logger.Warn("notification: reconnecting",
					"attempt", n.Attempt,
					"max_attempts", n.MaxAttempts,
				)
			case stream.NotifyExhausted:
				logger.Error("notification: connection lost, manual reconnect required")
			case stream.NotifyError:
				logger.Warn("notification: stream error", "error", n.Err)
			}
		}
	}
}

// createStatusHandler creates the HTTP handler for the status endpoint.
func createStatusHandler(pool *pgxpool.Pool, client *stream.Client, writer *archive.Writer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "healthy"
		code := http.StatusOK
		if err := pool.Ping(ctx); err != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		if !client.IsConnected() {
			status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		var lastType string
		var lastAge float64
		if last := client.LastMessage(); last != nil {
			lastType = last.Type
			lastAge = time.Since(last.ReceivedAt).Seconds()
		}

		stats := writer.Stats()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"state":             client.State(),
			"connected":         client.IsConnected(),
			"attempt":           client.Attempt(),
			"last_message_type": lastType,
			"last_message_age":  lastAge,
			"archive": map[string]int64{
				"inserts":   stats.Inserts,
				"conflicts": stats.Conflicts,
				"dropped":   stats.Dropped,
				"errors":    stats.Errors,
				"flushes":   stats.Flushes,
			},
		})
	})

	return mux
}
