package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fotescodev/claude-watch/internal/broker"
	"github.com/fotescodev/claude-watch/internal/config"
	"github.com/fotescodev/claude-watch/internal/events"
	"github.com/fotescodev/claude-watch/internal/notify"
	"github.com/fotescodev/claude-watch/internal/registry"
	"github.com/fotescodev/claude-watch/internal/server"
	"github.com/fotescodev/claude-watch/internal/store"
	"github.com/fotescodev/claude-watch/internal/store/postgres"
	watchsync "github.com/fotescodev/claude-watch/internal/sync"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the approval server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't build an HTTP client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Open the store: Postgres when configured, in-memory otherwise.
		var st store.Store
		if cfg.DatabaseURL != "" {
			pg, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			st = pg
			logger.Info("postgres store opened")
		} else {
			st = store.NewMemory()
			logger.Info("in-memory store (CW_DATABASE_URL not set; requests are not persisted)")
		}

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (CW_NATS_URL not set)")
		}

		// Create the notification gateway.
		var pusher notify.Pusher
		if cfg.PushURL != "" {
			pusher = notify.NewWebhookPusher(cfg.PushURL)
			logger.Info("push notifications enabled", "url", cfg.PushURL)
		} else {
			pusher = notify.NoopPusher{}
			logger.Info("push notifications disabled (CW_PUSH_URL not set)")
		}
		gateway := notify.NewGateway(pusher, cfg.Debounce)

		// Create the broker and its listener registry. The registry's
		// snapshot closure needs the broker, so the broker variable is
		// declared first and bound after construction.
		var b *broker.Broker
		reg := registry.New(func(pairingID string) (registry.Message, error) {
			return b.Snapshot(pairingID)
		})
		b = broker.New(st, reg, gateway, publisher, cfg.RequestTimeout)

		// Start HTTP server.
		watchServer := server.NewWatchServer(b, st, reg, gateway)
		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: watchServer.NewHTTPHandler(cfg.AuthToken),
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start sync scheduler if any destinations are configured.
		var scheduler *watchsync.Scheduler
		if cfg.SyncInterval > 0 {
			var dests []watchsync.Destination

			if cfg.SyncS3Bucket != "" {
				s3Dest, err := watchsync.NewS3Destination(
					context.Background(),
					cfg.SyncS3Bucket,
					cfg.SyncS3Key,
					cfg.SyncS3Region,
					cfg.SyncS3Endpoint,
				)
				if err != nil {
					logger.Error("failed to create S3 sync destination", "err", err)
				} else {
					dests = append(dests, s3Dest)
					logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
				}
			}

			if cfg.SyncGitRepo != "" {
				gitDest := watchsync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch)
				dests = append(dests, gitDest)
				logger.Info("sync git destination enabled", "repo", cfg.SyncGitRepo, "file", cfg.SyncGitFile)
			}

			if len(dests) > 0 {
				scheduler = watchsync.NewScheduler(st, dests, cfg.SyncInterval, logger)
				scheduler.Start()
				logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
			}
		}

		// Log startup info.
		logger.Info("claude-watch server started",
			"http_addr", cfg.HTTPAddr,
			"request_timeout", cfg.RequestTimeout,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
