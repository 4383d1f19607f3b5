package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"garagebook/internal/amqp"
	"garagebook/internal/backend"
	"garagebook/internal/config"
	apphttp "garagebook/internal/http"
	"garagebook/internal/ledger"
	"garagebook/internal/ledger/remote"
	"garagebook/internal/log"
	"garagebook/internal/services"
)

func main() {
	// Load .env for local development; absent in containers.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.Logger).CreateBackend(cfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	// The broker is optional. Without it records stay local and the
	// worker's pending sweep catches up once a broker appears.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without change events", "error", err)
			amqpClient = nil
		} else {
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewLedgerService(result.Store, amqpClient)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Service shutdown error", "error", err)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, svc)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting garagebook server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Follower mode: poll a peer instance and mirror its ledger.
	if cfg.RemoteLedgerURL != "" {
		reader := remote.NewReader(cfg.RemoteLedgerURL)
		refresher := services.NewSnapshotRefresher(reader, cfg.RefreshInterval, func(snap ledger.Snapshot) {
			if err := srv.ApplySnapshot(ctx, snap); err != nil {
				logger.Error("Failed to apply remote snapshot", "error", err)
			}
		})
		g.Go(func() error {
			if err := refresher.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return refresher.Stop(stopCtx)
		})
		logger.Info("Following remote ledger", "url", cfg.RemoteLedgerURL, "interval", cfg.RefreshInterval)
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
