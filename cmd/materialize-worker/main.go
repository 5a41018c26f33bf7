package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/export/gsheet"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

// userSet tracks which users the periodic tick should materialize. It starts
// from WATCH_USERS and grows as change messages arrive.
type userSet struct {
	mu    sync.Mutex
	users map[string]struct{}
}

func newUserSet(initial []string) *userSet {
	s := &userSet{users: make(map[string]struct{})}
	for _, u := range initial {
		s.users[u] = struct{}{}
	}
	return s
}

func (s *userSet) Add(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = struct{}{}
}

func (s *userSet) All() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.users))
	for u := range s.users {
		out = append(out, u)
	}
	return out
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: "materialize-worker",
	})
	applog.SetDefault(logger)

	logger.Info("Starting materialize-worker")

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the transaction store
	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateStore(ctx, backend.Config{
		Type:         backend.Type(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
		PostgresURL:  cfg.PostgresURL,
	})
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	// Optional Google Sheets export: every committed batch is appended to the
	// configured sheet.
	var batchWriter ledger.BatchWriter = result.Store
	if cfg.GoogleSpreadsheetID != "" {
		exporter, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Warn("Failed to initialize Sheets exporter, continuing without export", "error", err)
		} else {
			batchWriter = &gsheet.ExportingBatchWriter{Store: result.Store, Exporter: exporter}
			logger.Info("Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		}
	}

	materializer := services.NewMaterializer(batchWriter)
	feedWorker := worker.New(result.Store, materializer, cfg.MaterializeDebounce)
	defer feedWorker.Stop()

	users := newUserSet(cfg.WatchUsers)

	logger.Info("Materialize-worker configured",
		"backend", cfg.DataBackend,
		"debounce", cfg.MaterializeDebounce,
		"interval", cfg.MaterializeInterval,
		"watch_users", len(cfg.WatchUsers))

	// Run initial passes on startup
	for _, userID := range users.All() {
		if count, err := feedWorker.RunPass(ctx, userID); err != nil {
			logger.Error("Initial materialization failed", "user_id", userID, "error", err)
		} else if count > 0 {
			logger.Info("Initial materialization complete", "user_id", userID, "entries_created", count)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	// Change feed consumer: each message schedules a debounced pass.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, relying on periodic ticks only", "error", err)
		} else {
			defer amqpClient.Close()
			g.Go(func() error {
				err := amqpClient.ConsumeTransactionChanges(gctx, func(msg *amqp.TransactionChangedMessage) error {
					users.Add(msg.UserID)
					feedWorker.Trigger(gctx, msg.UserID)
					return nil
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
	}

	// Periodic tick: catches crossed day boundaries and missed messages.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.MaterializeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				for _, userID := range users.All() {
					count, err := feedWorker.RunPass(gctx, userID)
					if err != nil {
						logger.Error("Periodic materialization failed", "user_id", userID, "error", err)
						continue
					}
					if count > 0 {
						logger.Info("Periodic materialization complete",
							"user_id", userID, "entries_created", count)
					}
				}
			}
		}
	})

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-gctx.Done():
		logger.Info("Worker context cancelled")
	}

	logger.Info("Shutting down materialize-worker...")
	cancel()

	if err := g.Wait(); err != nil {
		logger.Error("Worker exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Materialize-worker shutdown complete")
}
