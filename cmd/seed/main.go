// Command seed fills the configured backend with plausible demo data: a few
// months of plain transactions plus recurring templates for the
// materialize-worker to backfill.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

var expenseCategories = []string{
	"Food", "Housing", "Transport", "Health", "Entertainment", "Shopping", "Travel",
}

func main() {
	userID := flag.String("user", "demo", "user id to seed")
	count := flag.Int("count", 60, "number of plain transactions to create")
	months := flag.Int("months", 3, "how many months back the entries spread")
	flag.Parse()

	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: "seed",
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

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

	gofakeit.Seed(time.Now().UnixNano())

	created := 0
	for i := 0; i < *count; i++ {
		daysBack := gofakeit.Number(0, *months*30)
		date := core.DateOf(time.Now().AddDate(0, 0, -daysBack))

		tx := core.Transaction{
			Description: gofakeit.ProductName(),
			Amount:      core.Money{Cents: int64(gofakeit.Number(150, 25000))},
			Type:        core.Expense,
			Date:        date,
			Category:    expenseCategories[gofakeit.Number(0, len(expenseCategories)-1)],
			UserID:      *userID,
		}
		if gofakeit.Number(1, 10) == 1 {
			tx.Type = core.Income
			tx.Description = gofakeit.Company() + " payment"
			tx.Category = "Income"
			tx.Amount = core.Money{Cents: int64(gofakeit.Number(50000, 400000))}
		}

		if _, err := result.Store.Create(ctx, tx); err != nil {
			logger.Error("Failed to create transaction", "error", err, "description", tx.Description)
			continue
		}
		created++
	}

	anchor := core.DateOf(time.Now().AddDate(0, -*months, 0))
	templates := []core.Transaction{
		{
			Description: "Rent",
			Amount:      core.Money{Cents: 120000},
			Type:        core.Expense,
			Date:        anchor,
			Category:    "Housing",
			UserID:      *userID,
			IsRecurring: true,
			Frequency:   core.Monthly,
		},
		{
			Description: "Salary",
			Amount:      core.Money{Cents: 320000},
			Type:        core.Income,
			Date:        anchor,
			Category:    "Income",
			UserID:      *userID,
			IsRecurring: true,
			Frequency:   core.Monthly,
		},
		{
			Description: "Gym membership",
			Amount:      core.Money{Cents: 4500},
			Type:        core.Expense,
			Date:        anchor,
			Category:    "Health",
			UserID:      *userID,
			IsRecurring: true,
			Frequency:   core.Weekly,
		},
	}
	for _, tpl := range templates {
		if _, err := result.Store.Create(ctx, tpl); err != nil {
			logger.Error("Failed to create template", "error", err, "description", tpl.Description)
			continue
		}
		created++
	}

	logger.Info("Seeding complete",
		"user_id", *userID,
		"created", created,
		"backend", cfg.DataBackend)
}
