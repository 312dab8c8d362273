// Command seed prepares a development database: applies the schema,
// clears existing rows and inserts a few demo accounts and transfers.
// With -clear it only purges the tables.
package main

import (
	"context"
	"database/sql"
	_ "embed"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/chenwei-lan/ledger-service/internal/models"
	"github.com/chenwei-lan/ledger-service/internal/repository"
)

//go:embed schema.sql
var schema string

func main() {
	clearOnly := flag.Bool("clear", false, "only clear accounts and transactions")
	applySchema := flag.Bool("schema", true, "apply schema before seeding")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	godotenv.Load()

	db, err := connectDB()
	if err != nil {
		logger.Error("failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	txRunner := repository.NewTxRunner(db)

	if *applySchema && !*clearOnly {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			logger.Error("failed to apply schema", "error", err.Error())
			os.Exit(1)
		}
		logger.Info("schema applied")
	}

	// Transactions reference accounts, so they go first.
	if err := transactionRepo.DeleteAll(ctx); err != nil {
		logger.Error("failed to clear transactions", "error", err.Error())
		os.Exit(1)
	}
	if err := accountRepo.DeleteAll(ctx); err != nil {
		logger.Error("failed to clear accounts", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("database cleared")

	if *clearOnly {
		return
	}

	accounts := []*models.Account{
		{Name: "王小明", Balance: decimal.NewFromInt(1000)},
		{Name: "劉大廷", Balance: decimal.NewFromInt(2000)},
		{Name: "許小睿", Balance: decimal.NewFromInt(1500)},
	}
	for _, account := range accounts {
		if err := accountRepo.Create(ctx, account); err != nil {
			logger.Error("failed to seed account", "name", account.Name, "error", err.Error())
			os.Exit(1)
		}
		logger.Info("seeded account", "account_id", account.ID, "name", account.Name)
	}

	transactions := []*models.Transaction{
		{
			FromAccountID: accounts[0].ID,
			ToAccountID:   accounts[1].ID,
			Amount:        decimal.NewFromInt(100),
			CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			FromAccountID: accounts[1].ID,
			ToAccountID:   accounts[2].ID,
			Amount:        decimal.NewFromInt(150),
			CreatedAt:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			FromAccountID: accounts[2].ID,
			ToAccountID:   accounts[0].ID,
			Amount:        decimal.NewFromInt(200),
			CreatedAt:     time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		},
	}
	err = txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		for _, transaction := range transactions {
			if err := transactionRepo.Create(ctx, tx, transaction); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("failed to seed transactions", "error", err.Error())
		os.Exit(1)
	}

	logger.Info("database seeded successfully",
		"accounts", len(accounts),
		"transactions", len(transactions),
	)
}

func connectDB() (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "password"),
		getEnv("DB_NAME", "ledger"),
		getEnv("DB_SSLMODE", "disable"),
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
