package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/chenwei-lan/ledger-service/internal/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, transaction *models.Transaction) error
	GetByAccountID(ctx context.Context, accountID string) ([]*models.Transaction, error)
	DeleteAll(ctx context.Context) error
}

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

// Create inserts the transfer record inside the same transaction that
// carries the balance updates, so the row commits or rolls back with
// them.
func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *sql.Tx, transaction *models.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}

	query := `INSERT INTO transactions (id, from_account_id, to_account_id, amount, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, CURRENT_TIMESTAMP))
		RETURNING created_at`

	var createdAt sql.NullTime
	if !transaction.CreatedAt.IsZero() {
		createdAt = sql.NullTime{Time: transaction.CreatedAt, Valid: true}
	}

	err := tx.QueryRowContext(ctx, query,
		transaction.ID,
		transaction.FromAccountID,
		transaction.ToAccountID,
		transaction.Amount,
		createdAt,
	).Scan(&transaction.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByAccountID returns every transaction where the account is either
// side, most recent first.
func (r *PostgresTransactionRepository) GetByAccountID(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	query := `SELECT id, from_account_id, to_account_id, amount, created_at
		FROM transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions by account ID: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		transaction := &models.Transaction{}
		err := rows.Scan(&transaction.ID, &transaction.FromAccountID, &transaction.ToAccountID, &transaction.Amount, &transaction.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, transaction)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return transactions, nil
}

// DeleteAll purges every transaction. Seed tooling only.
func (r *PostgresTransactionRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	return nil
}
