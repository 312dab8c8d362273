package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/chenwei-lan/ledger-service/internal/errors"
	"github.com/chenwei-lan/ledger-service/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
	AddToBalance(ctx context.Context, id string, delta decimal.Decimal) (*models.Account, error)
	AddToBalanceTx(ctx context.Context, tx *sql.Tx, id string, delta decimal.Decimal) (*models.Account, error)
	DeleteAll(ctx context.Context) error
}

type PostgresAccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	query := `INSERT INTO accounts (id, name, balance, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, account.ID, account.Name, account.Balance).
		Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("account id collision: %w", err)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT id, name, balance, created_at, updated_at FROM accounts WHERE id = $1`

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&account.ID, &account.Name, &account.Balance, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}
	return account, nil
}

// GetByIDForUpdate loads an account inside tx with a row lock held
// until the transaction ends.
func (r *PostgresAccountRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error) {
	query := `SELECT id, name, balance, created_at, updated_at FROM accounts WHERE id = $1 FOR UPDATE`

	account := &models.Account{}
	err := tx.QueryRowContext(ctx, query, id).
		Scan(&account.ID, &account.Name, &account.Balance, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by ID for update: %w", err)
	}

	return account, nil
}

func (r *PostgresAccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT id, name, balance, created_at, updated_at FROM accounts`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account := &models.Account{}
		err := rows.Scan(&account.ID, &account.Name, &account.Balance, &account.CreatedAt, &account.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}
	return accounts, nil
}

// AddToBalance applies a store-evaluated relative balance update so
// concurrent operations on the same account never lose increments.
func (r *PostgresAccountRepository) AddToBalance(ctx context.Context, id string, delta decimal.Decimal) (*models.Account, error) {
	return addToBalance(ctx, r.db, id, delta)
}

// AddToBalanceTx is AddToBalance scoped to an open transaction. Callers
// are expected to hold the row lock via GetByIDForUpdate first.
func (r *PostgresAccountRepository) AddToBalanceTx(ctx context.Context, tx *sql.Tx, id string, delta decimal.Decimal) (*models.Account, error) {
	return addToBalance(ctx, tx, id, delta)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func addToBalance(ctx context.Context, q rowQuerier, id string, delta decimal.Decimal) (*models.Account, error) {
	query := `UPDATE accounts SET balance = balance + $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING id, name, balance, created_at, updated_at`

	account := &models.Account{}
	err := q.QueryRowContext(ctx, query, delta, id).
		Scan(&account.ID, &account.Name, &account.Balance, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to update account balance: %w", err)
	}
	return account, nil
}

// DeleteAll purges every account. Seed tooling only; the service layer
// never deletes accounts.
func (r *PostgresAccountRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("failed to delete accounts: %w", err)
	}
	return nil
}
