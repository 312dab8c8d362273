package repository

import (
	"context"
	"database/sql"

	"github.com/chenwei-lan/ledger-service/internal/errors"
)

// TxRunner scopes a unit of work to one database transaction. The
// orchestration layer commits when fn returns nil and rolls back on any
// error path, including validation failures discovered mid-sequence.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type PostgresTxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) *PostgresTxRunner {
	return &PostgresTxRunner{db: db}
}

// RunInTx executes fn inside a serializable transaction. Serializable
// isolation plus FOR UPDATE row locks make a balance check and the
// following update observable as a single unit.
func (r *PostgresTxRunner) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return errors.NewStorageError("begin", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageError("commit", err)
	}
	return nil
}
