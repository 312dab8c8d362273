package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chenwei-lan/ledger-service/internal/cache"
	"github.com/chenwei-lan/ledger-service/internal/errors"
	"github.com/chenwei-lan/ledger-service/internal/events"
	"github.com/chenwei-lan/ledger-service/internal/models"
	"github.com/chenwei-lan/ledger-service/internal/repository"
)

type TransferService interface {
	Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal) (*models.Transaction, error)
}

type TransferServiceImpl struct {
	txRunner        repository.TxRunner
	accountRepo     repository.AccountRepository
	transactionRepo repository.TransactionRepository
	publisher       events.Publisher
	history         *cache.ViewCache[[]*models.Transaction]
	logger          *slog.Logger
}

func NewTransferService(
	txRunner repository.TxRunner,
	accountRepo repository.AccountRepository,
	transactionRepo repository.TransactionRepository,
	publisher events.Publisher,
	history *cache.ViewCache[[]*models.Transaction],
	logger *slog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		txRunner:        txRunner,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		publisher:       publisher,
		history:         history,
		logger:          logger,
	}
}

// Transfer moves amount between two accounts as one atomic unit: both
// rows are locked FOR UPDATE, the source balance check, the two balance
// updates and the transaction insert commit together or not at all.
func (s *TransferServiceImpl) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		s.logger.Warn("rejected transfer",
			"from_account_id", fromAccountID,
			"to_account_id", toAccountID,
			"amount", amount,
		)
		return nil, errors.NewValidationError("transfer amount must be positive")
	}
	if fromAccountID == toAccountID {
		s.logger.Warn("rejected self-transfer", "account_id", fromAccountID)
		return nil, errors.NewValidationError("source and destination accounts must differ")
	}

	var transaction *models.Transaction
	err := s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		// Lock rows in account-id order so two opposing transfers
		// cannot deadlock.
		ids := []string{fromAccountID, toAccountID}
		if toAccountID < fromAccountID {
			ids[0], ids[1] = toAccountID, fromAccountID
		}

		locked := make(map[string]*models.Account, 2)
		for _, id := range ids {
			account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				if errors.IsNotFound(err) {
					if id == fromAccountID {
						return errors.ErrSourceAccountNotFound
					}
					// The destination sorted first. A missing source
					// is still reported ahead of a missing
					// destination.
					if _, srcErr := s.accountRepo.GetByIDForUpdate(ctx, tx, fromAccountID); srcErr != nil {
						if errors.IsNotFound(srcErr) {
							return errors.ErrSourceAccountNotFound
						}
						return errors.NewStorageError("get account for update", srcErr)
					}
					return errors.ErrDestinationAccountNotFound
				}
				return errors.NewStorageError("get account for update", err)
			}
			locked[id] = account
		}

		if locked[fromAccountID].Balance.LessThan(amount) {
			return errors.ErrInsufficientFunds
		}

		if _, err := s.accountRepo.AddToBalanceTx(ctx, tx, fromAccountID, amount.Neg()); err != nil {
			return errors.NewStorageError("debit source account", err)
		}
		if _, err := s.accountRepo.AddToBalanceTx(ctx, tx, toAccountID, amount); err != nil {
			return errors.NewStorageError("credit destination account", err)
		}

		transaction = &models.Transaction{
			FromAccountID: fromAccountID,
			ToAccountID:   toAccountID,
			Amount:        amount,
		}
		if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
			return errors.NewStorageError("create transaction record", err)
		}
		return nil
	})

	if err != nil {
		switch {
		case errors.IsNotFound(err), errors.IsInsufficientFunds(err):
			s.logger.Warn("transfer rejected",
				"from_account_id", fromAccountID,
				"to_account_id", toAccountID,
				"amount", amount,
				"reason", err.Error(),
			)
		default:
			s.logger.Error("transfer failed",
				"from_account_id", fromAccountID,
				"to_account_id", toAccountID,
				"error", err.Error(),
			)
		}
		return nil, err
	}

	s.logger.Info("transfer completed",
		"transaction_id", transaction.ID,
		"from_account_id", fromAccountID,
		"to_account_id", toAccountID,
		"amount", amount,
	)

	// Post-commit side effects. The transfer is already durable, so a
	// failure here is logged and swallowed.
	s.publishCompleted(ctx, transaction)
	if s.history != nil {
		s.history.Delete(ctx, historyKey(fromAccountID))
		s.history.Delete(ctx, historyKey(toAccountID))
	}

	return transaction, nil
}

func (s *TransferServiceImpl) publishCompleted(ctx context.Context, transaction *models.Transaction) {
	event := events.TransferCompleted{
		TransactionID: transaction.ID,
		FromAccountID: transaction.FromAccountID,
		ToAccountID:   transaction.ToAccountID,
		Amount:        transaction.Amount,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish transfer event",
			"transaction_id", transaction.ID,
			"error", err.Error(),
		)
	}
}
