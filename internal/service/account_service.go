package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/chenwei-lan/ledger-service/internal/cache"
	"github.com/chenwei-lan/ledger-service/internal/errors"
	"github.com/chenwei-lan/ledger-service/internal/models"
	"github.com/chenwei-lan/ledger-service/internal/repository"
)

type AccountService interface {
	CreateAccount(ctx context.Context, name string, initialBalance decimal.Decimal) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Account, error)
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Account, error)
	GetTransactions(ctx context.Context, accountID string) ([]*models.Transaction, error)
}

type AccountServiceImpl struct {
	accountRepo     repository.AccountRepository
	transactionRepo repository.TransactionRepository
	txRunner        repository.TxRunner
	history         *cache.ViewCache[[]*models.Transaction]
	logger          *slog.Logger
}

// NewAccountService wires the account operations. history may be nil
// when no cache is configured; reads then always hit the store.
func NewAccountService(
	accountRepo repository.AccountRepository,
	transactionRepo repository.TransactionRepository,
	txRunner repository.TxRunner,
	history *cache.ViewCache[[]*models.Transaction],
	logger *slog.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		txRunner:        txRunner,
		history:         history,
		logger:          logger,
	}
}

func historyKey(accountID string) string {
	return "transactions:" + accountID
}

func (s *AccountServiceImpl) CreateAccount(ctx context.Context, name string, initialBalance decimal.Decimal) (*models.Account, error) {
	if initialBalance.IsNegative() {
		s.logger.Warn("rejected account creation",
			"name", name,
			"initial_balance", initialBalance,
		)
		return nil, errors.NewValidationError("initial balance cannot be negative")
	}

	account := &models.Account{
		Name:    name,
		Balance: initialBalance,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		s.logger.Error("failed to create account",
			"name", name,
			"error", err.Error(),
		)
		return nil, errors.NewStorageError("create account", err)
	}

	s.logger.Info("account created",
		"account_id", account.ID,
		"initial_balance", account.Balance,
	)
	return account, nil
}

func (s *AccountServiceImpl) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("account not found", "account_id", id)
			return nil, err
		}
		s.logger.Error("failed to get account",
			"account_id", id,
			"error", err.Error(),
		)
		return nil, errors.NewStorageError("get account", err)
	}
	return account, nil
}

func (s *AccountServiceImpl) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	accounts, err := s.accountRepo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list accounts", "error", err.Error())
		return nil, errors.NewStorageError("list accounts", err)
	}
	return accounts, nil
}

// Deposit credits the account through a store-evaluated increment, so
// concurrent deposits on the same account never lose updates.
func (s *AccountServiceImpl) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Account, error) {
	if !amount.IsPositive() {
		s.logger.Warn("rejected deposit",
			"account_id", accountID,
			"amount", amount,
		)
		return nil, errors.NewValidationError("deposit amount must be positive")
	}

	account, err := s.accountRepo.AddToBalance(ctx, accountID, amount)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("deposit to unknown account", "account_id", accountID)
			return nil, err
		}
		s.logger.Error("failed to deposit",
			"account_id", accountID,
			"error", err.Error(),
		)
		return nil, errors.NewStorageError("deposit", err)
	}

	s.logger.Info("deposit applied",
		"account_id", accountID,
		"amount", amount,
		"balance", account.Balance,
	)
	return account, nil
}

// Withdraw runs its check-then-decrement inside one serializable
// transaction with the account row locked, so two withdrawals against a
// balance sufficient for only one cannot both pass the check.
func (s *AccountServiceImpl) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Account, error) {
	if !amount.IsPositive() {
		s.logger.Warn("rejected withdrawal",
			"account_id", accountID,
			"amount", amount,
		)
		return nil, errors.NewValidationError("withdrawal amount must be positive")
	}

	var updated *models.Account
	err := s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
		if err != nil {
			if errors.IsNotFound(err) {
				return err
			}
			return errors.NewStorageError("get account for update", err)
		}

		if account.Balance.LessThan(amount) {
			return errors.ErrInsufficientFunds
		}

		updated, err = s.accountRepo.AddToBalanceTx(ctx, tx, accountID, amount.Neg())
		if err != nil {
			return errors.NewStorageError("update account balance", err)
		}
		return nil
	})

	if err != nil {
		switch {
		case errors.IsNotFound(err):
			s.logger.Warn("withdrawal from unknown account", "account_id", accountID)
		case errors.IsInsufficientFunds(err):
			s.logger.Warn("withdrawal exceeds balance",
				"account_id", accountID,
				"amount", amount,
			)
		default:
			s.logger.Error("failed to withdraw",
				"account_id", accountID,
				"error", err.Error(),
			)
		}
		return nil, err
	}

	s.logger.Info("withdrawal applied",
		"account_id", accountID,
		"amount", amount,
		"balance", updated.Balance,
	)
	return updated, nil
}

func (s *AccountServiceImpl) GetTransactions(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	if s.history != nil {
		if cached, ok := s.history.Get(ctx, historyKey(accountID)); ok {
			return *cached, nil
		}
	}

	transactions, err := s.transactionRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		s.logger.Error("failed to get transactions",
			"account_id", accountID,
			"error", err.Error(),
		)
		return nil, errors.NewStorageError("get transactions", err)
	}

	if s.history != nil {
		s.history.Set(ctx, historyKey(accountID), &transactions)
	}
	return transactions, nil
}
