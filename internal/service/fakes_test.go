package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	lederrors "github.com/chenwei-lan/ledger-service/internal/errors"
	"github.com/chenwei-lan/ledger-service/internal/events"
	"github.com/chenwei-lan/ledger-service/internal/models"
)

// fakeStore backs the service tests with an in-memory account and
// transaction table. RunInTx serialises units of work behind one mutex
// and restores a snapshot when the unit fails, mirroring the
// commit-or-rollback contract of the real runner. Methods taking a
// *sql.Tx are only ever called inside RunInTx and rely on its lock.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	txns     []*models.Transaction

	failTransactionCreate bool

	clock int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[string]*models.Account)}
}

func (f *fakeStore) now() time.Time {
	f.clock++
	return time.Unix(1700000000+f.clock, 0).UTC()
}

func (f *fakeStore) addAccount(name string, balance decimal.Decimal) *models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	account := &models.Account{
		ID:        uuid.New().String(),
		Name:      name,
		Balance:   balance,
		CreatedAt: f.now(),
		UpdatedAt: f.now(),
	}
	f.accounts[account.ID] = account
	return copyAccount(account)
}

func (f *fakeStore) balance(id string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[id].Balance
}

func copyAccount(a *models.Account) *models.Account {
	c := *a
	return &c
}

// ---- TxRunner ----

func (f *fakeStore) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := make(map[string]models.Account, len(f.accounts))
	for id, account := range f.accounts {
		snapshot[id] = *account
	}
	snapTxns := len(f.txns)

	if err := fn(nil); err != nil {
		f.accounts = make(map[string]*models.Account, len(snapshot))
		for id, account := range snapshot {
			a := account
			f.accounts[id] = &a
		}
		f.txns = f.txns[:snapTxns]
		return err
	}
	return nil
}

// ---- AccountRepository ----

func (f *fakeStore) Create(ctx context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.CreatedAt = f.now()
	account.UpdatedAt = account.CreatedAt
	f.accounts[account.ID] = copyAccount(account)
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return nil, lederrors.ErrAccountNotFound
	}
	return copyAccount(account), nil
}

func (f *fakeStore) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, lederrors.ErrAccountNotFound
	}
	return copyAccount(account), nil
}

func (f *fakeStore) List(ctx context.Context) ([]*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var accounts []*models.Account
	for _, account := range f.accounts {
		accounts = append(accounts, copyAccount(account))
	}
	return accounts, nil
}

func (f *fakeStore) AddToBalance(ctx context.Context, id string, delta decimal.Decimal) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applyDelta(id, delta)
}

func (f *fakeStore) AddToBalanceTx(ctx context.Context, tx *sql.Tx, id string, delta decimal.Decimal) (*models.Account, error) {
	return f.applyDelta(id, delta)
}

func (f *fakeStore) applyDelta(id string, delta decimal.Decimal) (*models.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, lederrors.ErrAccountNotFound
	}
	account.Balance = account.Balance.Add(delta)
	account.UpdatedAt = f.now()
	return copyAccount(account), nil
}

func (f *fakeStore) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = make(map[string]*models.Account)
	return nil
}

// ---- TransactionRepository ----

func (f *fakeStore) CreateTransaction(ctx context.Context, tx *sql.Tx, transaction *models.Transaction) error {
	if f.failTransactionCreate {
		return errors.New("insert failed")
	}
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = f.now()
	}
	c := *transaction
	f.txns = append(f.txns, &c)
	return nil
}

func (f *fakeStore) GetByAccountID(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var transactions []*models.Transaction
	for _, transaction := range f.txns {
		if transaction.FromAccountID == accountID || transaction.ToAccountID == accountID {
			c := *transaction
			transactions = append(transactions, &c)
		}
	}
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt.After(transactions[j].CreatedAt)
	})
	return transactions, nil
}

func (f *fakeStore) DeleteAllTransactions(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txns = nil
	return nil
}

// transactionRepoAdapter exposes the fakeStore under the
// TransactionRepository method set, whose Create/DeleteAll names clash
// with the account side.
type transactionRepoAdapter struct {
	store *fakeStore
}

func (a transactionRepoAdapter) Create(ctx context.Context, tx *sql.Tx, transaction *models.Transaction) error {
	return a.store.CreateTransaction(ctx, tx, transaction)
}

func (a transactionRepoAdapter) GetByAccountID(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	return a.store.GetByAccountID(ctx, accountID)
}

func (a transactionRepoAdapter) DeleteAll(ctx context.Context) error {
	return a.store.DeleteAllTransactions(ctx)
}

// ---- events.Publisher ----

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TransferCompleted
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.TransferCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) published() []events.TransferCompleted {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.TransferCompleted(nil), p.events...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAccountService(store *fakeStore) *AccountServiceImpl {
	return NewAccountService(store, transactionRepoAdapter{store}, store, nil, testLogger())
}

func newTestTransferService(store *fakeStore, publisher events.Publisher) *TransferServiceImpl {
	return NewTransferService(store, store, transactionRepoAdapter{store}, publisher, nil, testLogger())
}
