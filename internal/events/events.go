package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TransferCompleted is emitted after a transfer commits. Consumers see
// it at least zero times: publishing is best effort and never rolls the
// transfer back.
type TransferCompleted struct {
	TransactionID string          `json:"transactionId"`
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, event TransferCompleted) error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event TransferCompleted) error {
	return nil
}
