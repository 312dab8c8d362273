package events

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	err := p.Publish(context.Background(), TransferCompleted{
		TransactionID: "txn-1",
		FromAccountID: "acc-1",
		ToAccountID:   "acc-2",
		Amount:        decimal.NewFromInt(500),
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("NopPublisher.Publish: %v", err)
	}
}

func TestTransferCompletedWireFormat(t *testing.T) {
	event := TransferCompleted{
		TransactionID: "txn-1",
		FromAccountID: "acc-1",
		ToAccountID:   "acc-2",
		Amount:        decimal.NewFromInt(500),
		OccurredAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"transactionId":"txn-1"`, `"fromAccountId":"acc-1"`, `"toAccountId":"acc-2"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("body=%s, want %s", data, field)
		}
	}
}
