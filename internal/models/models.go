package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money travels as JSON numbers ({"balance":1000}), not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Account is a named balance-holding entity. Balance is never negative:
// every mutation path enforces that inside the storage transaction.
type Account struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Transaction is the immutable record of a completed transfer. A row
// exists if and only if the matching debit and credit committed.
type Transaction struct {
	ID            string          `json:"id"`
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type CreateAccountRequest struct {
	Name           string          `json:"name"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type CreateTransferRequest struct {
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
