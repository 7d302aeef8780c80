// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidKind indicates that the transaction type is neither incoming nor expense.
	ErrInvalidKind = errors.New("invalid transaction type")
	// ErrInvalidAmount indicates a missing or negative amount, or one the ledger cannot store.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrTransactionNotFound indicates that the transaction does not exist or belongs to another owner.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrConsistency indicates that the transaction and the balance could not be committed together.
	ErrConsistency = errors.New("ledger consistency failure")
)

// Kind is the direction of a transaction.
type Kind string

// Transaction kinds.
const (
	KindIncoming Kind = "incoming"
	KindExpense  Kind = "expense"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindIncoming || k == KindExpense
}

// ParseKind converts s into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", ErrInvalidKind
	}

	return k, nil
}

// AmountScale is the number of decimal places kept by the amount column, numeric(20,4).
const AmountScale = 4

// MaxAmount is the first amount the ledger cannot store.
var MaxAmount = decimal.New(1, 20-AmountScale)

// ValidateAmount checks that amount can be stored in the ledger without rounding.
func ValidateAmount(amount decimal.Decimal) error {
	switch {
	case amount.IsNegative():
		return ErrInvalidAmount
	case amount.GreaterThanOrEqual(MaxAmount):
		return ErrInvalidAmount
	case !amount.Round(AmountScale).Equal(amount):
		return ErrInvalidAmount
	}

	return nil
}

// Delta returns the signed contribution of amount of kind k to the net balance.
func (k Kind) Delta(amount decimal.Decimal) decimal.Decimal {
	if k == KindExpense {
		return amount.Neg()
	}

	return amount
}

// Transaction holds a single ledger record.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   string          `json:"userId"`
	Kind      Kind            `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note"`
	CreatedAt time.Time       `json:"date"`
}

// Delta returns the signed contribution of t to its owner's balance.
func (t Transaction) Delta() decimal.Decimal {
	return t.Kind.Delta(t.Amount)
}

// CreateTransactionParams is the input data to add a transaction.
type CreateTransactionParams struct {
	OwnerID string
	Kind    Kind
	Amount  decimal.Decimal
	Note    string
}

// Validate checks kind and amount.
func (p CreateTransactionParams) Validate() error {
	if !p.Kind.Valid() {
		return ErrInvalidKind
	}

	return ValidateAmount(p.Amount)
}

// UpdateTransactionParams is the input data to edit a transaction.
type UpdateTransactionParams struct {
	ID      uuid.UUID
	OwnerID string
	Kind    Kind
	Amount  decimal.Decimal
	Note    string
}

// Validate checks kind and amount.
func (p UpdateTransactionParams) Validate() error {
	if !p.Kind.Valid() {
		return ErrInvalidKind
	}

	return ValidateAmount(p.Amount)
}

// TransactionResult is the result of a ledger mutation.
type TransactionResult struct {
	Transaction Transaction     `json:"transaction"`
	NetBalance  decimal.Decimal `json:"netBalance"`
}
