package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerTx is the set of writes that run inside one unit of work.
//
// Everything done through a LedgerTx is committed together or not at all.
type LedgerTx interface {
	Create(ctx context.Context, arg CreateTransactionParams) (Transaction, error)
	GetForUpdate(ctx context.Context, id uuid.UUID, ownerID string) (Transaction, error)
	Update(ctx context.Context, arg UpdateTransactionParams) (Transaction, error)
	Delete(ctx context.Context, id uuid.UUID, ownerID string) error
	ApplyDelta(ctx context.Context, ownerID string, delta decimal.Decimal) (decimal.Decimal, error)
}
