// Package ledgerservice keeps transactions and their owner's net balance in step.
//
// Every mutation writes the transaction row and applies its balance delta inside one
// unit of work, so the net balance always equals the signed sum of the owner's
// transactions once the call returns.
package ledgerservice

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// DefaultAttempts is used when New is given a non-positive attempts count.
const DefaultAttempts = 3

// CSVHeader is the first record of every export.
var CSVHeader = []string{"id", "userId", "type", "amount", "note", "date"}

// Repo provides data access layer interface needed by ledger service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package ledgerservice
type Repo interface {
	ExecTx(ctx context.Context, fn func(domain.LedgerTx) error) error
	Get(ctx context.Context, id uuid.UUID) (domain.Transaction, error)
	List(ctx context.Context, ownerID string) ([]domain.Transaction, error)
	ListByKind(ctx context.Context, ownerID string, kind domain.Kind) ([]domain.Transaction, error)
	Balance(ctx context.Context, ownerID string) (decimal.Decimal, error)
	Snapshot(ctx context.Context, ownerID string) ([]domain.Transaction, error)
}

// Service facilitates ledger service layer logic.
type Service struct {
	repo     Repo
	attempts int
	backoff  time.Duration
}

// New return ledger service struct to manage transactions and balances.
func New(lr Repo, attempts int) *Service {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	return &Service{
		repo:     lr,
		attempts: attempts,
		backoff:  10 * time.Millisecond,
	}
}

// inTx runs fn in a unit of work and repeats it while the store reports a
// consistency failure.
func (s *Service) inTx(ctx context.Context, fn func(domain.LedgerTx) error) error {
	l := zerolog.Ctx(ctx)

	var err error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.repo.ExecTx(ctx, fn)
		if !errors.Is(err, domain.ErrConsistency) {
			return err
		}

		l.Warn().Err(err).Int("attempt", attempt).Msg("retrying ledger unit of work")

		if attempt == s.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}

	return err
}

// Add records a new transaction and applies its delta to the owner's balance.
func (s *Service) Add(ctx context.Context, arg domain.CreateTransactionParams) (domain.TransactionResult, error) {
	if err := arg.Validate(); err != nil {
		return domain.TransactionResult{}, err
	}

	var result domain.TransactionResult

	err := s.inTx(ctx, func(tx domain.LedgerTx) error {
		t, err := tx.Create(ctx, arg)
		if err != nil {
			return err
		}

		net, err := tx.ApplyDelta(ctx, arg.OwnerID, t.Delta())
		if err != nil {
			return err
		}

		result = domain.TransactionResult{Transaction: t, NetBalance: net}

		return nil
	})
	if err != nil {
		return domain.TransactionResult{}, err
	}

	return result, nil
}

// Edit replaces kind, amount and note of the owner's transaction and moves the
// balance by the difference between the new and the old contribution.
func (s *Service) Edit(ctx context.Context, arg domain.UpdateTransactionParams) (domain.TransactionResult, error) {
	if err := arg.Validate(); err != nil {
		return domain.TransactionResult{}, err
	}

	var result domain.TransactionResult

	err := s.inTx(ctx, func(tx domain.LedgerTx) error {
		old, err := tx.GetForUpdate(ctx, arg.ID, arg.OwnerID)
		if err != nil {
			return err
		}

		t, err := tx.Update(ctx, arg)
		if err != nil {
			return err
		}

		net, err := tx.ApplyDelta(ctx, arg.OwnerID, t.Delta().Sub(old.Delta()))
		if err != nil {
			return err
		}

		result = domain.TransactionResult{Transaction: t, NetBalance: net}

		return nil
	})
	if err != nil {
		return domain.TransactionResult{}, err
	}

	return result, nil
}

// Remove deletes the owner's transaction and reverses its contribution.
// It returns the resulting net balance.
func (s *Service) Remove(ctx context.Context, id uuid.UUID, ownerID string) (decimal.Decimal, error) {
	var net decimal.Decimal

	err := s.inTx(ctx, func(tx domain.LedgerTx) error {
		old, err := tx.GetForUpdate(ctx, id, ownerID)
		if err != nil {
			return err
		}

		if err := tx.Delete(ctx, id, ownerID); err != nil {
			return err
		}

		net, err = tx.ApplyDelta(ctx, ownerID, old.Delta().Neg())

		return err
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	return net, nil
}

// Get returns the owner's transaction. Transactions of other owners are reported as not found.
func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (domain.Transaction, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}

	if t.OwnerID != ownerID {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	return t, nil
}

// List returns the owner's transactions, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]domain.Transaction, error) {
	return s.repo.List(ctx, ownerID)
}

// ListByKind returns the owner's transactions of one kind, newest first.
func (s *Service) ListByKind(ctx context.Context, ownerID string, kind domain.Kind) ([]domain.Transaction, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}

	return s.repo.ListByKind(ctx, ownerID, kind)
}

// Balance returns the owner's net balance, zero if nothing was recorded yet.
func (s *Service) Balance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	return s.repo.Balance(ctx, ownerID)
}

// Export writes the owner's transactions as CSV, read from a single consistent snapshot.
func (s *Service) Export(ctx context.Context, ownerID string, w io.Writer) error {
	l := zerolog.Ctx(ctx)

	ts, err := s.repo.Snapshot(ctx, ownerID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	for _, t := range ts {
		record := []string{
			t.ID.String(),
			t.OwnerID,
			string(t.Kind),
			t.Amount.String(),
			t.Note,
			t.CreatedAt.UTC().Format(time.RFC3339),
		}

		if err := cw.Write(record); err != nil {
			l.Error().Err(err).Send()
			return errorspkg.ErrInternal
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	return nil
}
