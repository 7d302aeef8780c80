// Package ledgerrepo manages repository layer of ledger transactions and balances.
package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// RepoPGS facilitates ledger repository layer logic on PostgreSQL.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewRepoPGS returns ledger RepoPGS with connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

// NewTxRepoPGS returns ledger RepoPGS bound to an already started transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// mapError translates a driver error into a domain or application error.
func mapError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrTransactionNotFound
	case dbpkg.IsRetryable(err):
		return domain.ErrConsistency
	case dbpkg.IsUnavailable(err):
		return errorspkg.ErrUnavailable
	case dbpkg.SQLState(err) == dbpkg.CodeNumericOutOfRange:
		return domain.ErrInvalidAmount
	}

	switch dbpkg.Constraint(err) {
	case "transactions_kind_check":
		return domain.ErrInvalidKind
	case "transactions_amount_check":
		return domain.ErrInvalidAmount
	}

	return errorspkg.ErrInternal
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var t domain.Transaction

	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Kind,
		&t.Amount,
		&t.Note,
		&t.CreatedAt,
	)

	return t, err
}

const createQuery = `
INSERT INTO
    transactions (owner_id, kind, amount, note)
VALUES
    ($1, $2, $3, $4)
RETURNING id, owner_id, kind, amount, note, created_at
`

// Create stores the transaction and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	if err := arg.Validate(); err != nil {
		return domain.Transaction{}, err
	}

	row := r.db.QueryRowContext(ctx, createQuery, arg.OwnerID, arg.Kind, arg.Amount, arg.Note)

	t, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)
		return domain.Transaction{}, mapError(err)
	}

	return t, nil
}

const getQuery = `
SELECT
    id, owner_id, kind, amount, note, created_at
FROM transactions
WHERE id = $1
`

// Get returns the transaction with the given id.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.Info().Err(err).Str("transaction_id", id.String()).Send()
		} else {
			l.Error().Err(err).Send()
		}

		return domain.Transaction{}, mapError(err)
	}

	return t, nil
}

const getForUpdateQuery = `
SELECT
    id, owner_id, kind, amount, note, created_at
FROM transactions
WHERE id = $1 AND owner_id = $2
FOR UPDATE
`

// GetForUpdate returns the owner's transaction and locks its row until the enclosing
// transaction ends.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id uuid.UUID, ownerID string) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, getForUpdateQuery, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.Info().Err(err).Str("transaction_id", id.String()).Send()
		} else {
			l.Error().Err(err).Send()
		}

		return domain.Transaction{}, mapError(err)
	}

	return t, nil
}

const listQuery = `
SELECT
    id, owner_id, kind, amount, note, created_at
FROM transactions
WHERE owner_id = $1
ORDER BY created_at DESC, id
`

const listByKindQuery = `
SELECT
    id, owner_id, kind, amount, note, created_at
FROM transactions
WHERE owner_id = $1 AND kind = $2
ORDER BY created_at DESC, id
`

func (r *RepoPGS) list(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, mapError(err)
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, mapError(err)
		}

		items = append(items, t)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, mapError(err)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, mapError(err)
	}

	return items, nil
}

// List returns all transactions of the owner, newest first.
func (r *RepoPGS) List(ctx context.Context, ownerID string) ([]domain.Transaction, error) {
	return r.list(ctx, listQuery, ownerID)
}

// ListByKind returns the owner's transactions of the given kind, newest first.
func (r *RepoPGS) ListByKind(ctx context.Context, ownerID string, kind domain.Kind) ([]domain.Transaction, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}

	return r.list(ctx, listByKindQuery, ownerID, kind)
}

const updateQuery = `
UPDATE transactions
SET kind = $3, amount = $4, note = $5
WHERE id = $1 AND owner_id = $2
RETURNING id, owner_id, kind, amount, note, created_at
`

// Update changes kind, amount and note of the owner's transaction.
func (r *RepoPGS) Update(ctx context.Context, arg domain.UpdateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	if err := arg.Validate(); err != nil {
		return domain.Transaction{}, err
	}

	row := r.db.QueryRowContext(ctx, updateQuery, arg.ID, arg.OwnerID, arg.Kind, arg.Amount, arg.Note)

	t, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Msgf("Update(ctx, %+v)", arg)
		return domain.Transaction{}, mapError(err)
	}

	return t, nil
}

const deleteQuery = `
DELETE FROM transactions
WHERE id = $1 AND owner_id = $2
`

// Delete removes the owner's transaction.
func (r *RepoPGS) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, deleteQuery, id, ownerID)
	if err != nil {
		l.Error().Err(err).Send()
		return mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return mapError(err)
	}

	if n == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

const balanceQuery = `
SELECT net_amount
FROM balances
WHERE owner_id = $1
`

// Balance returns the owner's net balance, zero when nothing was recorded yet.
func (r *RepoPGS) Balance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	l := zerolog.Ctx(ctx)

	var net decimal.Decimal

	err := r.db.QueryRowContext(ctx, balanceQuery, ownerID).Scan(&net)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}

		l.Error().Err(err).Send()

		return decimal.Zero, mapError(err)
	}

	return net, nil
}

const applyDeltaQuery = `
INSERT INTO
    balances (owner_id, net_amount)
VALUES
    ($1, $2)
ON CONFLICT (owner_id) DO UPDATE
SET net_amount = balances.net_amount + EXCLUDED.net_amount,
    updated_at = now()
RETURNING net_amount
`

// ApplyDelta atomically adds delta to the owner's net balance and returns the new value.
//
// The balance row is created on first use.
func (r *RepoPGS) ApplyDelta(ctx context.Context, ownerID string, delta decimal.Decimal) (decimal.Decimal, error) {
	l := zerolog.Ctx(ctx)

	var net decimal.Decimal

	err := r.db.QueryRowContext(ctx, applyDeltaQuery, ownerID, delta).Scan(&net)
	if err != nil {
		l.Error().Err(err).Msgf("ApplyDelta(ctx, %v, %v)", ownerID, delta)
		return decimal.Zero, mapError(err)
	}

	return net, nil
}

// ExecTx runs fn inside a single database transaction.
//
// The transaction is committed only if fn returns nil.
func (r *RepoPGS) ExecTx(ctx context.Context, fn func(domain.LedgerTx) error) error {
	l := zerolog.Ctx(ctx)

	if r.conn == nil {
		l.Error().Msg("ExecTx called on a transaction bound repo")
		return errorspkg.ErrInternal
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return mapError(err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	if err := fn(NewTxRepoPGS(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return mapError(err)
	}

	return nil
}

// Snapshot returns all transactions of the owner as seen by a single read-only
// repeatable read transaction.
func (r *RepoPGS) Snapshot(ctx context.Context, ownerID string) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	if r.conn == nil {
		return r.List(ctx, ownerID)
	}

	tx, err := r.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		l.Error().Err(err).Send()
		return nil, mapError(err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	items, err := NewTxRepoPGS(tx).List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return nil, mapError(err)
	}

	return items, nil
}
