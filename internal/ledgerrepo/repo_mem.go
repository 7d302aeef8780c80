package ledgerrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
)

type memRecord struct {
	t   domain.Transaction
	seq uint64
}

// RepoMem keeps the ledger in memory.
//
// Units of work are serialized by a single mutex and undone on error, which gives
// the same both-or-neither guarantee as RepoPGS without a database.
type RepoMem struct {
	mu       sync.Mutex
	records  map[uuid.UUID]memRecord
	balances map[string]decimal.Decimal
	seq      uint64
	now      func() time.Time
}

// NewRepoMem returns an empty RepoMem.
func NewRepoMem() *RepoMem {
	return &RepoMem{
		records:  make(map[uuid.UUID]memRecord),
		balances: make(map[string]decimal.Decimal),
		now:      time.Now,
	}
}

// ExecTx runs fn while holding the repo lock and reverts every change fn made
// if it returns an error.
func (r *RepoMem) ExecTx(ctx context.Context, fn func(domain.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{repo: r}

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}

	return nil
}

// Get returns the transaction with the given id.
func (r *RepoMem) Get(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	return rec.t, nil
}

func (r *RepoMem) filter(ownerID string, keep func(domain.Transaction) bool) []domain.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs := []memRecord{}

	for _, rec := range r.records {
		if rec.t.OwnerID == ownerID && keep(rec.t) {
			recs = append(recs, rec)
		}
	}

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].t.CreatedAt.Equal(recs[j].t.CreatedAt) {
			return recs[i].t.CreatedAt.After(recs[j].t.CreatedAt)
		}

		return recs[i].seq > recs[j].seq
	})

	items := make([]domain.Transaction, 0, len(recs))
	for _, rec := range recs {
		items = append(items, rec.t)
	}

	return items
}

// List returns all transactions of the owner, newest first.
func (r *RepoMem) List(ctx context.Context, ownerID string) ([]domain.Transaction, error) {
	return r.filter(ownerID, func(domain.Transaction) bool { return true }), nil
}

// ListByKind returns the owner's transactions of the given kind, newest first.
func (r *RepoMem) ListByKind(ctx context.Context, ownerID string, kind domain.Kind) ([]domain.Transaction, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}

	return r.filter(ownerID, func(t domain.Transaction) bool { return t.Kind == kind }), nil
}

// Snapshot returns all transactions of the owner. The lock makes the read consistent.
func (r *RepoMem) Snapshot(ctx context.Context, ownerID string) ([]domain.Transaction, error) {
	return r.List(ctx, ownerID)
}

// Balance returns the owner's net balance, zero when nothing was recorded yet.
func (r *RepoMem) Balance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	net, ok := r.balances[ownerID]
	if !ok {
		return decimal.Zero, nil
	}

	return net, nil
}

// memTx is the LedgerTx of RepoMem. The repo lock is held for its whole life.
type memTx struct {
	repo *RepoMem
	undo []func()
}

func (tx *memTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}

	tx.undo = nil
}

func (tx *memTx) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, err
	}

	if err := arg.Validate(); err != nil {
		return domain.Transaction{}, err
	}

	r := tx.repo
	r.seq++

	t := domain.Transaction{
		ID:        uuid.New(),
		OwnerID:   arg.OwnerID,
		Kind:      arg.Kind,
		Amount:    arg.Amount,
		Note:      arg.Note,
		CreatedAt: r.now(),
	}

	r.records[t.ID] = memRecord{t: t, seq: r.seq}
	tx.undo = append(tx.undo, func() { delete(r.records, t.ID) })

	return t, nil
}

func (tx *memTx) GetForUpdate(ctx context.Context, id uuid.UUID, ownerID string) (domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, err
	}

	rec, ok := tx.repo.records[id]
	if !ok || rec.t.OwnerID != ownerID {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	return rec.t, nil
}

func (tx *memTx) Update(ctx context.Context, arg domain.UpdateTransactionParams) (domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, err
	}

	if err := arg.Validate(); err != nil {
		return domain.Transaction{}, err
	}

	r := tx.repo

	old, ok := r.records[arg.ID]
	if !ok || old.t.OwnerID != arg.OwnerID {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	rec := old
	rec.t.Kind = arg.Kind
	rec.t.Amount = arg.Amount
	rec.t.Note = arg.Note

	r.records[arg.ID] = rec
	tx.undo = append(tx.undo, func() { r.records[arg.ID] = old })

	return rec.t, nil
}

func (tx *memTx) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r := tx.repo

	old, ok := r.records[id]
	if !ok || old.t.OwnerID != ownerID {
		return domain.ErrTransactionNotFound
	}

	delete(r.records, id)
	tx.undo = append(tx.undo, func() { r.records[id] = old })

	return nil
}

func (tx *memTx) ApplyDelta(ctx context.Context, ownerID string, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	r := tx.repo

	old, existed := r.balances[ownerID]
	net := old.Add(delta)
	r.balances[ownerID] = net

	tx.undo = append(tx.undo, func() {
		if existed {
			r.balances[ownerID] = old
		} else {
			delete(r.balances, ownerID)
		}
	})

	return net, nil
}
