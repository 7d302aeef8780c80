// Package helpers provides seeding and fixture helpers shared by tests.
package helpers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/ledgerrepo"
	"github.com/go-petr/pet-ledger/internal/userrepo"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/passpkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

// RandomUser returns a verified user with a random email and the plain password used for it.
func RandomUser(t *testing.T) (domain.User, string) {
	t.Helper()

	password := randompkg.String(10)

	hashedPassword, err := passpkg.Hash(password)
	if err != nil {
		t.Fatalf("passpkg.Hash(%v) returned error: %v", password, err)
	}

	user := domain.User{
		ID:             uuid.New(),
		Email:          randompkg.Email(),
		HashedPassword: hashedPassword,
		Name:           randompkg.Owner(),
		Phone:          randompkg.Digits(10),
		Preferences:    json.RawMessage(`{}`),
		IsVerified:     true,
		CreatedAt:      time.Now().UTC(),
	}

	return user, password
}

// RandomTransaction returns a transaction of the owner with random kind and amount.
func RandomTransaction(ownerID string) domain.Transaction {
	return domain.Transaction{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Kind:      domain.Kind(randompkg.Kind()),
		Amount:    randompkg.Amount(1, 1_000),
		Note:      randompkg.String(12),
		CreatedAt: time.Now().UTC(),
	}
}

// SeedUser creates a random verified User inside a test transaction.
func SeedUser(t *testing.T, tx dbpkg.SQLInterface) domain.User {
	t.Helper()

	hashedPassword, err := passpkg.Hash(randompkg.String(32))
	if err != nil {
		t.Fatalf("passpkg.Hash(randompkg.String(32)) returned error: %v", err)
	}

	arg := domain.CreateUserParams{
		Email:          randompkg.Email(),
		HashedPassword: hashedPassword,
		Name:           randompkg.String(10),
		Preferences:    json.RawMessage(`{}`),
	}

	userRepo := userrepo.NewRepoPGS(tx)

	user, err := userRepo.Upsert(context.Background(), arg)
	if err != nil {
		t.Fatalf("userRepo.Upsert(context.Background(), %+v) returned error: %v", arg, err)
	}

	user, err = userRepo.MarkVerified(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("userRepo.MarkVerified(context.Background(), %v) returned error: %v", user.ID, err)
	}

	return user
}

// SeedTransaction creates a transaction and applies its delta to the owner's balance
// inside a test transaction.
func SeedTransaction(t *testing.T, tx dbpkg.SQLInterface, ownerID string, kind domain.Kind, amount string) domain.Transaction {
	t.Helper()

	repo := ledgerrepo.NewTxRepoPGS(tx)

	arg := domain.CreateTransactionParams{
		OwnerID: ownerID,
		Kind:    kind,
		Amount:  randompkg.MustDecimal(amount),
		Note:    randompkg.String(12),
	}

	transaction, err := repo.Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("repo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	if _, err := repo.ApplyDelta(context.Background(), ownerID, transaction.Delta()); err != nil {
		t.Fatalf("repo.ApplyDelta(context.Background(), %v, %v) returned error: %v",
			ownerID, transaction.Delta(), err)
	}

	return transaction
}

// SeedTransactions creates count random transactions of the owner inside a test transaction.
func SeedTransactions(t *testing.T, tx dbpkg.SQLInterface, ownerID string, count int) []domain.Transaction {
	t.Helper()

	items := make([]domain.Transaction, count)

	for i := range items {
		items[i] = SeedTransaction(t, tx, ownerID, domain.Kind(randompkg.Kind()),
			randompkg.MoneyAmountBetween(1, 1_000))
	}

	return items
}
