package ledgerservice

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/ledgerrepo"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

var errInjected = errors.New("injected failure")

func dec(s string) decimal.Decimal {
	return randompkg.MustDecimal(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

// requireInvariant checks that the stored balance equals the signed sum of the owner's rows.
func requireInvariant(t *testing.T, s *Service, owner string) {
	t.Helper()

	ctx := context.Background()

	ts, err := s.List(ctx, owner)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, tr := range ts {
		sum = sum.Add(tr.Delta())
	}

	net, err := s.Balance(ctx, owner)
	require.NoError(t, err)
	require.Truef(t, sum.Equal(net), "sum %s, balance %s", sum, net)
}

func add(t *testing.T, s *Service, owner string, kind domain.Kind, amount, note string) domain.TransactionResult {
	t.Helper()

	res, err := s.Add(context.Background(), domain.CreateTransactionParams{
		OwnerID: owner,
		Kind:    kind,
		Amount:  dec(amount),
		Note:    note,
	})
	require.NoError(t, err)

	return res
}

func TestAddIncomeAndExpense(t *testing.T) {
	s := New(ledgerrepo.NewRepoMem(), 0)
	owner := randompkg.Owner()

	res := add(t, s, owner, domain.KindIncoming, "100", "salary")
	requireDecimal(t, "100", res.NetBalance)

	res = add(t, s, owner, domain.KindExpense, "30", "lunch")
	requireDecimal(t, "70", res.NetBalance)
	require.Equal(t, "lunch", res.Transaction.Note)

	ts, err := s.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, ts, 2)

	requireInvariant(t, s, owner)
}

func TestEditReversesOldContribution(t *testing.T) {
	s := New(ledgerrepo.NewRepoMem(), 0)
	owner := randompkg.Owner()

	created := add(t, s, owner, domain.KindIncoming, "100", "")

	res, err := s.Edit(context.Background(), domain.UpdateTransactionParams{
		ID:      created.Transaction.ID,
		OwnerID: owner,
		Kind:    domain.KindExpense,
		Amount:  dec("40"),
	})
	require.NoError(t, err)
	requireDecimal(t, "-40", res.NetBalance)
	require.Equal(t, domain.KindExpense, res.Transaction.Kind)
	require.Equal(t, created.Transaction.CreatedAt, res.Transaction.CreatedAt)

	requireInvariant(t, s, owner)
}

func TestRemoveReversesContribution(t *testing.T) {
	s := New(ledgerrepo.NewRepoMem(), 0)
	owner := randompkg.Owner()

	created := add(t, s, owner, domain.KindIncoming, "50", "")

	net, err := s.Remove(context.Background(), created.Transaction.ID, owner)
	require.NoError(t, err)
	requireDecimal(t, "0", net)

	ts, err := s.List(context.Background(), owner)
	require.NoError(t, err)
	require.Empty(t, ts)

	_, err = s.Remove(context.Background(), created.Transaction.ID, owner)
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	requireInvariant(t, s, owner)
}

func TestConcurrentAdds(t *testing.T) {
	s := New(ledgerrepo.NewRepoMem(), 0)
	owner := randompkg.Owner()

	const n = 50

	var g errgroup.Group

	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := s.Add(context.Background(), domain.CreateTransactionParams{
				OwnerID: owner,
				Kind:    domain.KindIncoming,
				Amount:  dec("10"),
			})
			return err
		})
	}

	require.NoError(t, g.Wait())

	net, err := s.Balance(context.Background(), owner)
	require.NoError(t, err)
	requireDecimal(t, "500", net)

	requireInvariant(t, s, owner)
}

func TestConcurrentMixedMutations(t *testing.T) {
	s := New(ledgerrepo.NewRepoMem(), 0)
	owner := randompkg.Owner()

	seeded := make([]domain.Transaction, 20)
	for i := range seeded {
		seeded[i] = add(t, s, owner, domain.KindIncoming, "5", "").Transaction
	}

	var g errgroup.Group

	for i, tr := range seeded {
		i, tr := i, tr

		g.Go(func() error {
			var err error

			switch i % 3 {
			case 0:
				_, err = s.Remove(context.Background(), tr.ID, owner)
			case 1:
				_, err = s.Edit(context.Background(), domain.UpdateTransactionParams{
					ID:      tr.ID,
					OwnerID: owner,
					Kind:    domain.KindExpense,
					Amount:  dec("2.5"),
				})
			default:
				_, err = s.Add(context.Background(), domain.CreateTransactionParams{
					OwnerID: owner,
					Kind:    domain.KindExpense,
					Amount:  dec("1.25"),
				})
			}

			return err
		})
	}

	require.NoError(t, g.Wait())
	requireInvariant(t, s, owner)
}

// pausingRepo holds the first unit of work open, after its writes, until release is closed.
type pausingRepo struct {
	*ledgerrepo.RepoMem
	once    sync.Once
	inside  chan struct{}
	release chan struct{}
}

func newPausingRepo() *pausingRepo {
	return &pausingRepo{
		RepoMem: ledgerrepo.NewRepoMem(),
		inside:  make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *pausingRepo) ExecTx(ctx context.Context, fn func(domain.LedgerTx) error) error {
	return r.RepoMem.ExecTx(ctx, func(tx domain.LedgerTx) error {
		if err := fn(tx); err != nil {
			return err
		}

		r.once.Do(func() {
			close(r.inside)
			<-r.release
		})

		return nil
	})
}

func TestConcurrentEditAndRemove(t *testing.T) {
	testCases := []struct {
		name        string
		removeFirst bool
		wantEditErr error
	}{
		{
			name:        "Remove commits first",
			removeFirst: true,
			wantEditErr: domain.ErrTransactionNotFound,
		},
		{
			name:        "Edit commits first",
			removeFirst: false,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			repo := newPausingRepo()
			s := New(repo, 0)
			owner := randompkg.Owner()

			// Seeding runs through the plain repo so the pause is left for the race.
			seeder := New(repo.RepoMem, 0)
			add(t, seeder, owner, domain.KindIncoming, "30", "kept")
			target := add(t, seeder, owner, domain.KindIncoming, "100", "raced").Transaction

			ctx := context.Background()

			edit := func() error {
				_, err := s.Edit(ctx, domain.UpdateTransactionParams{
					ID:      target.ID,
					OwnerID: owner,
					Kind:    domain.KindExpense,
					Amount:  dec("40"),
				})
				return err
			}

			remove := func() error {
				_, err := s.Remove(ctx, target.ID, owner)
				return err
			}

			first, second := edit, remove
			if tc.removeFirst {
				first, second = remove, edit
			}

			firstErr := make(chan error, 1)
			secondErr := make(chan error, 1)

			go func() { firstErr <- first() }()

			<-repo.inside

			go func() { secondErr <- second() }()

			// Give the second operation time to queue behind the open unit.
			time.Sleep(10 * time.Millisecond)
			close(repo.release)

			editErr, removeErr := <-secondErr, <-firstErr
			if !tc.removeFirst {
				editErr, removeErr = removeErr, editErr
			}

			require.NoError(t, removeErr)

			if tc.wantEditErr != nil {
				require.ErrorIs(t, editErr, tc.wantEditErr)
			} else {
				require.NoError(t, editErr)
			}

			_, err := s.Get(ctx, owner, target.ID)
			require.ErrorIs(t, err, domain.ErrTransactionNotFound)

			net, err := s.Balance(ctx, owner)
			require.NoError(t, err)
			requireDecimal(t, "30", net)

			requireInvariant(t, s, owner)
		})
	}
}

func TestRacingEditAndRemove(t *testing.T) {
	s := New(ledgerrepo.NewRepoMem(), 0)
	owner := randompkg.Owner()
	ctx := context.Background()

	add(t, s, owner, domain.KindIncoming, "30", "kept")

	for i := 0; i < 50; i++ {
		target := add(t, s, owner, domain.KindIncoming, "100", "").Transaction

		var (
			g       errgroup.Group
			editErr error
		)

		g.Go(func() error {
			_, editErr = s.Edit(ctx, domain.UpdateTransactionParams{
				ID:      target.ID,
				OwnerID: owner,
				Kind:    domain.KindExpense,
				Amount:  dec("40"),
			})
			return nil
		})

		g.Go(func() error {
			_, err := s.Remove(ctx, target.ID, owner)
			return err
		})

		require.NoError(t, g.Wait())

		if editErr != nil {
			require.ErrorIs(t, editErr, domain.ErrTransactionNotFound)
		}

		_, err := s.Get(ctx, owner, target.ID)
		require.ErrorIs(t, err, domain.ErrTransactionNotFound)
	}

	net, err := s.Balance(ctx, owner)
	require.NoError(t, err)
	requireDecimal(t, "30", net)

	requireInvariant(t, s, owner)
}

func TestOwnershipIsolation(t *testing.T) {
	s := New(ledgerrepo.NewRepoMem(), 0)
	ctx := context.Background()

	owner := randompkg.Owner()
	other := owner + "-other"

	foreign := add(t, s, other, domain.KindIncoming, "100", "")

	_, err := s.Edit(ctx, domain.UpdateTransactionParams{
		ID:      foreign.Transaction.ID,
		OwnerID: owner,
		Kind:    domain.KindExpense,
		Amount:  dec("40"),
	})
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	_, err = s.Remove(ctx, foreign.Transaction.ID, owner)
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	_, err = s.Get(ctx, owner, foreign.Transaction.ID)
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	net, err := s.Balance(ctx, other)
	require.NoError(t, err)
	requireDecimal(t, "100", net)

	net, err = s.Balance(ctx, owner)
	require.NoError(t, err)
	requireDecimal(t, "0", net)
}

// faultyRepo fails ApplyDelta inside every unit of work after the row write succeeded.
type faultyRepo struct {
	*ledgerrepo.RepoMem
}

type faultyTx struct {
	domain.LedgerTx
}

func (faultyTx) ApplyDelta(context.Context, string, decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, errInjected
}

func (r faultyRepo) ExecTx(ctx context.Context, fn func(domain.LedgerTx) error) error {
	return r.RepoMem.ExecTx(ctx, func(tx domain.LedgerTx) error {
		return fn(faultyTx{tx})
	})
}

func TestAtomicityUnderFailure(t *testing.T) {
	mem := ledgerrepo.NewRepoMem()
	healthy := New(mem, 0)
	faulty := New(faultyRepo{mem}, 0)

	ctx := context.Background()
	owner := randompkg.Owner()

	created := add(t, healthy, owner, domain.KindIncoming, "100", "rent")

	_, err := faulty.Add(ctx, domain.CreateTransactionParams{OwnerID: owner, Kind: domain.KindExpense, Amount: dec("10")})
	require.ErrorIs(t, err, errInjected)

	_, err = faulty.Edit(ctx, domain.UpdateTransactionParams{
		ID:      created.Transaction.ID,
		OwnerID: owner,
		Kind:    domain.KindExpense,
		Amount:  dec("1"),
	})
	require.ErrorIs(t, err, errInjected)

	_, err = faulty.Remove(ctx, created.Transaction.ID, owner)
	require.ErrorIs(t, err, errInjected)

	ts, err := healthy.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	require.Equal(t, domain.KindIncoming, ts[0].Kind)
	requireDecimal(t, "100", ts[0].Amount)
	require.Equal(t, "rent", ts[0].Note)

	requireInvariant(t, healthy, owner)
}

func TestReadsAreIdempotent(t *testing.T) {
	s := New(ledgerrepo.NewRepoMem(), 0)
	ctx := context.Background()
	owner := randompkg.Owner()

	add(t, s, owner, domain.KindIncoming, "12.5", "")
	add(t, s, owner, domain.KindExpense, "2.5", "")

	first, err := s.List(ctx, owner)
	require.NoError(t, err)

	firstNet, err := s.Balance(ctx, owner)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ts, err := s.List(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, first, ts)

		net, err := s.Balance(ctx, owner)
		require.NoError(t, err)
		require.True(t, firstNet.Equal(net))
	}

	incoming, err := s.ListByKind(ctx, owner, domain.KindIncoming)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
}

func TestExport(t *testing.T) {
	s := New(ledgerrepo.NewRepoMem(), 0)
	owner := randompkg.Owner()

	first := add(t, s, owner, domain.KindIncoming, "100", "salary").Transaction
	second := add(t, s, owner, domain.KindExpense, "30.5", "lunch, with \"friends\"").Transaction
	add(t, s, owner+"-other", domain.KindIncoming, "1", "")

	var buf bytes.Buffer
	require.NoError(t, s.Export(context.Background(), owner, &buf))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, CSVHeader, records[0])

	ids := map[string][]string{}
	for _, r := range records[1:] {
		require.Equal(t, owner, r[1])
		ids[r[0]] = r
	}

	require.Contains(t, ids, first.ID.String())
	require.Contains(t, ids, second.ID.String())

	got := ids[second.ID.String()]
	require.Equal(t, "expense", got[2])
	require.Equal(t, "30.5", got[3])
	require.Equal(t, "lunch, with \"friends\"", got[4])
	require.Equal(t, second.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"), got[5])
}

func TestExportEmpty(t *testing.T) {
	s := New(ledgerrepo.NewRepoMem(), 0)

	var buf bytes.Buffer
	require.NoError(t, s.Export(context.Background(), uuid.NewString(), &buf))
	require.Equal(t, "id,userId,type,amount,note,date\n", buf.String())
}
