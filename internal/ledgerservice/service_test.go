package ledgerservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

func newMockService(t *testing.T) (*Service, *MockRepo) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)

	s := New(repo, 3)
	s.backoff = 0

	return s, repo
}

func TestAddValidation(t *testing.T) {
	owner := randompkg.Owner()

	testCases := []struct {
		name    string
		arg     domain.CreateTransactionParams
		wantErr error
	}{
		{
			name:    "Unknown kind",
			arg:     domain.CreateTransactionParams{OwnerID: owner, Kind: "refund", Amount: decimal.NewFromInt(1)},
			wantErr: domain.ErrInvalidKind,
		},
		{
			name:    "Empty kind",
			arg:     domain.CreateTransactionParams{OwnerID: owner, Amount: decimal.NewFromInt(1)},
			wantErr: domain.ErrInvalidKind,
		},
		{
			name:    "Negative amount",
			arg:     domain.CreateTransactionParams{OwnerID: owner, Kind: domain.KindExpense, Amount: decimal.NewFromInt(-5)},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "Amount too large",
			arg:     domain.CreateTransactionParams{OwnerID: owner, Kind: domain.KindIncoming, Amount: decimal.RequireFromString("100000000000000000000")},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "Amount at column limit",
			arg:     domain.CreateTransactionParams{OwnerID: owner, Kind: domain.KindIncoming, Amount: decimal.New(1, 16)},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "Too many decimal places",
			arg:     domain.CreateTransactionParams{OwnerID: owner, Kind: domain.KindExpense, Amount: decimal.RequireFromString("0.00005")},
			wantErr: domain.ErrInvalidAmount,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			s, repo := newMockService(t)
			repo.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)

			res, err := s.Add(context.Background(), tc.arg)
			require.ErrorIs(t, err, tc.wantErr)
			require.Empty(t, res)
		})
	}
}

func TestEditValidation(t *testing.T) {
	testCases := []struct {
		name    string
		kind    domain.Kind
		amount  decimal.Decimal
		wantErr error
	}{
		{
			name:    "Unknown kind",
			kind:    "refund",
			amount:  decimal.NewFromInt(1),
			wantErr: domain.ErrInvalidKind,
		},
		{
			name:    "Negative amount",
			kind:    domain.KindIncoming,
			amount:  decimal.NewFromInt(-1),
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "Amount too large",
			kind:    domain.KindIncoming,
			amount:  decimal.RequireFromString("12345678901234567.5"),
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "Too many decimal places",
			kind:    domain.KindExpense,
			amount:  decimal.RequireFromString("10.12345"),
			wantErr: domain.ErrInvalidAmount,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			s, repo := newMockService(t)
			repo.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)

			_, err := s.Edit(context.Background(), domain.UpdateTransactionParams{
				ID:      uuid.New(),
				OwnerID: randompkg.Owner(),
				Kind:    tc.kind,
				Amount:  tc.amount,
			})
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRetry(t *testing.T) {
	arg := domain.CreateTransactionParams{
		OwnerID: randompkg.Owner(),
		Kind:    domain.KindIncoming,
		Amount:  decimal.NewFromInt(10),
	}

	testCases := []struct {
		name       string
		buildStubs func(repo *MockRepo)
		wantErr    error
	}{
		{
			name: "Succeeds after a consistency failure",
			buildStubs: func(repo *MockRepo) {
				gomock.InOrder(
					repo.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(1).Return(domain.ErrConsistency),
					repo.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(1).Return(nil),
				)
			},
		},
		{
			name: "Gives up after all attempts",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(3).Return(domain.ErrConsistency)
			},
			wantErr: domain.ErrConsistency,
		},
		{
			name: "Unavailable is not retried",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(1).Return(errorspkg.ErrUnavailable)
			},
			wantErr: errorspkg.ErrUnavailable,
		},
		{
			name: "Internal is not retried",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(1).Return(errorspkg.ErrInternal)
			},
			wantErr: errorspkg.ErrInternal,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			s, repo := newMockService(t)
			tc.buildStubs(repo)

			_, err := s.Add(context.Background(), arg)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	s, repo := newMockService(t)
	s.backoff = time.Minute

	ctx, cancel := context.WithCancel(context.Background())

	repo.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(1).DoAndReturn(
		func(context.Context, func(domain.LedgerTx) error) error {
			cancel()
			return domain.ErrConsistency
		})

	_, err := s.Remove(ctx, uuid.New(), randompkg.Owner())
	require.ErrorIs(t, err, context.Canceled)
}

func TestGet(t *testing.T) {
	owner := randompkg.Owner()
	stored := domain.Transaction{
		ID:      uuid.New(),
		OwnerID: owner,
		Kind:    domain.KindExpense,
		Amount:  decimal.NewFromInt(3),
	}

	testCases := []struct {
		name       string
		caller     string
		buildStubs func(repo *MockRepo)
		wantErr    error
	}{
		{
			name:   "OK",
			caller: owner,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), stored.ID).Times(1).Return(stored, nil)
			},
		},
		{
			name:   "Other owner",
			caller: owner + "x",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), stored.ID).Times(1).Return(stored, nil)
			},
			wantErr: domain.ErrTransactionNotFound,
		},
		{
			name:   "Missing",
			caller: owner,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), stored.ID).Times(1).Return(domain.Transaction{}, domain.ErrTransactionNotFound)
			},
			wantErr: domain.ErrTransactionNotFound,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			s, repo := newMockService(t)
			tc.buildStubs(repo)

			got, err := s.Get(context.Background(), tc.caller, stored.ID)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Empty(t, got)
				return
			}

			require.NoError(t, err)
			require.Equal(t, stored.ID, got.ID)
		})
	}
}

func TestListByKindInvalid(t *testing.T) {
	s, repo := newMockService(t)
	repo.EXPECT().ListByKind(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := s.ListByKind(context.Background(), randompkg.Owner(), "transfer")
	require.True(t, errors.Is(err, domain.ErrInvalidKind))
}

func TestExportSnapshotError(t *testing.T) {
	s, repo := newMockService(t)
	repo.EXPECT().Snapshot(gomock.Any(), gomock.Any()).Times(1).Return(nil, errorspkg.ErrUnavailable)

	err := s.Export(context.Background(), randompkg.Owner(), nil)
	require.ErrorIs(t, err, errorspkg.ErrUnavailable)
}
