//go:build integration

package sessionrepo_test

import (
	"context"
	"database/sql"
	"log"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/integrationtest"
	"github.com/go-petr/pet-ledger/internal/integrationtest/helpers"
	"github.com/go-petr/pet-ledger/internal/sessionrepo"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

var (
	dbDriver string
	dbSource string
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	dbDriver = config.DBDriver
	dbSource = config.DBSource

	os.Exit(m.Run())
}

func SeedSession(t *testing.T, tx *sql.Tx, userID uuid.UUID) domain.Session {
	t.Helper()

	arg := domain.CreateSessionParams{
		ID:           uuid.New(),
		UserID:       userID,
		RefreshToken: randompkg.String(10),
		UserAgent:    randompkg.String(10),
		ClientIP:     randompkg.String(10),
		ExpiresAt:    time.Now().Truncate(time.Second).UTC(),
	}

	sessionRepo := sessionrepo.NewRepoPGS(tx)

	session, err := sessionRepo.Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("sessionRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return session
}

func TestCreate(t *testing.T) {
	testCases := []struct {
		name        string
		wantSession func(t *testing.T, tx *sql.Tx) domain.Session
		wantErr     error
	}{
		{
			name: "OK",
			wantSession: func(t *testing.T, tx *sql.Tx) domain.Session {
				user := helpers.SeedUser(t, tx)
				return domain.Session{
					ID:           uuid.New(),
					UserID:       user.ID,
					RefreshToken: randompkg.String(10),
					UserAgent:    randompkg.String(10),
					ClientIP:     randompkg.String(10),
					ExpiresAt:    time.Now().Truncate(time.Second).UTC(),
					CreatedAt:    time.Now().Truncate(time.Second).UTC(),
				}
			},
		},
		{
			name: "ErrUserNotFound",
			wantSession: func(t *testing.T, tx *sql.Tx) domain.Session {
				return domain.Session{
					ID:           uuid.New(),
					UserID:       uuid.New(),
					RefreshToken: randompkg.String(10),
					UserAgent:    randompkg.String(10),
					ClientIP:     randompkg.String(10),
					ExpiresAt:    time.Now().Truncate(time.Second).UTC(),
					CreatedAt:    time.Now().Truncate(time.Second).UTC(),
				}
			},
			wantErr: domain.ErrUserNotFound,
		},
		{
			name: "PubKeyDublicate",
			wantSession: func(t *testing.T, tx *sql.Tx) domain.Session {
				user := helpers.SeedUser(t, tx)
				s := SeedSession(t, tx, user.ID)
				return domain.Session{
					ID:           s.ID,
					UserID:       uuid.New(),
					RefreshToken: randompkg.String(10),
					UserAgent:    randompkg.String(10),
					ClientIP:     randompkg.String(10),
					ExpiresAt:    time.Now().Truncate(time.Second).UTC(),
					CreatedAt:    time.Now().Truncate(time.Second).UTC(),
				}
			},
			wantErr: errorspkg.ErrInternal,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tx := integrationtest.SetupTX(t, dbDriver, dbSource)

			want := tc.wantSession(t, tx)

			sessionRepo := sessionrepo.NewRepoPGS(tx)

			arg := domain.CreateSessionParams{
				ID:           want.ID,
				UserID:       want.UserID,
				RefreshToken: want.RefreshToken,
				UserAgent:    want.UserAgent,
				ClientIP:     want.ClientIP,
				ExpiresAt:    want.ExpiresAt,
			}

			got, err := sessionRepo.Create(context.Background(), arg)
			if err != nil {
				if errors.Is(err, tc.wantErr) {
					return
				}
				t.Fatalf("sessionRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
			}

			if diff := cmp.Diff(want, got, cmpopts.EquateApproxTime(time.Second)); diff != "" {
				t.Errorf(`sessionRepo.Create(context.Background(), %+v) returned unexpected difference (-want +got):\n%s`,
					arg, diff)
			}
		})
	}
}

func TestGetSession(t *testing.T) {
	testCases := []struct {
		name        string
		wantSession func(t *testing.T, tx *sql.Tx) domain.Session
		wantErr     error
	}{
		{
			name: "OK",
			wantSession: func(t *testing.T, tx *sql.Tx) domain.Session {
				user := helpers.SeedUser(t, tx)
				s := SeedSession(t, tx, user.ID)
				return s
			},
		},
		{
			name: "ErrSessionNotFound",
			wantSession: func(t *testing.T, tx *sql.Tx) domain.Session {
				return domain.Session{ID: uuid.New()}
			},
			wantErr: domain.ErrSessionNotFound,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tx := integrationtest.SetupTX(t, dbDriver, dbSource)
			want := tc.wantSession(t, tx)
			sessionRepo := sessionrepo.NewRepoPGS(tx)

			got, err := sessionRepo.Get(context.Background(), want.ID)
			if err != nil {
				if errors.Is(err, tc.wantErr) {
					return
				}
				t.Fatalf("sessionRepo.Get(context.Background(), %v) returned error: %v", want.ID, err)
			}

			if diff := cmp.Diff(want, got, cmpopts.EquateApproxTime(time.Second)); diff != "" {
				t.Errorf(`sessionRepo.Get(context.Background(), %v) returned unexpected difference (-want +got):\n%s`,
					want.ID, diff)
			}
		})
	}
}

func TestBlock(t *testing.T) {
	tx := integrationtest.SetupTX(t, dbDriver, dbSource)
	sessionRepo := sessionrepo.NewRepoPGS(tx)

	user := helpers.SeedUser(t, tx)
	s := SeedSession(t, tx, user.ID)

	if err := sessionRepo.Block(context.Background(), s.ID); err != nil {
		t.Fatalf("sessionRepo.Block(context.Background(), %v) returned error: %v", s.ID, err)
	}

	got, err := sessionRepo.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("sessionRepo.Get(context.Background(), %v) returned error: %v", s.ID, err)
	}

	if !got.IsBlocked {
		t.Errorf("sessionRepo.Get(context.Background(), %v).IsBlocked = false, want true", s.ID)
	}

	if err := sessionRepo.Block(context.Background(), uuid.New()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("sessionRepo.Block(context.Background(), uuid.New()) = %v, want %v", err, domain.ErrSessionNotFound)
	}
}
