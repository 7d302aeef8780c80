package ledgerrepo

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "NoRows",
			err:  fmt.Errorf("scan: %w", sql.ErrNoRows),
			want: domain.ErrTransactionNotFound,
		},
		{
			name: "SerializationFailure",
			err:  &pq.Error{Code: dbpkg.CodeSerializationFailure},
			want: domain.ErrConsistency,
		},
		{
			name: "NumericOutOfRangePQ",
			err:  &pq.Error{Code: dbpkg.CodeNumericOutOfRange},
			want: domain.ErrInvalidAmount,
		},
		{
			name: "NumericOutOfRangePGX",
			err:  &pgconn.PgError{Code: dbpkg.CodeNumericOutOfRange},
			want: domain.ErrInvalidAmount,
		},
		{
			name: "AmountCheck",
			err:  &pq.Error{Code: dbpkg.CodeCheckViolation, Constraint: "transactions_amount_check"},
			want: domain.ErrInvalidAmount,
		},
		{
			name: "Unknown",
			err:  errors.New("boom"),
			want: errorspkg.ErrInternal,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := mapError(tc.err); !errors.Is(got, tc.want) {
				t.Errorf("mapError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
