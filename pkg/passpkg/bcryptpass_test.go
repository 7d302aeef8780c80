package passpkg

import (
	"testing"

	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheck(t *testing.T) {
	t.Parallel()

	otp := randompkg.Digits(6)

	testCases := []struct {
		name    string
		secret  string
		attempt string
		wantErr error
	}{
		{
			name:    "Password",
			secret:  "abcdefghijklmnopqrstuvwxyz",
			attempt: "abcdefghijklmnopqrstuvwxyz",
		},
		{
			name:    "WrongPassword",
			secret:  "abcdefghijklmnopqrstuvwxyz",
			attempt: "abc",
			wantErr: bcrypt.ErrMismatchedHashAndPassword,
		},
		{
			name:    "OTPCode",
			secret:  otp,
			attempt: otp,
		},
		{
			name:    "OTPCodeWithLeadingZeros",
			secret:  "000123",
			attempt: "123",
			wantErr: bcrypt.ErrMismatchedHashAndPassword,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			hash, err := Hash(tc.secret)
			require.NoError(t, err)
			require.NotEqual(t, tc.secret, hash)

			err = Check(tc.attempt, hash)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestHashIsSalted(t *testing.T) {
	t.Parallel()

	otp := randompkg.Digits(6)

	first, err := Hash(otp)
	require.NoError(t, err)

	second, err := Hash(otp)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.NoError(t, Check(otp, first))
	require.NoError(t, Check(otp, second))
}

func TestCheckMalformedHash(t *testing.T) {
	t.Parallel()

	err := Check(randompkg.Digits(6), "")
	require.ErrorIs(t, err, bcrypt.ErrHashTooShort)
}
