package tokenpkg

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

func TestNewJWTMaker(t *testing.T) {
	t.Parallel()

	sizeErr := fmt.Errorf("invalid key size: must be at least %d characters", minSecretKeySize)

	testCases := []struct {
		name    string
		key     string
		wantErr error
	}{
		{name: "MinimalKey", key: strings.Repeat("x", minSecretKeySize)},
		{name: "LongKey", key: strings.Repeat("x", 64)},
		{name: "ShortKey", key: strings.Repeat("x", minSecretKeySize-2), wantErr: sizeErr},
		{name: "EmptyKey", key: "", wantErr: sizeErr},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewJWTMaker(tc.key)
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("NewJWTMaker(%q) returned error: %v", tc.key, err)
				}

				return
			}

			if err == nil || err.Error() != tc.wantErr.Error() {
				t.Errorf("NewJWTMaker(%q) returned error %v, want %v", tc.key, err, tc.wantErr)
			}

			if got != nil {
				t.Errorf("NewJWTMaker(%q) = %+v, want nil", tc.key, got)
			}
		})
	}
}

func TestInvalidJWTTokenAlgNone(t *testing.T) {
	t.Parallel()

	owner := uuid.NewString()

	payload, err := NewPayload(owner, time.Minute)
	if err != nil {
		t.Fatalf("NewPayload(%v) returned error: %v", owner, err)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, payload).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString(%v) returned error: %v", jwt.UnsafeAllowNoneSignatureType, err)
	}

	maker, err := NewJWTMaker(randompkg.String(32))
	if err != nil {
		t.Fatalf("NewJWTMaker() returned error: %v", err)
	}

	if _, err = maker.VerifyToken(token); err != ErrInvalidToken {
		t.Errorf("maker.VerifyToken(%v) returned error %v, want %v", token, err, ErrInvalidToken)
	}
}

func TestJWTRejectsPasetoToken(t *testing.T) {
	t.Parallel()

	key := randompkg.String(32)

	paseto, err := NewPasetoMaker(key)
	if err != nil {
		t.Fatalf("NewPasetoMaker() returned error: %v", err)
	}

	jwtMaker, err := NewJWTMaker(key)
	if err != nil {
		t.Fatalf("NewJWTMaker() returned error: %v", err)
	}

	token, _, err := paseto.CreateToken(uuid.NewString(), time.Minute)
	if err != nil {
		t.Fatalf("paseto.CreateToken() returned error: %v", err)
	}

	if _, err := jwtMaker.VerifyToken(token); err != ErrInvalidToken {
		t.Errorf("jwtMaker.VerifyToken(%v) returned error %v, want %v", token, err, ErrInvalidToken)
	}
}
