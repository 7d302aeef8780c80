package tokenpkg

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	key := strings.Repeat("k", 32)

	testCases := []struct {
		name    string
		kind    string
		key     string
		want    string
		wantErr bool
	}{
		{name: "Default", kind: "", key: key, want: "*tokenpkg.PasetoMaker"},
		{name: "Paseto", kind: KindPaseto, key: key, want: "*tokenpkg.PasetoMaker"},
		{name: "JWT", kind: KindJWT, key: key, want: "*tokenpkg.JWTMaker"},
		{name: "Unknown", kind: "macaroon", key: key, wantErr: true},
		{name: "ShortPasetoKey", kind: KindPaseto, key: "short", wantErr: true},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := New(tc.kind, tc.key)
			if tc.wantErr {
				if err == nil {
					t.Errorf("New(%q, %q) returned nil error", tc.kind, tc.key)
				}

				return
			}

			if err != nil {
				t.Fatalf("New(%q, %q) returned error: %v", tc.kind, tc.key, err)
			}

			switch got.(type) {
			case *PasetoMaker:
				if tc.want != "*tokenpkg.PasetoMaker" {
					t.Errorf("New(%q) = %T, want %s", tc.kind, got, tc.want)
				}
			case *JWTMaker:
				if tc.want != "*tokenpkg.JWTMaker" {
					t.Errorf("New(%q) = %T, want %s", tc.kind, got, tc.want)
				}
			}
		})
	}
}

func TestPasetoInvalidToken(t *testing.T) {
	t.Parallel()

	maker, err := NewPasetoMaker(strings.Repeat("a", 32))
	if err != nil {
		t.Fatalf("NewPasetoMaker() returned error: %v", err)
	}

	other, err := NewPasetoMaker(strings.Repeat("b", 32))
	if err != nil {
		t.Fatalf("NewPasetoMaker() returned error: %v", err)
	}

	token, _, err := other.CreateToken("user", 0)
	if err != nil {
		t.Fatalf("other.CreateToken() returned error: %v", err)
	}

	if _, err := maker.VerifyToken(token); err != ErrInvalidToken {
		t.Errorf("maker.VerifyToken(%v) returned error %v, want %v", token, err, ErrInvalidToken)
	}
}
