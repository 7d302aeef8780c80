//go:build integration

package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/integrationtest"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

type client struct {
	t      *testing.T
	server *httpserver.Server
	token  string
}

func (c *client) do(method, url string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			c.t.Fatalf("Encoding request body error: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	if err != nil {
		c.t.Fatalf("Creating request error: %v", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	w := httptest.NewRecorder()
	c.server.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Decoding response body %q error: %v", w.Body.String(), err)
	}

	return v
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()

	if w.Code != want {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, want, w.Body.String())
	}
}

// signUp registers, verifies and logs in a new user and returns a client
// carrying its access token and the login response.
func signUp(t *testing.T, server *httpserver.Server, otps *integrationtest.OTPRecorder) (*client, web.Response) {
	t.Helper()

	c := &client{t: t, server: server}
	email := randompkg.Email()
	password := randompkg.String(10)

	w := c.do(http.MethodPost, "/auth/register", map[string]any{"email": email, "password": password, "name": "Test"})
	requireStatus(t, w, http.StatusCreated)

	code := otps.Code(email)
	if len(code) != 6 {
		t.Fatalf("otp for %s = %q, want 6 digits", email, code)
	}

	w = c.do(http.MethodPost, "/auth/verify-otp", map[string]any{"email": email, "otp": code})
	requireStatus(t, w, http.StatusOK)

	w = c.do(http.MethodPost, "/auth/login", map[string]any{"email": email, "password": password})
	requireStatus(t, w, http.StatusOK)

	res := decode[web.Response](t, w)
	c.token = res.AccessToken

	return c, res
}
