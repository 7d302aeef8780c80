package balancedelivery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	decimal.MarshalJSONWithoutQuotes = true
	os.Exit(m.Run())
}

func TestGet(t *testing.T) {
	owner := randompkg.Owner()
	tokenSymmetricKey := randompkg.String(32)

	tokenMaker, err := tokenpkg.NewPasetoMaker(tokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker(%v) returned error: %v", tokenSymmetricKey, err)
	}

	testCases := []struct {
		name           string
		setupAuth      func(t *testing.T, r *http.Request) error
		buildStubs     func(service *MockService)
		wantStatusCode int
		wantBody       string
		wantError      string
	}{
		{
			name: "OK",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, middleware.AuthTypeBearer, owner, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Balance(gomock.Any(), owner).Times(1).Return(randompkg.MustDecimal("-12.5"), nil)
			},
			wantStatusCode: http.StatusOK,
			wantBody:       `{"netBalance":-12.5}`,
		},
		{
			name: "NoAggregate",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, middleware.AuthTypeBearer, owner, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Balance(gomock.Any(), owner).Times(1).Return(decimal.Zero, nil)
			},
			wantStatusCode: http.StatusOK,
			wantBody:       `{"netBalance":0}`,
		},
		{
			name: "NoAuthorization",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return nil
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Balance(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      middleware.ErrAuthHeaderNotFound.Error(),
		},
		{
			name: "Unavailable",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, middleware.AuthTypeBearer, owner, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Balance(gomock.Any(), owner).Times(1).Return(decimal.Decimal{}, errorspkg.ErrUnavailable)
			},
			wantStatusCode: http.StatusServiceUnavailable,
			wantError:      errorspkg.ErrUnavailable.Error(),
		},
		{
			name: "InternalError",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, middleware.AuthTypeBearer, owner, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Balance(gomock.Any(), owner).Times(1).Return(decimal.Decimal{}, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			service := NewMockService(ctrl)
			tc.buildStubs(service)

			h := NewHandler(service)
			server := gin.New()
			server.GET("/balance", middleware.AuthMiddleware(tokenMaker), h.Get)

			req, err := http.NewRequest(http.MethodGet, "/balance", nil)
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			if err := tc.setupAuth(t, req); err != nil {
				t.Fatalf("tc.setupAuth(t, %v) returned error: %v", req, err)
			}

			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			if w.Code != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", w.Code, tc.wantStatusCode)
			}

			if tc.wantStatusCode == http.StatusOK {
				if got := w.Body.String(); got != tc.wantBody {
					t.Errorf("body = %s, want %s", got, tc.wantBody)
				}

				return
			}

			var res web.Response
			if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
				t.Fatalf("Decoding response body error: %v", err)
			}

			if res.Error != tc.wantError {
				t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
			}
		})
	}
}
