// Package balancedelivery manages delivery layer of net balances.
package balancedelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by balance delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package balancedelivery
type Service interface {
	Balance(ctx context.Context, ownerID string) (decimal.Decimal, error)
}

// Handler facilitates balance delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns balance handler.
func NewHandler(bs Service) Handler {
	return Handler{service: bs}
}

// Response holds the caller's net balance.
type Response struct {
	NetBalance decimal.Decimal `json:"netBalance"`
}

// Get handles http request to get the caller's net balance.
//
//	@Summary	Get net balance
//	@Tags		balance
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	Response
//	@Failure	503	{object}	web.JSONError
//	@Router		/balance [get]
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	net, err := h.service.Balance(ctx, authPayload.UserID)
	if err != nil {
		if errors.Is(err, errorspkg.ErrUnavailable) {
			gctx.JSON(http.StatusServiceUnavailable, web.Error(err))
			return
		}

		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, Response{NetBalance: net})
}
