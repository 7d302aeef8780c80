// Package sessiondelivery manages delivery layer of sessions.
package sessiondelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by session delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package sessiondelivery
type Service interface {
	RenewAccessToken(ctx context.Context, refreshToken string) (string, time.Time, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Handler facilitates session delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns session handler.
func NewHandler(ss Service) *Handler {
	return &Handler{
		service: ss,
	}
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func bindRefreshToken(gctx *gin.Context) (string, bool) {
	l := zerolog.Ctx(gctx.Request.Context())

	var req refreshTokenRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			gctx.JSON(http.StatusBadRequest, web.Response{Error: web.GetErrorMsg(ve)})

			return "", false
		}

		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return "", false
	}

	return req.RefreshToken, true
}

// statusOf maps refresh token failures to http status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, tokenpkg.ErrInvalidToken),
		errors.Is(err, tokenpkg.ErrExpiredToken),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrBlockedSession),
		errors.Is(err, domain.ErrInvalidUser),
		errors.Is(err, domain.ErrMismatchedRefreshToken),
		errors.Is(err, domain.ErrExpiredSession):
		return http.StatusUnauthorized
	case errors.Is(err, errorspkg.ErrUnavailable):
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func writeError(gctx *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		err = errorspkg.ErrInternal
	}

	gctx.JSON(status, web.Error(err))
}

// RenewAccessToken handles http request to renew access token.
//
//	@Summary	Renew access token
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		refreshTokenRequest	true	"refresh token"
//	@Success	200		{object}	web.Response
//	@Failure	401		{object}	web.JSONError
//	@Router		/auth/refresh [post]
func (h *Handler) RenewAccessToken(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	refreshToken, ok := bindRefreshToken(gctx)
	if !ok {
		return
	}

	accessToken, accessTokenExpiresAt, err := h.service.RenewAccessToken(ctx, refreshToken)
	if err != nil {
		writeError(gctx, err)
		return
	}

	rsp := web.Response{
		AccessToken:          accessToken,
		AccessTokenExpiresAt: &accessTokenExpiresAt,
	}
	gctx.JSON(http.StatusOK, rsp)
}

// Logout handles http request to revoke a refresh token.
//
//	@Summary	Log out
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		refreshTokenRequest	true	"refresh token"
//	@Success	200		{object}	web.Response
//	@Failure	401		{object}	web.JSONError
//	@Router		/auth/logout [post]
func (h *Handler) Logout(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	refreshToken, ok := bindRefreshToken(gctx)
	if !ok {
		return
	}

	if err := h.service.Logout(ctx, refreshToken); err != nil {
		writeError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Message: "Logged out successfully"})
}
