// Package userdelivery manages delivery layer of users.
package userdelivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by user delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package userdelivery
type Service interface {
	Register(ctx context.Context, arg domain.RegisterUserParams) (domain.UserWihtoutPassword, error)
	VerifyOTP(ctx context.Context, email, otp string) (domain.UserWihtoutPassword, error)
	ResendOTP(ctx context.Context, email string) error
	CheckPassword(ctx context.Context, email, password string) (domain.UserWihtoutPassword, error)
	Get(ctx context.Context, id uuid.UUID) (domain.UserWihtoutPassword, error)
	Delete(ctx context.Context, callerID, id uuid.UUID) error
}

// SessionMaker facilitates session creation.
type SessionMaker interface {
	Create(ctx context.Context, arg domain.CreateSessionParams) (string, time.Time, domain.Session, error)
}

// Handler facilitates user delivery layer logic.
type Handler struct {
	service      Service
	sessionMaker SessionMaker
}

// NewHandler returns user handler.
func NewHandler(us Service, sm SessionMaker) *Handler {
	return &Handler{
		service:      us,
		sessionMaker: sm,
	}
}

// UserData wraps a user in response data.
type UserData struct {
	User domain.UserWihtoutPassword `json:"user"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrUserAlreadyVerified),
		errors.Is(err, domain.ErrInvalidOTP),
		errors.Is(err, domain.ErrExpiredOTP):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserNotVerified), errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrTooManyOTPAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, errorspkg.ErrUnavailable):
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func respondError(gctx *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(gctx.Request.Context()).Error().Err(err).Send()
		err = errorspkg.ErrInternal
	}

	gctx.JSON(status, web.Error(err))
}

func bindJSON(gctx *gin.Context, req any) bool {
	if err := gctx.ShouldBindJSON(req); err != nil {
		zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindErrorMsg(err)})

		return false
	}

	return true
}

func callerID(gctx *gin.Context) (uuid.UUID, error) {
	payload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)
	return uuid.Parse(payload.UserID)
}

type registerRequest struct {
	Email       string          `json:"email" binding:"required,email"`
	Password    string          `json:"password" binding:"required,min=6"`
	Name        string          `json:"name" binding:"max=100"`
	Phone       string          `json:"phone" binding:"max=32"`
	Preferences json.RawMessage `json:"preferences"`
}

// Register handles http request to sign up a user and send the OTP.
//
//	@Summary	Register a user
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		registerRequest	true	"user"
//	@Success	201		{object}	web.Response
//	@Failure	400		{object}	web.JSONError
//	@Failure	409		{object}	web.JSONError
//	@Router		/auth/register [post]
func (h *Handler) Register(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req registerRequest
	if !bindJSON(gctx, &req) {
		return
	}

	user, err := h.service.Register(ctx, domain.RegisterUserParams{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		Phone:       req.Phone,
		Preferences: req.Preferences,
	})
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusCreated, web.Response{
		Message: "Registered (or updated). OTP sent to email.",
		Data:    UserData{User: user},
	})
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

// VerifyOTP handles http request to confirm the email with the OTP.
//
//	@Summary	Verify email with OTP
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		verifyOTPRequest	true	"email and code"
//	@Success	200		{object}	web.Response
//	@Failure	400		{object}	web.JSONError
//	@Failure	429		{object}	web.JSONError
//	@Router		/auth/verify-otp [post]
func (h *Handler) VerifyOTP(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req verifyOTPRequest
	if !bindJSON(gctx, &req) {
		return
	}

	user, err := h.service.VerifyOTP(ctx, req.Email, req.OTP)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{
		Message: "Email verified successfully",
		Data:    UserData{User: user},
	})
}

type resendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResendOTP handles http request to send a new OTP.
//
//	@Summary	Resend OTP
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		resendOTPRequest	true	"email"
//	@Success	200		{object}	web.Response
//	@Failure	400		{object}	web.JSONError
//	@Router		/auth/resend-otp [post]
func (h *Handler) ResendOTP(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req resendOTPRequest
	if !bindJSON(gctx, &req) {
		return
	}

	if err := h.service.ResendOTP(ctx, req.Email); err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Message: "OTP resent to email"})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// Login handles http login request and returns user and session data.
//
//	@Summary	Log in
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		loginRequest	true	"credentials"
//	@Success	200		{object}	web.Response
//	@Failure	401		{object}	web.JSONError
//	@Failure	403		{object}	web.JSONError
//	@Router		/auth/login [post]
func (h *Handler) Login(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req loginRequest
	if !bindJSON(gctx, &req) {
		return
	}

	user, err := h.service.CheckPassword(ctx, req.Email, req.Password)
	if err != nil {
		respondError(gctx, err)
		return
	}

	arg := domain.CreateSessionParams{
		UserID:    user.ID,
		UserAgent: gctx.Request.UserAgent(),
		ClientIP:  gctx.ClientIP(),
	}

	accessToken, accessTokenExpiresAt, session, err := h.sessionMaker.Create(ctx, arg)
	if err != nil {
		l.Warn().Err(err).Send()
		respondError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, web.Response{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  &accessTokenExpiresAt,
		RefreshToken:          session.RefreshToken,
		RefreshTokenExpiresAt: &session.ExpiresAt,
		Data:                  UserData{User: user},
	})
}

// Profile handles http request to get the caller's profile.
//
//	@Summary	Current user
//	@Tags		auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	web.Response
//	@Router		/auth/profile [get]
func (h *Handler) Profile(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	id, err := callerID(gctx)
	if err != nil {
		l.Warn().Err(err).Send()
		gctx.JSON(http.StatusUnauthorized, web.Error(tokenpkg.ErrInvalidToken))

		return
	}

	user, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		respondError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: UserData{User: user}})
}

// Delete handles http request to delete the caller's account.
//
//	@Summary	Delete user
//	@Tags		auth
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"user id"
//	@Success	200	{object}	web.Response
//	@Failure	403	{object}	web.JSONError
//	@Failure	404	{object}	web.JSONError
//	@Router		/auth/users/{id} [delete]
func (h *Handler) Delete(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	caller, err := callerID(gctx)
	if err != nil {
		l.Warn().Err(err).Send()
		gctx.JSON(http.StatusUnauthorized, web.Error(tokenpkg.ErrInvalidToken))

		return
	}

	id, err := uuid.Parse(gctx.Param("id"))
	if err != nil {
		gctx.JSON(http.StatusNotFound, web.Error(domain.ErrUserNotFound))
		return
	}

	if err := h.service.Delete(ctx, caller, id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		respondError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Message: "User deleted"})
}
