// Package transactiondelivery manages delivery layer of transactions.
package transactiondelivery

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// ExportFilename is suggested to the client for the CSV download.
const ExportFilename = "transactions.csv"

// Service provides service layer interface needed by transaction delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transactiondelivery
type Service interface {
	Add(ctx context.Context, arg domain.CreateTransactionParams) (domain.TransactionResult, error)
	Edit(ctx context.Context, arg domain.UpdateTransactionParams) (domain.TransactionResult, error)
	Remove(ctx context.Context, id uuid.UUID, ownerID string) (decimal.Decimal, error)
	Get(ctx context.Context, ownerID string, id uuid.UUID) (domain.Transaction, error)
	List(ctx context.Context, ownerID string) ([]domain.Transaction, error)
	ListByKind(ctx context.Context, ownerID string, kind domain.Kind) ([]domain.Transaction, error)
	Export(ctx context.Context, ownerID string, w io.Writer) error
}

// Handler facilitates transaction delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transaction handler.
func NewHandler(ts Service) Handler {
	return Handler{service: ts}
}

// RemoveResponse is returned after a transaction is deleted.
type RemoveResponse struct {
	Message    string          `json:"message"`
	NetBalance decimal.Decimal `json:"netBalance"`
}

type transactionRequest struct {
	Type   string           `json:"type" binding:"required,txkind"`
	Amount *decimal.Decimal `json:"amount" binding:"required"`
	Note   string           `json:"note" binding:"max=500"`
}

func ownerID(gctx *gin.Context) string {
	return gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload).UserID
}

// parseID treats malformed ids like unknown ones.
func parseID(gctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(gctx.Param("id"))
	if err != nil {
		gctx.JSON(http.StatusNotFound, web.Error(domain.ErrTransactionNotFound))
		return uuid.UUID{}, false
	}

	return id, true
}

// respondError writes the status and body for a service error.
func respondError(gctx *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidKind), errors.Is(err, domain.ErrInvalidAmount):
		gctx.JSON(http.StatusBadRequest, web.Error(err))
	case errors.Is(err, domain.ErrTransactionNotFound):
		gctx.JSON(http.StatusNotFound, web.Error(err))
	case errors.Is(err, errorspkg.ErrUnavailable):
		gctx.JSON(http.StatusServiceUnavailable, web.Error(errorspkg.ErrUnavailable))
	default:
		zerolog.Ctx(gctx.Request.Context()).Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	}
}

// Create handles http request to add a transaction.
//
//	@Summary	Add a transaction
//	@Tags		transactions
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		transactionRequest	true	"transaction"
//	@Success	201		{object}	domain.TransactionResult
//	@Failure	400		{object}	web.JSONError
//	@Router		/transactions [post]
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req transactionRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindErrorMsg(err)})

		return
	}

	res, err := h.service.Add(ctx, domain.CreateTransactionParams{
		OwnerID: ownerID(gctx),
		Kind:    domain.Kind(req.Type),
		Amount:  *req.Amount,
		Note:    req.Note,
	})
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusCreated, res)
}

// List handles http request to list the caller's transactions.
//
//	@Summary	List transactions, newest first
//	@Tags		transactions
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	domain.Transaction
//	@Router		/transactions [get]
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	ts, err := h.service.List(ctx, ownerID(gctx))
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, ts)
}

// ListByKind handles http request to list the caller's transactions of one type.
//
//	@Summary	List transactions of one type
//	@Tags		transactions
//	@Produce	json
//	@Security	BearerAuth
//	@Param		type	path		string	true	"incoming or expense"
//	@Success	200		{array}		domain.Transaction
//	@Failure	400		{object}	web.JSONError
//	@Router		/transactions/type/{type} [get]
func (h *Handler) ListByKind(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	ts, err := h.service.ListByKind(ctx, ownerID(gctx), domain.Kind(gctx.Param("type")))
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, ts)
}

// Get handles http request to get one transaction.
//
//	@Summary	Get a transaction
//	@Tags		transactions
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"transaction id"
//	@Success	200	{object}	domain.Transaction
//	@Failure	404	{object}	web.JSONError
//	@Router		/transactions/{id} [get]
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	id, ok := parseID(gctx)
	if !ok {
		return
	}

	t, err := h.service.Get(ctx, ownerID(gctx), id)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, t)
}

// Update handles http request to edit a transaction.
//
//	@Summary	Edit a transaction
//	@Tags		transactions
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string				true	"transaction id"
//	@Param		request	body		transactionRequest	true	"new values"
//	@Success	200		{object}	domain.TransactionResult
//	@Failure	400		{object}	web.JSONError
//	@Failure	404		{object}	web.JSONError
//	@Router		/transactions/{id} [put]
func (h *Handler) Update(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	id, ok := parseID(gctx)
	if !ok {
		return
	}

	var req transactionRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindErrorMsg(err)})

		return
	}

	res, err := h.service.Edit(ctx, domain.UpdateTransactionParams{
		ID:      id,
		OwnerID: ownerID(gctx),
		Kind:    domain.Kind(req.Type),
		Amount:  *req.Amount,
		Note:    req.Note,
	})
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, res)
}

// Delete handles http request to remove a transaction.
//
//	@Summary	Delete a transaction
//	@Tags		transactions
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"transaction id"
//	@Success	200	{object}	RemoveResponse
//	@Failure	404	{object}	web.JSONError
//	@Router		/transactions/{id} [delete]
func (h *Handler) Delete(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	id, ok := parseID(gctx)
	if !ok {
		return
	}

	net, err := h.service.Remove(ctx, id, ownerID(gctx))
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, RemoveResponse{Message: "Transaction deleted", NetBalance: net})
}

// Export handles http request to download the caller's transactions as CSV.
//
//	@Summary	Export transactions as CSV
//	@Tags		transactions
//	@Produce	text/csv
//	@Security	BearerAuth
//	@Success	200	{file}	file
//	@Router		/transactions/export [get]
func (h *Handler) Export(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	// Buffered so a failed snapshot still gets a JSON error instead of a truncated file.
	var buf bytes.Buffer
	if err := h.service.Export(ctx, ownerID(gctx), &buf); err != nil {
		respondError(gctx, err)
		return
	}

	gctx.Header("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	gctx.Data(http.StatusOK, "text/csv", buf.Bytes())
}
