package hrest

import (
	"context"
	"errors"
	"net/http"

	"loyalty-service/internal/domain"
	"loyalty-service/shared/response"
	xerrors "loyalty-service/shared/utils/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LedgerService is the part of the ledger usecase exposed over HTTP.
type LedgerService interface {
	ProcessPurchaseByID(ctx context.Context, externalTransactionID string) error
	ProcessRefundByID(ctx context.Context, externalTransactionID string) error
	ProcessClearingByID(ctx context.Context, externalTransactionID string) error
	PointsSummary(ctx context.Context, accountID string) (*domain.PointsSummary, error)
	FindTransactionByDebitAccountAndType(ctx context.Context, debitAccountID, typeID string) (*domain.Transaction, error)
}

type LedgerRestHandler struct {
	ledger LedgerService
	logger *zap.Logger
}

func NewLedgerRestHandler(ledger LedgerService, logger *zap.Logger) *LedgerRestHandler {
	return &LedgerRestHandler{ledger: ledger, logger: logger}
}

func (h *LedgerRestHandler) GetPoints(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	summary, err := h.ledger.PointsSummary(r.Context(), accountID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, summary)
}

// GetLatestTransaction returns the newest transaction debiting the account
// with the type given in ?type=.
func (h *LedgerRestHandler) GetLatestTransaction(w http.ResponseWriter, r *http.Request) {
	typeID := r.URL.Query().Get("type")
	if typeID == "" {
		response.ErrorCode(w, http.StatusBadRequest, "invalid_request", "type query parameter is required")
		return
	}
	tx, err := h.ledger.FindTransactionByDebitAccountAndType(r.Context(), chi.URLParam(r, "id"), typeID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, tx)
}

func (h *LedgerRestHandler) ProcessPurchase(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, "purchase", h.ledger.ProcessPurchaseByID)
}

func (h *LedgerRestHandler) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, "refund", h.ledger.ProcessRefundByID)
}

func (h *LedgerRestHandler) ProcessClearing(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, "clearing", h.ledger.ProcessClearingByID)
}

func (h *LedgerRestHandler) trigger(w http.ResponseWriter, r *http.Request, workflow string, run func(context.Context, string) error) {
	id := chi.URLParam(r, "id")
	if err := run(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{
		"external_transaction_id": id,
		"workflow":                workflow,
	})
}

func (h *LedgerRestHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *xerrors.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ErrorCode(w, http.StatusUnprocessableEntity, errorCode(verr.Kind), err.Error())
	case errors.Is(err, xerrors.ErrNotFound):
		response.ErrorCode(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, xerrors.ErrPersistence):
		h.logger.Error("ledger persistence failure", zap.String("path", r.URL.Path), zap.Error(err))
		response.ErrorCode(w, http.StatusServiceUnavailable, "persistence_failure", "ledger storage unavailable, retry later")
	default:
		h.logger.Error("unhandled ledger error", zap.String("path", r.URL.Path), zap.Error(err))
		response.ErrorCode(w, http.StatusInternalServerError, "internal_error", xerrors.ErrInternalServer.Error())
	}
}

var errorCodes = map[error]string{
	xerrors.ErrMissingRequiredAccount:   "missing_required_account",
	xerrors.ErrUnknownAccountType:       "unknown_account_type",
	xerrors.ErrUnknownTransactionSource: "unknown_transaction_source",
	xerrors.ErrUnknownTransactionType:   "unknown_transaction_type",
	xerrors.ErrUnknownCommissionType:    "unknown_commission_type",
	xerrors.ErrInvalidTransfer:          "invalid_transfer",
	xerrors.ErrInvalidProject:           "invalid_project",
	xerrors.ErrCurrencyMismatch:         "currency_mismatch",
}

func errorCode(kind error) string {
	if code, ok := errorCodes[kind]; ok {
		return code
	}
	return "validation_error"
}
