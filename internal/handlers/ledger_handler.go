package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/ruralpay/ledger/internal/middleware"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
	maxIdempotencyKeyLength  = 255
)

// PostingEngine moves money. *services.LedgerService satisfies it.
type PostingEngine interface {
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string) (*models.PostingResult, error)
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string) (*models.PostingResult, error)
	Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal, description string) (*models.PostingResult, error)
}

// IdempotencyStore is satisfied by *services.IdempotencyService.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, fingerprint string) (bool, error)
	Lookup(ctx context.Context, key string) (*services.StoredResponse, error)
	Complete(ctx context.Context, key, fingerprint string, statusCode int, body []byte) error
	Release(ctx context.Context, key string) error
}

type DepositRequest struct {
	AccountID   string          `json:"account_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Description string          `json:"description" validate:"max=255"`
}

type WithdrawRequest struct {
	AccountID   string          `json:"account_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Description string          `json:"description" validate:"max=255"`
}

type TransferRequest struct {
	FromAccountID string          `json:"from_account_id" validate:"required"`
	ToAccountID   string          `json:"to_account_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Description   string          `json:"description" validate:"max=255"`
}

type LedgerHandler struct {
	engine      PostingEngine
	idempotency IdempotencyStore
	validator   *services.ValidationHelper
	logger      *zap.Logger
}

// NewLedgerHandler wires the money routes. A nil idempotency store disables
// Idempotency-Key handling.
func NewLedgerHandler(engine PostingEngine, idempotency IdempotencyStore, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{
		engine:      engine,
		idempotency: idempotency,
		validator:   services.NewValidationHelper(),
		logger:      logger.Named("http"),
	}
}

// Deposit credits an account
// @Summary Deposit funds
// @Description Credit an account with a single ledger entry
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Replay-safe request key"
// @Param request body DepositRequest true "Deposit request"
// @Success 201 {object} models.PostingResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /deposits [post]
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.execute(w, r, &req, http.StatusCreated, func(ctx context.Context) (*models.PostingResult, error) {
		return h.engine.Deposit(ctx, req.AccountID, req.Amount, req.Description)
	})
}

// Withdraw debits an account
// @Summary Withdraw funds
// @Description Debit an account if its derived balance covers the amount
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Replay-safe request key"
// @Param request body WithdrawRequest true "Withdrawal request"
// @Success 201 {object} models.PostingResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /withdrawals [post]
func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.execute(w, r, &req, http.StatusCreated, func(ctx context.Context) (*models.PostingResult, error) {
		return h.engine.Withdraw(ctx, req.AccountID, req.Amount, req.Description)
	})
}

// Transfer moves funds between accounts
// @Summary Transfer funds
// @Description Post a balanced debit and credit between two accounts
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Replay-safe request key"
// @Param request body TransferRequest true "Transfer request"
// @Success 200 {object} models.PostingResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /transfers [post]
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.execute(w, r, &req, http.StatusOK, func(ctx context.Context) (*models.PostingResult, error) {
		return h.engine.Transfer(ctx, req.FromAccountID, req.ToAccountID, req.Amount, req.Description)
	})
}

func (h *LedgerHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := decodeStrict(w, r, req); err != nil {
		message := "Invalid request body"
		if errors.Is(err, errTrailingData) {
			message = "Request body must only contain a single JSON object"
		}
		services.SendErrorResponse(w, message, http.StatusBadRequest, nil)
		return false
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

// execute runs post once per idempotency key. Server-side failures release the
// key so the client may retry; every other outcome is stored and replayed.
// Keys are scoped to the authenticated caller and bound to the request they
// were first used with.
func (h *LedgerHandler) execute(w http.ResponseWriter, r *http.Request, req any, successStatus int, post func(ctx context.Context) (*models.PostingResult, error)) {
	ctx := r.Context()
	key := r.Header.Get(IdempotencyKeyHeader)

	if key == "" || h.idempotency == nil {
		result, err := post(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, successStatus, result)
		return
	}

	if len(key) > maxIdempotencyKeyLength {
		services.SendErrorResponse(w, "Idempotency-Key is too long", http.StatusBadRequest, nil)
		return
	}

	fingerprint, err := requestFingerprint(r, req)
	if err != nil {
		h.logger.Error("failed to fingerprint request", zap.Error(err))
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	storeKey := scopedIdempotencyKey(ctx, key)
	reserved, err := h.idempotency.Reserve(ctx, storeKey, fingerprint)
	if err != nil {
		h.logger.Error("idempotency reserve failed", zap.String("idempotency_key", key), zap.Error(err))
		services.SendErrorResponse(w, "Idempotency store unavailable", http.StatusServiceUnavailable, nil)
		return
	}
	if !reserved {
		h.replay(w, r, storeKey, fingerprint)
		return
	}

	status := successStatus
	var payload any
	result, err := post(ctx)
	if err != nil {
		status, payload = errorBody(err)
	} else {
		payload = result
	}

	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
		status, body = http.StatusInternalServerError, []byte(`{"error":"Internal server error"}`)
	}

	storeCtx := context.WithoutCancel(ctx)
	if status >= http.StatusInternalServerError {
		if err := h.idempotency.Release(storeCtx, storeKey); err != nil {
			h.logger.Warn("idempotency release failed", zap.String("idempotency_key", key), zap.Error(err))
		}
	} else if err := h.idempotency.Complete(storeCtx, storeKey, fingerprint, status, body); err != nil {
		h.logger.Warn("idempotency complete failed", zap.String("idempotency_key", key), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func (h *LedgerHandler) replay(w http.ResponseWriter, r *http.Request, storeKey, fingerprint string) {
	stored, err := h.idempotency.Lookup(r.Context(), storeKey)
	switch {
	case errors.Is(err, services.ErrRequestInProgress):
		services.SendErrorResponse(w, "A request with this Idempotency-Key is in progress", http.StatusConflict, nil)
		return
	case err != nil:
		h.logger.Error("idempotency lookup failed", zap.String("idempotency_key", storeKey), zap.Error(err))
		services.SendErrorResponse(w, "Idempotency store unavailable", http.StatusServiceUnavailable, nil)
		return
	}

	if stored.Fingerprint != fingerprint {
		services.SendErrorResponse(w, "Idempotency-Key was already used for a different request", http.StatusUnprocessableEntity, nil)
		return
	}
	if stored.Pending() {
		services.SendErrorResponse(w, "A request with this Idempotency-Key is in progress", http.StatusConflict, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(IdempotentReplayedHeader, "true")
	w.WriteHeader(stored.StatusCode)
	w.Write(stored.Body)
}

// requestFingerprint hashes the method, path and decoded request. Re-encoding
// the decoded struct makes key order and whitespace irrelevant.
func requestFingerprint(r *http.Request, req any) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	sum := sha256.New()
	sum.Write([]byte(r.Method))
	sum.Write([]byte{0})
	sum.Write([]byte(r.URL.Path))
	sum.Write([]byte{0})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil)), nil
}

func scopedIdempotencyKey(ctx context.Context, key string) string {
	if subject, ok := middleware.Subject(ctx); ok {
		return url.QueryEscape(subject) + ":" + key
	}
	return key
}
