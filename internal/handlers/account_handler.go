package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/services"
	"go.uber.org/zap"
)

// AccountReader is satisfied by *services.AccountService.
type AccountReader interface {
	CreateAccount(ctx context.Context, userName, accountType, currency string) (*models.Account, error)
	GetAccountWithBalance(ctx context.Context, accountID string) (*models.AccountWithBalance, error)
	GetLedger(ctx context.Context, accountID string) ([]models.LedgerEntry, error)
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
}

// TransferExporter is satisfied by *services.ISO20022Service.
type TransferExporter interface {
	ExportTransfer(ctx context.Context, transactionID string) (*services.Pacs008Export, error)
}

type CreateAccountRequest struct {
	UserName    string `json:"user_name" validate:"required,max=255"`
	AccountType string `json:"account_type" validate:"required,max=64"`
	Currency    string `json:"currency" validate:"required,len=3,alpha"`
}

type AccountHandler struct {
	accounts  AccountReader
	exporter  TransferExporter
	validator *services.ValidationHelper
	logger    *zap.Logger
}

func NewAccountHandler(accounts AccountReader, exporter TransferExporter, logger *zap.Logger) *AccountHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountHandler{
		accounts:  accounts,
		exporter:  exporter,
		validator: services.NewValidationHelper(),
		logger:    logger.Named("http"),
	}
}

// CreateAccount opens a new account
// @Summary Create account
// @Description Open an account with no entries and a zero balance
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAccountRequest true "Account details"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := decodeStrict(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), req.UserName, req.AccountType, req.Currency)
	if err != nil {
		h.fail(w, "create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// GetAccount returns an account with its derived balance
// @Summary Get account
// @Description Get an account and the sum of its ledger entries
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} models.AccountWithBalance
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetAccountWithBalance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get account", err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// GetLedger lists an account's entries
// @Summary Get account ledger
// @Description List ledger entries for an account, newest first
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {array} models.LedgerEntry
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/ledger [get]
func (h *AccountHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.accounts.GetLedger(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetTransaction returns a transaction with its entries
// @Summary Get transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id} [get]
func (h *AccountHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.accounts.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// ExportISO20022 renders a transfer as pacs.008
// @Summary Export transfer as ISO 20022
// @Description Render a committed transfer as a pacs.008.001.08 message
// @Tags iso20022
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} services.Pacs008Export
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id}/iso20022 [get]
func (h *AccountHandler) ExportISO20022(w http.ResponseWriter, r *http.Request) {
	export, err := h.exporter.ExportTransfer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "export iso20022", err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}

func (h *AccountHandler) fail(w http.ResponseWriter, op string, err error) {
	status, _ := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("operation", op), zap.Error(err))
	}
	writeError(w, err)
}
