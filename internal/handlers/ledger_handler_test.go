package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ruralpay/ledger/internal/middleware"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) services.ErrorResponse {
	t.Helper()

	var resp services.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestLedgerHandler_Deposit(t *testing.T) {
	t.Run("returns 201 with the transaction id", func(t *testing.T) {
		engine := &MockPostingEngine{}
		engine.On("Deposit", mock.Anything, accountA, "50.25", "salary").
			Return(&models.PostingResult{TransactionID: "t1"}, nil)

		h := NewLedgerHandler(engine, nil, nil)
		w := postJSON(t, h.Deposit, "/deposits",
			`{"account_id":"`+accountA+`","amount":"50.25","description":"salary"}`, nil)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"transactionId":"t1"}`, w.Body.String())
		engine.AssertExpectations(t)
	})

	t.Run("numeric amounts are accepted", func(t *testing.T) {
		engine := &MockPostingEngine{}
		engine.On("Deposit", mock.Anything, accountA, "50", "").
			Return(&models.PostingResult{TransactionID: "t1"}, nil)

		h := NewLedgerHandler(engine, nil, nil)
		w := postJSON(t, h.Deposit, "/deposits", `{"account_id":"`+accountA+`","amount":50}`, nil)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("rejects malformed and extra input", func(t *testing.T) {
		engine := &MockPostingEngine{}
		h := NewLedgerHandler(engine, nil, nil)

		bodies := []string{
			`invalid`,
			`{"account_id":"` + accountA + `","amount":"10","extra":true}`,
			`{"account_id":"` + accountA + `","amount":"10"}{"again":1}`,
		}
		for _, body := range bodies {
			w := postJSON(t, h.Deposit, "/deposits", body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
		engine.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("non-positive amount fails validation", func(t *testing.T) {
		engine := &MockPostingEngine{}
		h := NewLedgerHandler(engine, nil, nil)

		w := postJSON(t, h.Deposit, "/deposits", `{"account_id":"`+accountA+`","amount":"-5"}`, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Details, "amount")
	})

	t.Run("unknown account is 404", func(t *testing.T) {
		engine := &MockPostingEngine{}
		engine.On("Deposit", mock.Anything, accountB, "10", "").Return(nil, services.ErrAccountNotFound)

		h := NewLedgerHandler(engine, nil, nil)
		w := postJSON(t, h.Deposit, "/deposits", `{"account_id":"`+accountB+`","amount":"10"}`, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLedgerHandler_Withdraw(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"insufficient funds", &services.InsufficientFundsError{AccountID: accountA, Balance: decimal.NewFromInt(20), Requested: decimal.NewFromInt(25)}, http.StatusUnprocessableEntity},
		{"domain validation", services.NewValidationError("amount", "must have at most 4 decimal places", services.ErrInvalidAmount), http.StatusBadRequest},
		{"lock timeout", &services.StoreError{Op: "lock account", Err: services.ErrLockTimeout}, http.StatusServiceUnavailable},
		{"store failure", &services.StoreError{Op: "commit", Err: errors.New("connection lost")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &MockPostingEngine{}
			engine.On("Withdraw", mock.Anything, accountA, "25", "").Return(nil, tt.err)

			h := NewLedgerHandler(engine, nil, nil)
			w := postJSON(t, h.Withdraw, "/withdrawals", `{"account_id":"`+accountA+`","amount":"25"}`, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.NotEmpty(t, resp.Error)
			assert.NotContains(t, resp.Error, "connection lost")
		})
	}

	t.Run("success reports completed", func(t *testing.T) {
		engine := &MockPostingEngine{}
		engine.On("Withdraw", mock.Anything, accountA, "25", "atm").
			Return(&models.PostingResult{TransactionID: "t2", Status: models.StatusCompleted}, nil)

		h := NewLedgerHandler(engine, nil, nil)
		w := postJSON(t, h.Withdraw, "/withdrawals", `{"account_id":"`+accountA+`","amount":"25","description":"atm"}`, nil)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"transactionId":"t2","status":"completed"}`, w.Body.String())
	})
}

func TestLedgerHandler_Transfer(t *testing.T) {
	t.Run("returns 200", func(t *testing.T) {
		engine := &MockPostingEngine{}
		engine.On("Transfer", mock.Anything, accountA, accountB, "30", "rent").
			Return(&models.PostingResult{TransactionID: "t3", Status: models.StatusCompleted}, nil)

		h := NewLedgerHandler(engine, nil, nil)
		w := postJSON(t, h.Transfer, "/transfers",
			`{"from_account_id":"`+accountA+`","to_account_id":"`+accountB+`","amount":"30","description":"rent"}`, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"transactionId":"t3","status":"completed"}`, w.Body.String())
	})

	t.Run("missing destination", func(t *testing.T) {
		engine := &MockPostingEngine{}
		h := NewLedgerHandler(engine, nil, nil)

		w := postJSON(t, h.Transfer, "/transfers", `{"from_account_id":"`+accountA+`","amount":"30"}`, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Details, "to_account_id")
	})

	t.Run("self transfer is 400 with the offending field", func(t *testing.T) {
		engine := &MockPostingEngine{}
		engine.On("Transfer", mock.Anything, accountA, accountA, "30", "").
			Return(nil, services.NewValidationError("to_account_id", "must differ from from_account_id", services.ErrSameAccount))

		h := NewLedgerHandler(engine, nil, nil)
		w := postJSON(t, h.Transfer, "/transfers",
			`{"from_account_id":"`+accountA+`","to_account_id":"`+accountA+`","amount":"30"}`, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Details, "to_account_id")
	})
}

func TestLedgerHandler_Idempotency(t *testing.T) {
	body := `{"account_id":"` + accountA + `","amount":"25"}`
	headers := map[string]string{IdempotencyKeyHeader: "key-1"}

	t.Run("first request is stored", func(t *testing.T) {
		engine := &MockPostingEngine{}
		store := &MockIdempotencyStore{}
		engine.On("Withdraw", mock.Anything, accountA, "25", "").
			Return(&models.PostingResult{TransactionID: "t1", Status: models.StatusCompleted}, nil)
		store.On("Reserve", mock.Anything, "key-1", mock.Anything).Return(true, nil)
		store.On("Complete", mock.Anything, "key-1", mock.Anything, http.StatusCreated,
			[]byte(`{"transactionId":"t1","status":"completed"}`)).Return(nil)

		h := NewLedgerHandler(engine, store, nil)
		w := postJSON(t, h.Withdraw, "/withdrawals", body, headers)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Empty(t, w.Header().Get(IdempotentReplayedHeader))
		engine.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("client errors are stored too", func(t *testing.T) {
		engine := &MockPostingEngine{}
		store := &MockIdempotencyStore{}
		engine.On("Withdraw", mock.Anything, accountA, "25", "").Return(nil, services.ErrInsufficientFunds)
		store.On("Reserve", mock.Anything, "key-1", mock.Anything).Return(true, nil)
		store.On("Complete", mock.Anything, "key-1", mock.Anything, http.StatusUnprocessableEntity, mock.Anything).Return(nil)

		h := NewLedgerHandler(engine, store, nil)
		w := postJSON(t, h.Withdraw, "/withdrawals", body, headers)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		store.AssertExpectations(t)
	})

	t.Run("repeat is replayed without posting", func(t *testing.T) {
		engine := &MockPostingEngine{}
		engine.On("Withdraw", mock.Anything, accountA, "25", "").
			Return(&models.PostingResult{TransactionID: "t1", Status: models.StatusCompleted}, nil).Once()

		h := NewLedgerHandler(engine, newMemoryIdempotencyStore(), nil)
		first := postJSON(t, h.Withdraw, "/withdrawals", body, headers)
		require.Equal(t, http.StatusCreated, first.Code)

		// Same request with different key order and spacing.
		w := postJSON(t, h.Withdraw, "/withdrawals", `{ "amount": "25.00", "account_id": "`+accountA+`" }`, headers)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "true", w.Header().Get(IdempotentReplayedHeader))
		assert.JSONEq(t, `{"transactionId":"t1","status":"completed"}`, w.Body.String())
		engine.AssertNumberOfCalls(t, "Withdraw", 1)
	})

	t.Run("key reused on another route is rejected", func(t *testing.T) {
		engine := &MockPostingEngine{}
		engine.On("Deposit", mock.Anything, accountA, "25", "").
			Return(&models.PostingResult{TransactionID: "dep-1"}, nil)

		h := NewLedgerHandler(engine, newMemoryIdempotencyStore(), nil)
		first := postJSON(t, h.Deposit, "/deposits", body, headers)
		require.Equal(t, http.StatusCreated, first.Code)

		w := postJSON(t, h.Transfer, "/transfers",
			`{"from_account_id":"`+accountA+`","to_account_id":"`+accountB+`","amount":"500"}`, headers)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Empty(t, w.Header().Get(IdempotentReplayedHeader))
		assert.NotContains(t, w.Body.String(), "dep-1")
		engine.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("key reused with a different body is rejected", func(t *testing.T) {
		engine := &MockPostingEngine{}
		engine.On("Withdraw", mock.Anything, accountA, "25", "").
			Return(&models.PostingResult{TransactionID: "t1", Status: models.StatusCompleted}, nil)

		h := NewLedgerHandler(engine, newMemoryIdempotencyStore(), nil)
		first := postJSON(t, h.Withdraw, "/withdrawals", body, headers)
		require.Equal(t, http.StatusCreated, first.Code)

		w := postJSON(t, h.Withdraw, "/withdrawals", `{"account_id":"`+accountA+`","amount":"90"}`, headers)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		engine.AssertNumberOfCalls(t, "Withdraw", 1)
	})

	t.Run("keys are scoped to the caller", func(t *testing.T) {
		engine := &MockPostingEngine{}
		engine.On("Withdraw", mock.Anything, accountA, "25", "").
			Return(&models.PostingResult{TransactionID: "t1", Status: models.StatusCompleted}, nil)

		h := NewLedgerHandler(engine, newMemoryIdempotencyStore(), nil)
		for _, subject := range []string{"teller-1", "teller-2"} {
			r := httptest.NewRequest(http.MethodPost, "/withdrawals", bytes.NewBufferString(body))
			r.Header.Set(IdempotencyKeyHeader, "key-1")
			r = r.WithContext(middleware.WithSubject(r.Context(), subject))
			w := httptest.NewRecorder()
			h.Withdraw(w, r)

			assert.Equal(t, http.StatusCreated, w.Code, subject)
			assert.Empty(t, w.Header().Get(IdempotentReplayedHeader), subject)
		}
		engine.AssertNumberOfCalls(t, "Withdraw", 2)
	})

	t.Run("pending reservation for another request is rejected", func(t *testing.T) {
		engine := &MockPostingEngine{}
		store := &MockIdempotencyStore{}
		store.On("Reserve", mock.Anything, "key-1", mock.Anything).Return(false, nil)
		store.On("Lookup", mock.Anything, "key-1").Return(&services.StoredResponse{Fingerprint: "other"}, nil)

		h := NewLedgerHandler(engine, store, nil)
		w := postJSON(t, h.Withdraw, "/withdrawals", body, headers)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("concurrent duplicate is 409", func(t *testing.T) {
		engine := &MockPostingEngine{}
		store := &MockIdempotencyStore{}
		store.On("Reserve", mock.Anything, "key-1", mock.Anything).Return(false, nil)
		store.On("Lookup", mock.Anything, "key-1").Return(nil, services.ErrRequestInProgress)

		h := NewLedgerHandler(engine, store, nil)
		w := postJSON(t, h.Withdraw, "/withdrawals", body, headers)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("server errors release the key", func(t *testing.T) {
		engine := &MockPostingEngine{}
		store := &MockIdempotencyStore{}
		engine.On("Withdraw", mock.Anything, accountA, "25", "").
			Return(nil, &services.StoreError{Op: "lock account", Err: services.ErrLockTimeout})
		store.On("Reserve", mock.Anything, "key-1", mock.Anything).Return(true, nil)
		store.On("Release", mock.Anything, "key-1").Return(nil)

		h := NewLedgerHandler(engine, store, nil)
		w := postJSON(t, h.Withdraw, "/withdrawals", body, headers)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		store.AssertExpectations(t)
		store.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store outage is 503", func(t *testing.T) {
		engine := &MockPostingEngine{}
		store := &MockIdempotencyStore{}
		store.On("Reserve", mock.Anything, "key-1", mock.Anything).Return(false, errors.New("redis down"))

		h := NewLedgerHandler(engine, store, nil)
		w := postJSON(t, h.Withdraw, "/withdrawals", body, headers)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		engine.AssertNotCalled(t, "Withdraw", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("oversized key", func(t *testing.T) {
		h := NewLedgerHandler(&MockPostingEngine{}, &MockIdempotencyStore{}, nil)
		w := postJSON(t, h.Withdraw, "/withdrawals", body,
			map[string]string{IdempotencyKeyHeader: strings.Repeat("k", maxIdempotencyKeyLength+1)})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
