package handlers

import (
	"context"
	"sync"

	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockPostingEngine struct {
	mock.Mock
}

func (m *MockPostingEngine) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string) (*models.PostingResult, error) {
	args := m.Called(ctx, accountID, amount.String(), description)
	return postingResult(args)
}

func (m *MockPostingEngine) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string) (*models.PostingResult, error) {
	args := m.Called(ctx, accountID, amount.String(), description)
	return postingResult(args)
}

func (m *MockPostingEngine) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal, description string) (*models.PostingResult, error) {
	args := m.Called(ctx, fromAccountID, toAccountID, amount.String(), description)
	return postingResult(args)
}

func postingResult(args mock.Arguments) (*models.PostingResult, error) {
	if result, ok := args.Get(0).(*models.PostingResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Reserve(ctx context.Context, key, fingerprint string) (bool, error) {
	args := m.Called(ctx, key, fingerprint)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Lookup(ctx context.Context, key string) (*services.StoredResponse, error) {
	args := m.Called(ctx, key)
	if stored, ok := args.Get(0).(*services.StoredResponse); ok {
		return stored, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdempotencyStore) Complete(ctx context.Context, key, fingerprint string, statusCode int, body []byte) error {
	args := m.Called(ctx, key, fingerprint, statusCode, body)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// memoryIdempotencyStore keeps SETNX semantics in a map so tests can send
// several requests through one handler.
type memoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]services.StoredResponse
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{records: make(map[string]services.StoredResponse)}
}

func (s *memoryIdempotencyStore) Reserve(_ context.Context, key, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = services.StoredResponse{Fingerprint: fingerprint}
	return true, nil
}

func (s *memoryIdempotencyStore) Lookup(_ context.Context, key string) (*services.StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[key]
	if !ok {
		return nil, services.ErrRequestInProgress
	}
	return &stored, nil
}

func (s *memoryIdempotencyStore) Complete(_ context.Context, key, fingerprint string, statusCode int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = services.StoredResponse{Fingerprint: fingerprint, StatusCode: statusCode, Body: body}
	return nil
}

func (s *memoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

type MockAccountReader struct {
	mock.Mock
}

func (m *MockAccountReader) CreateAccount(ctx context.Context, userName, accountType, currency string) (*models.Account, error) {
	args := m.Called(ctx, userName, accountType, currency)
	if account, ok := args.Get(0).(*models.Account); ok {
		return account, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountReader) GetAccountWithBalance(ctx context.Context, accountID string) (*models.AccountWithBalance, error) {
	args := m.Called(ctx, accountID)
	if account, ok := args.Get(0).(*models.AccountWithBalance); ok {
		return account, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountReader) GetLedger(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	args := m.Called(ctx, accountID)
	if entries, ok := args.Get(0).([]models.LedgerEntry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountReader) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if tx, ok := args.Get(0).(*models.Transaction); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTransferExporter struct {
	mock.Mock
}

func (m *MockTransferExporter) ExportTransfer(ctx context.Context, transactionID string) (*services.Pacs008Export, error) {
	args := m.Called(ctx, transactionID)
	if export, ok := args.Get(0).(*services.Pacs008Export); ok {
		return export, args.Error(1)
	}
	return nil, args.Error(1)
}

const (
	accountA = "6f1c2b9e-3d4a-4c5b-8e7f-9a0b1c2d3e4f"
	accountB = "0a1b2c3d-4e5f-4a6b-9c7d-8e9f0a1b2c3d"
)
