package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/audit"
	"github.com/ruralpay/ledger/internal/config"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxAmountScale matches the NUMERIC(20,4) ledger_entries.amount column.
const MaxAmountScale = 4

// MaxAmount is the exclusive upper bound NUMERIC(20,4) can hold.
var MaxAmount = decimal.New(1, 20-MaxAmountScale)

const (
	insertTransactionQuery = `INSERT INTO transactions (id, type, description) VALUES ($1, $2, $3)`
	insertEntryQuery       = `INSERT INTO ledger_entries (id, account_id, transaction_id, amount, entry_type) VALUES ($1, $2, $3, $4, $5)`
	setLockTimeoutQuery    = `SELECT set_config('lock_timeout', $1, true)`
)

// LedgerService is the transaction engine. It holds no mutable state: conflicting
// postings are serialized by the store's row locks.
type LedgerService struct {
	db       *sql.DB
	balances *BalanceService
	config   *config.LedgerConfig
	audit    *audit.Logger
	events   EventPublisher
	logger   *zap.Logger
}

func NewLedgerService(db *sql.DB, balances *BalanceService, cfg *config.LedgerConfig, auditLogger *audit.Logger, events EventPublisher, logger *zap.Logger) *LedgerService {
	if cfg == nil {
		cfg = &config.LedgerConfig{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		db:       db,
		balances: balances,
		config:   cfg,
		audit:    auditLogger,
		events:   events,
		logger:   logger.Named("ledger"),
	}
}

// Deposit credits an account. It never reads the balance, so it takes no lock.
func (s *LedgerService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string) (*models.PostingResult, error) {
	eventType := string(models.TransactionTypeDeposit)
	if err := validatePosting("account_id", accountID, amount); err != nil {
		return nil, s.fail(eventType, accountID, amount, err)
	}

	transactionID := uuid.NewString()
	entries := []models.LedgerEntry{
		models.NewEntry(uuid.NewString(), accountID, transactionID, amount, models.EntryTypeCredit),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.post(ctx, tx, transactionID, models.TransactionTypeDeposit, description, entries)
	})
	if err != nil {
		return nil, s.fail(eventType, accountID, amount, wrapStoreError("deposit", accountID, amount, err))
	}

	s.committed(ctx, transactionID, models.TransactionTypeDeposit, description, entries)
	s.audit.LogPosting(transactionID, eventType, accountID, "", amount)
	return &models.PostingResult{TransactionID: transactionID}, nil
}

// Withdraw debits an account after checking, under the account lock, that the
// derived balance covers the amount.
func (s *LedgerService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string) (*models.PostingResult, error) {
	eventType := string(models.TransactionTypeWithdrawal)
	if err := validatePosting("account_id", accountID, amount); err != nil {
		return nil, s.fail(eventType, accountID, amount, err)
	}

	transactionID := uuid.NewString()
	entries := []models.LedgerEntry{
		models.NewEntry(uuid.NewString(), accountID, transactionID, amount, models.EntryTypeDebit),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockAndCheck(ctx, tx, accountID, amount); err != nil {
			return err
		}
		return s.post(ctx, tx, transactionID, models.TransactionTypeWithdrawal, description, entries)
	})
	if err != nil {
		return nil, s.fail(eventType, accountID, amount, wrapStoreError("withdraw", accountID, amount, err))
	}

	s.committed(ctx, transactionID, models.TransactionTypeWithdrawal, description, entries)
	s.audit.LogPosting(transactionID, eventType, accountID, "", amount)
	return &models.PostingResult{TransactionID: transactionID, Status: models.StatusCompleted}, nil
}

// Transfer moves amount between two accounts as one balanced pair of entries.
// Only the source row is locked: credits cannot violate solvency.
func (s *LedgerService) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal, description string) (*models.PostingResult, error) {
	eventType := string(models.TransactionTypeTransfer)
	if err := validatePosting("from_account_id", fromAccountID, amount); err != nil {
		return nil, s.fail(eventType, fromAccountID, amount, err)
	}
	if err := validateAccountID("to_account_id", toAccountID); err != nil {
		return nil, s.fail(eventType, fromAccountID, amount, err)
	}
	if fromAccountID == toAccountID {
		return nil, s.fail(eventType, fromAccountID, amount,
			NewValidationError("to_account_id", "must differ from from_account_id", ErrSameAccount))
	}

	transactionID := uuid.NewString()
	entries := []models.LedgerEntry{
		models.NewEntry(uuid.NewString(), fromAccountID, transactionID, amount, models.EntryTypeDebit),
		models.NewEntry(uuid.NewString(), toAccountID, transactionID, amount, models.EntryTypeCredit),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockAndCheck(ctx, tx, fromAccountID, amount); err != nil {
			return err
		}
		return s.post(ctx, tx, transactionID, models.TransactionTypeTransfer, description, entries)
	})
	if err != nil {
		return nil, s.fail(eventType, fromAccountID, amount, wrapStoreError("transfer", fromAccountID, amount, err))
	}

	s.committed(ctx, transactionID, models.TransactionTypeTransfer, description, entries)
	s.audit.LogPosting(transactionID, eventType, fromAccountID, toAccountID, amount)
	return &models.PostingResult{TransactionID: transactionID, Status: models.StatusCompleted}, nil
}

// withTx runs fn inside one store transaction. Any error or panic rolls back
// before returning; the connection goes back to the pool on every path.
func (s *LedgerService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "begin", Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			s.rollback(tx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		s.rollback(tx)
		return err
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "commit", Err: err}
	}
	return nil
}

func (s *LedgerService) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.Warn("rollback failed", zap.Error(err))
	}
}

// lockAndCheck bounds the lock wait, locks the account row and verifies solvency.
func (s *LedgerService) lockAndCheck(ctx context.Context, tx *sql.Tx, accountID string, amount decimal.Decimal) error {
	if s.config.LockTimeout > 0 {
		timeout := fmt.Sprintf("%dms", s.config.LockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, setLockTimeoutQuery, timeout); err != nil {
			return wrapStoreError("set lock timeout", accountID, amount, err)
		}
	}

	balance, err := s.balances.ResolveBalance(ctx, tx, accountID, true)
	if err != nil {
		return wrapStoreError("lock account", accountID, amount, err)
	}

	if balance.LessThan(amount) {
		return &InsufficientFundsError{
			AccountID: accountID,
			Balance:   balance,
			Requested: amount,
		}
	}
	return nil
}

// post writes the header and then every entry under the same transaction id.
func (s *LedgerService) post(ctx context.Context, tx *sql.Tx, transactionID string, txType models.TransactionType, description string, entries []models.LedgerEntry) error {
	if _, err := tx.ExecContext(ctx, insertTransactionQuery, transactionID, string(txType), description); err != nil {
		return wrapStoreError("insert transaction", entries[0].AccountID, entries[0].Amount.Abs(), err)
	}

	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, insertEntryQuery,
			entry.ID, entry.AccountID, transactionID, entry.Amount, string(entry.EntryType))
		if err != nil {
			return wrapStoreError("insert ledger entry", entry.AccountID, entry.Amount.Abs(), err)
		}
	}
	return nil
}

func (s *LedgerService) committed(ctx context.Context, transactionID string, txType models.TransactionType, description string, entries []models.LedgerEntry) {
	s.logger.Info("posting committed",
		zap.String("transaction_id", transactionID),
		zap.String("type", string(txType)),
		zap.Int("entries", len(entries)),
	)

	if s.events == nil {
		return
	}
	event := models.LedgerEvent{
		TransactionID: transactionID,
		Type:          txType,
		Description:   description,
		Entries:       entries,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish ledger event",
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
	}
}

func (s *LedgerService) fail(eventType, accountID string, amount decimal.Decimal, err error) error {
	fields := []zap.Field{
		zap.String("operation", eventType),
		zap.String("account_id", accountID),
		zap.String("amount", amount.String()),
		zap.Error(err),
	}
	if IsValidationError(err) || IsInsufficientFunds(err) || IsNotFound(err) {
		s.logger.Warn("posting rejected", fields...)
	} else {
		s.logger.Error("posting failed", fields...)
	}
	s.audit.LogError(eventType, accountID, amount, err)
	return err
}

func validatePosting(field, accountID string, amount decimal.Decimal) error {
	if err := validateAccountID(field, accountID); err != nil {
		return err
	}
	return validateAmount(amount)
}

func validateAccountID(field, accountID string) error {
	if accountID == "" {
		return NewValidationError(field, "must be non-empty", ErrInvalidAccountID)
	}
	if _, err := uuid.Parse(accountID); err != nil {
		return NewValidationError(field, "must be a UUID", ErrInvalidAccountID)
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero", ErrInvalidAmount)
	}
	if amount.GreaterThanOrEqual(MaxAmount) {
		return NewValidationError("amount", fmt.Sprintf("must be less than %s", MaxAmount), ErrInvalidAmount)
	}
	if !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return NewValidationError("amount", fmt.Sprintf("must have at most %d decimal places", MaxAmountScale), ErrInvalidAmount)
	}
	return nil
}
