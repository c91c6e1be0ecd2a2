package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"go.uber.org/zap"
)

const (
	insertAccountQuery = `INSERT INTO accounts (id, user_name, account_type, currency) VALUES ($1, $2, $3, $4)`
	selectAccountQuery = `SELECT id, user_name, account_type, currency FROM accounts WHERE id = $1`
	selectLedgerQuery  = `SELECT id, account_id, transaction_id, amount, entry_type, created_at
		FROM ledger_entries WHERE account_id = $1 ORDER BY created_at DESC, id DESC`
	selectTransactionQuery = `SELECT id, type, COALESCE(description, ''), created_at FROM transactions WHERE id = $1`
	selectEntriesQuery     = `SELECT id, account_id, transaction_id, amount, entry_type, created_at
		FROM ledger_entries WHERE transaction_id = $1 ORDER BY amount ASC`
)

// AccountService owns account identity and the read side of the ledger.
type AccountService struct {
	db       *sql.DB
	balances *BalanceService
	logger   *zap.Logger
}

func NewAccountService(db *sql.DB, balances *BalanceService, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		db:       db,
		balances: balances,
		logger:   logger.Named("accounts"),
	}
}

// CreateAccount opens an account with a random id. New accounts start with no entries.
func (s *AccountService) CreateAccount(ctx context.Context, userName, accountType, currency string) (*models.Account, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return nil, NewValidationError("user_name", "must be non-empty", nil)
	}
	if accountType == "" {
		return nil, NewValidationError("account_type", "must be non-empty", nil)
	}
	if len(currency) != 3 {
		return nil, NewValidationError("currency", "must be a 3-letter ISO 4217 code", nil)
	}

	account := &models.Account{
		ID:          uuid.NewString(),
		UserName:    userName,
		AccountType: accountType,
		Currency:    strings.ToUpper(currency),
	}

	_, err := s.db.ExecContext(ctx, insertAccountQuery, account.ID, account.UserName, account.AccountType, account.Currency)
	if err != nil {
		return nil, &StoreError{Op: "insert account", AccountID: account.ID, Err: err}
	}

	s.logger.Info("account created",
		zap.String("account_id", account.ID),
		zap.String("account_type", account.AccountType),
		zap.String("currency", account.Currency),
	)
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	if err := validateAccountID("id", accountID); err != nil {
		return nil, err
	}

	var account models.Account
	err := s.db.QueryRowContext(ctx, selectAccountQuery, accountID).
		Scan(&account.ID, &account.UserName, &account.AccountType, &account.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "select account", AccountID: accountID, Err: err}
	}
	return &account, nil
}

// GetAccountWithBalance derives the balance at read time. The read takes no lock.
func (s *AccountService) GetAccountWithBalance(ctx context.Context, accountID string) (*models.AccountWithBalance, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	balance, err := s.balances.Balance(ctx, accountID)
	if err != nil {
		return nil, &StoreError{Op: "sum balance", AccountID: accountID, Err: err}
	}

	return &models.AccountWithBalance{
		Account: *account,
		Balance: balance,
	}, nil
}

// GetLedger lists an account's entries, newest first.
func (s *AccountService) GetLedger(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, selectLedgerQuery, accountID)
	if err != nil {
		return nil, &StoreError{Op: "select ledger", AccountID: accountID, Err: err}
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, &StoreError{Op: "scan ledger", AccountID: accountID, Err: err}
	}
	return entries, nil
}

// GetTransaction loads a header with its entries, debits first.
func (s *AccountService) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	if _, err := uuid.Parse(transactionID); err != nil {
		return nil, NewValidationError("id", "must be a UUID", nil)
	}

	var tx models.Transaction
	err := s.db.QueryRowContext(ctx, selectTransactionQuery, transactionID).
		Scan(&tx.ID, &tx.Type, &tx.Description, &tx.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", transactionID, err)
	}

	rows, err := s.db.QueryContext(ctx, selectEntriesQuery, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for transaction %s: %w", transactionID, err)
	}
	defer rows.Close()

	tx.Entries, err = scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan entries for transaction %s: %w", transactionID, err)
	}
	return &tx, nil
}

func scanEntries(rows *sql.Rows) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	for rows.Next() {
		var entry models.LedgerEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.TransactionID,
			&entry.Amount,
			&entry.EntryType,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
