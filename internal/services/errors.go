package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount       = errors.New("amount must be a positive decimal")
	ErrInvalidAccountID    = errors.New("invalid account ID")
	ErrSameAccount         = errors.New("source and destination accounts cannot be the same")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrLockTimeout         = errors.New("timed out waiting for account lock")
)

// Postgres SQLSTATE codes the engine translates.
const (
	pqNumericOverflow     = "22003"
	pqForeignKeyViolation = "23503"
	pqLockNotAvailable    = "55P03"
	pqQueryCanceled       = "57014"
)

type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidationError(field, message string, cause error) error {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     cause,
	}
}

// InsufficientFundsError carries the balance observed under the account lock.
type InsufficientFundsError struct {
	AccountID string
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: account %s has %s, requested %s", e.AccountID, e.Balance, e.Requested)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// StoreError wraps a failed store round trip with the posting context.
type StoreError struct {
	Op        string
	AccountID string
	Amount    decimal.Decimal
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during '%s' (account %s, amount %s): %v", e.Op, e.AccountID, e.Amount, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrapStoreError classifies a driver error. Domain errors pass through untouched.
func wrapStoreError(op, accountID string, amount decimal.Decimal, err error) error {
	if err == nil {
		return nil
	}
	if IsValidationError(err) || IsInsufficientFunds(err) || IsNotFound(err) {
		return err
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}

	cause := err
	var pqErr *pq.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		cause = fmt.Errorf("%w: %w", ErrLockTimeout, err)
	case errors.As(err, &pqErr):
		switch pqErr.Code {
		case pqLockNotAvailable, pqQueryCanceled:
			cause = fmt.Errorf("%w: %w", ErrLockTimeout, err)
		case pqForeignKeyViolation:
			cause = fmt.Errorf("%w: %w", ErrAccountNotFound, err)
		case pqNumericOverflow:
			return NewValidationError("amount", "does not fit the ledger amount column", fmt.Errorf("%w: %w", ErrInvalidAmount, err))
		}
	}

	return &StoreError{
		Op:        op,
		AccountID: accountID,
		Amount:    amount,
		Err:       cause,
	}
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrTransactionNotFound)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
