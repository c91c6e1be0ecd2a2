package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	lockAccountQuery = `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`
	sumBalanceQuery  = `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE account_id = $1`
)

// BalanceService derives balances from the ledger. It never stores them.
type BalanceService struct {
	db *sql.DB
}

func NewBalanceService(db *sql.DB) *BalanceService {
	return &BalanceService{db: db}
}

// Balance reads the committed balance of an account without locking.
func (s *BalanceService) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return s.ResolveBalance(ctx, s.db, accountID, false)
}

// ResolveBalance sums every ledger entry of the account. With lock set, q must be
// an open *sql.Tx: the account row is locked FOR UPDATE first, so the sum and the
// caller's subsequent writes are serialized against other lockers until the
// transaction ends. The lock target is the account row, never the entries.
func (s *BalanceService) ResolveBalance(ctx context.Context, q Querier, accountID string, lock bool) (decimal.Decimal, error) {
	if lock {
		var lockedID string
		err := q.QueryRowContext(ctx, lockAccountQuery, accountID).Scan(&lockedID)
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		if err != nil {
			return decimal.Zero, err
		}
	}

	var balance decimal.Decimal
	if err := q.QueryRowContext(ctx, sumBalanceQuery, accountID).Scan(&balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}
