package models

import "github.com/shopspring/decimal"

// Account carries identity only. Balances are always derived from ledger entries.
type Account struct {
	ID          string `json:"id" db:"id"`
	UserName    string `json:"user_name" db:"user_name"`
	AccountType string `json:"account_type" db:"account_type"`
	Currency    string `json:"currency" db:"currency"`
}

type AccountWithBalance struct {
	Account
	Balance decimal.Decimal `json:"balance"`
}
