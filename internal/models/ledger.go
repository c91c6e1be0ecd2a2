package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
)

type EntryType string

const (
	EntryTypeCredit EntryType = "credit"
	EntryTypeDebit  EntryType = "debit"
)

// StatusCompleted is reported for debit-producing postings once they commit.
const StatusCompleted = "completed"

// LedgerEntry is one immutable signed amount posted against one account.
// Credits are positive, debits negative; EntryType repeats the sign for auditors.
type LedgerEntry struct {
	ID            string          `json:"id" db:"id"`
	AccountID     string          `json:"account_id" db:"account_id"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	EntryType     EntryType       `json:"entry_type" db:"entry_type"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// NewEntry builds an entry whose sign follows its type.
func NewEntry(id, accountID, transactionID string, amount decimal.Decimal, entryType EntryType) LedgerEntry {
	signed := amount.Abs()
	if entryType == EntryTypeDebit {
		signed = signed.Neg()
	}
	return LedgerEntry{
		ID:            id,
		AccountID:     accountID,
		TransactionID: transactionID,
		Amount:        signed,
		EntryType:     entryType,
	}
}

// Validate checks that the entry type tag agrees with the amount sign.
func (e LedgerEntry) Validate() error {
	switch e.EntryType {
	case EntryTypeCredit:
		if !e.Amount.IsPositive() {
			return fmt.Errorf("credit entry %s must have a positive amount, got %s", e.ID, e.Amount)
		}
	case EntryTypeDebit:
		if !e.Amount.IsNegative() {
			return fmt.Errorf("debit entry %s must have a negative amount, got %s", e.ID, e.Amount)
		}
	default:
		return fmt.Errorf("entry %s has unknown type %q", e.ID, e.EntryType)
	}
	return nil
}

// Transaction is the header grouping the entries written atomically together.
type Transaction struct {
	ID          string          `json:"id" db:"id"`
	Type        TransactionType `json:"type" db:"type"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	Entries     []LedgerEntry   `json:"entries,omitempty"`
}

// Debit returns the first debit entry, or nil for deposits.
func (t *Transaction) Debit() *LedgerEntry {
	return t.entryOfType(EntryTypeDebit)
}

// Credit returns the first credit entry, or nil for withdrawals.
func (t *Transaction) Credit() *LedgerEntry {
	return t.entryOfType(EntryTypeCredit)
}

func (t *Transaction) entryOfType(entryType EntryType) *LedgerEntry {
	for i := range t.Entries {
		if t.Entries[i].EntryType == entryType {
			return &t.Entries[i]
		}
	}
	return nil
}

// Net sums the entry amounts. Transfers net to zero.
func (t *Transaction) Net() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range t.Entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// PostingResult is returned by the engine for every committed operation.
type PostingResult struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status,omitempty"`
}

// LedgerEvent is published after a posting commits.
type LedgerEvent struct {
	TransactionID string          `json:"transaction_id"`
	Type          TransactionType `json:"type"`
	Description   string          `json:"description,omitempty"`
	Entries       []LedgerEntry   `json:"entries"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
