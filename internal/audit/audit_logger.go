package audit

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

type Event struct {
	Timestamp     time.Time
	EventType     string
	TransactionID string
	AccountID     string
	Counterparty  string
	Amount        decimal.Decimal
	Status        string
	Error         string
}

func (e Event) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddTime("timestamp", e.Timestamp)
	enc.AddString("event_type", e.EventType)
	if e.TransactionID != "" {
		enc.AddString("transaction_id", e.TransactionID)
	}
	enc.AddString("account_id", e.AccountID)
	if e.Counterparty != "" {
		enc.AddString("counterparty_account_id", e.Counterparty)
	}
	enc.AddString("amount", e.Amount.String())
	enc.AddString("status", e.Status)
	if e.Error != "" {
		enc.AddString("error", e.Error)
	}
	return nil
}

// Logger writes one structured record per money movement attempt.
// A nil *Logger discards everything.
type Logger struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewLogger(base *zap.Logger) *Logger {
	return &Logger{
		logger: base.Named("audit"),
		now:    time.Now,
	}
}

func (a *Logger) LogPosting(transactionID, eventType, accountID, counterparty string, amount decimal.Decimal) {
	a.log(Event{
		EventType:     eventType,
		TransactionID: transactionID,
		AccountID:     accountID,
		Counterparty:  counterparty,
		Amount:        amount,
		Status:        StatusSuccess,
	})
}

func (a *Logger) LogError(eventType, accountID string, amount decimal.Decimal, err error) {
	a.log(Event{
		EventType: eventType,
		AccountID: accountID,
		Amount:    amount,
		Status:    StatusFailed,
		Error:     err.Error(),
	})
}

func (a *Logger) log(event Event) {
	if a == nil {
		return
	}
	event.Timestamp = a.now()
	a.logger.Info("AUDIT", zap.Object("event", event))
}
