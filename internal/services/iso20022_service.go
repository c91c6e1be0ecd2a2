package services

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/shopspring/decimal"
)

const (
	Pacs008MessageType = "pacs.008.001.08"
	ledgerBIC          = "RURALPAY"
)

var ErrAmountNotRepresentable = errors.New("amount cannot be carried exactly in a pacs.008 message")

// LedgerReader is the read side the exporter needs.
type LedgerReader interface {
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
}

// Pacs008Export is a rendered credit transfer ready for a settlement counterparty.
type Pacs008Export struct {
	TransactionID string `json:"transactionId"`
	MessageID     string `json:"messageId"`
	MessageType   string `json:"messageType"`
	XML           string `json:"xml"`
}

type ISO20022Service struct {
	ledger LedgerReader
	now    func() time.Time
}

func NewISO20022Service(ledger LedgerReader) *ISO20022Service {
	return &ISO20022Service{
		ledger: ledger,
		now:    time.Now,
	}
}

// ExportTransfer renders a committed transfer as pacs.008.
func (iso *ISO20022Service) ExportTransfer(ctx context.Context, transactionID string) (*Pacs008Export, error) {
	tx, err := iso.ledger.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Type != models.TransactionTypeTransfer {
		return nil, NewValidationError("id", fmt.Sprintf("transaction is a %s, only transfers can be exported", tx.Type), nil)
	}

	debit, credit := tx.Debit(), tx.Credit()
	if debit == nil || credit == nil {
		return nil, fmt.Errorf("transfer %s is missing a leg", tx.ID)
	}

	debtor, err := iso.ledger.GetAccount(ctx, debit.AccountID)
	if err != nil {
		return nil, err
	}
	creditor, err := iso.ledger.GetAccount(ctx, credit.AccountID)
	if err != nil {
		return nil, err
	}

	doc, msgID, err := iso.CreatePacs008(tx, credit, debtor, creditor)
	if err != nil {
		return nil, err
	}
	xmlData, err := iso.ConvertToXML(doc)
	if err != nil {
		return nil, err
	}

	return &Pacs008Export{
		TransactionID: tx.ID,
		MessageID:     msgID,
		MessageType:   Pacs008MessageType,
		XML:           xmlData,
	}, nil
}

// CreatePacs008 builds the FIToFICustomerCreditTransfer document for one transfer.
// The message amount is a float64, so amounts it cannot hold exactly are refused.
func (iso *ISO20022Service) CreatePacs008(tx *models.Transaction, credit *models.LedgerEntry, debtor, creditor *models.Account) (*pacs_v08.FIToFICustomerCreditTransferV08, string, error) {
	value, err := settlementValue(credit.Amount)
	if err != nil {
		return nil, "", err
	}

	msgID := max35(uuid.NewString())
	txID := max35(tx.ID)
	creDtTm := iso.now()
	settlementDate := tx.CreatedAt
	if settlementDate.IsZero() {
		settlementDate = creDtTm
	}

	amount := pacs_v08.ActiveCurrencyAndAmount{
		Ccy:   common.ActiveCurrencyCode(debtor.Currency),
		Value: value,
	}

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:             common.Max35Text(msgID),
			CreDtTm:           common.ISODateTime(creDtTm),
			NbOfTxs:           "1",
			TtlIntrBkSttlmAmt: &amount,
			IntrBkSttlmDt:     (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG",
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(txID)}[0],
					EndToEndId: common.Max35Text(txID),
					TxId:       &[]common.Max35Text{common.Max35Text(txID)}[0],
				},
				IntrBkSttlmAmt: amount,
				IntrBkSttlmDt:  (*common.ISODate)(&settlementDate),
				ChrgBr:         "SLEV",
				DbtrAgt:        ledgerAgent(),
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(debtor.UserName)}[0],
				},
				CdtrAgt: ledgerAgent(),
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(creditor.UserName)}[0],
				},
			},
		},
	}

	return doc, msgID, nil
}

func settlementValue(amount decimal.Decimal) (float64, error) {
	value := amount.InexactFloat64()
	if !decimal.NewFromFloat(value).Equal(amount) {
		return 0, NewValidationError("amount", fmt.Sprintf("%s cannot be carried exactly in a pacs.008 message", amount), ErrAmountNotRepresentable)
	}
	return value, nil
}

// ConvertToXML converts ISO20022 document to XML string
func (iso *ISO20022Service) ConvertToXML(doc any) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}

func ledgerAgent() pacs_v08.BranchAndFinancialInstitutionIdentification6 {
	return pacs_v08.BranchAndFinancialInstitutionIdentification6{
		FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
			BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(ledgerBIC)}[0],
		},
	}
}

// max35 strips UUID hyphens so ids fit Max35Text.
func max35(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 35 {
		return id[:35]
	}
	return id
}
