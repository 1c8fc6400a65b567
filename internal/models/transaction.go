// internal/models/transaction.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction is one normalized transaction from the bank aggregator.
// Amount is signed: positive is a credit to the landlord's account.
// SenderName and SenderIBAN are best-effort and often empty.
type BankTransaction struct {
	ID           string          `json:"id"`
	ConnectionID string          `json:"connectionId"`
	Amount       decimal.Decimal `json:"amount"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description,omitempty"`
	SenderName   string          `json:"senderName,omitempty"`
	SenderIBAN   string          `json:"senderIban,omitempty"`
}

// IsCredit reports whether the transaction is an incoming payment.
func (t *BankTransaction) IsCredit() bool {
	return t.Amount.IsPositive()
}
