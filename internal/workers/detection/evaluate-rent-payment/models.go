// internal/workers/detection/evaluate-rent-payment/models.go
package evaluaterentpayment

import (
	"github.com/shopspring/decimal"

	"quittance-workers/internal/models"
)

// parseAmount converts a numeric column scanned as text into a decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

type Input struct {
	ConnectionID string                   `json:"connectionId"`
	Transactions []models.BankTransaction `json:"transactions"`
}

type Output struct {
	Matched        []MatchedPayment       `json:"matched"`
	Ambiguous      []AmbiguousTransaction `json:"ambiguous"`
	Unmatched      []UnmatchedTransaction `json:"unmatched"`
	EvaluatedRules int                    `json:"evaluatedRules"`
}

// MatchedPayment is one detected rent payment. ReceiptDue is true only for
// the first matched payment of a (tenant, period); later matches in the
// same period report the match but do not trigger another receipt.
type MatchedPayment struct {
	TransactionID string               `json:"transactionId"`
	RuleID        string               `json:"ruleId"`
	TenantID      string               `json:"tenantId"`
	Period        string               `json:"period"`
	ReceiptDue    bool                 `json:"receiptDue"`
	Reasons       []models.CheckResult `json:"reasons"`
}

// AmbiguousTransaction is surfaced for manual review, never auto-assigned.
type AmbiguousTransaction struct {
	TransactionID    string                `json:"transactionId"`
	CandidateRuleIDs []string              `json:"candidateRuleIds"`
	Outcomes         []models.MatchOutcome `json:"outcomes"`
}

type UnmatchedTransaction struct {
	TransactionID string                `json:"transactionId"`
	Outcomes      []models.MatchOutcome `json:"outcomes"`
}
