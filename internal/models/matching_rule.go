// internal/models/matching_rule.go
package models

import "github.com/shopspring/decimal"

// MatchingRule describes how a landlord expects one tenant's rent to appear
// in the bank feed. One rule per (bank connection, tenant).
type MatchingRule struct {
	ID                   string          `json:"id"`
	BankConnectionID     string          `json:"bankConnectionId"`
	TenantID             string          `json:"tenantId"`
	LandlordID           string          `json:"landlordId"`
	ExpectedAmount       decimal.Decimal `json:"expectedAmount"`
	ToleranceAmount      decimal.Decimal `json:"toleranceAmount"`
	SenderName           string          `json:"senderName,omitempty"`
	SenderIBAN           string          `json:"senderIban,omitempty"`
	DescriptionContains  string          `json:"descriptionContains,omitempty"`  // comma-delimited keywords
	DetectionDeadlineDay int             `json:"detectionDeadlineDay,omitempty"` // 1-31, 0 = no deadline
	Active               bool            `json:"active"`
	CreatedAt            string          `json:"createdAt"`
	UpdatedAt            string          `json:"updatedAt"`
}

// HasSenderNameCheck reports whether the optional sender-name check is active.
func (r *MatchingRule) HasSenderNameCheck() bool { return r.SenderName != "" }

// HasIBANCheck reports whether the optional IBAN check is active.
func (r *MatchingRule) HasIBANCheck() bool { return r.SenderIBAN != "" }

// HasDescriptionCheck reports whether the optional description check is active.
func (r *MatchingRule) HasDescriptionCheck() bool { return r.DescriptionContains != "" }

// ActiveCheckCount counts the checks this rule applies. The amount check
// always counts.
func (r *MatchingRule) ActiveCheckCount() int {
	count := 1
	if r.HasSenderNameCheck() {
		count++
	}
	if r.HasIBANCheck() {
		count++
	}
	if r.HasDescriptionCheck() {
		count++
	}
	return count
}
