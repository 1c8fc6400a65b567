// internal/workers/rules/save-matching-rule/models.go
package savematchingrule

import (
	"github.com/shopspring/decimal"
)

// Input carries the raw rule payload. The payload is kept untyped so it can
// be schema-validated before decoding.
type Input struct {
	Rule map[string]interface{} `json:"rule"`
}

// RulePayload is the decoded shape of a validated rule payload.
type RulePayload struct {
	ID                  string          `json:"id,omitempty"`
	ConnectionID        string          `json:"connectionId"`
	TenantID            string          `json:"tenantId"`
	LandlordID          string          `json:"landlordId"`
	ExpectedAmount      decimal.Decimal `json:"expectedAmount"`
	ToleranceAmount     decimal.Decimal `json:"toleranceAmount"`
	SenderName          string          `json:"senderName,omitempty"`
	SenderIBAN          string          `json:"senderIban,omitempty"`
	DescriptionContains string          `json:"descriptionContains,omitempty"`
	DeadlineDay         int             `json:"deadlineDay,omitempty"`
	Active              *bool           `json:"active,omitempty"`
}

// Output is the result returned to the process instance.
type Output struct {
	RuleID           string `json:"ruleId"`
	Active           bool   `json:"active"`
	CacheInvalidated bool   `json:"cacheInvalidated"`
}
