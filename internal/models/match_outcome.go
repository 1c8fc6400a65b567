// internal/models/match_outcome.go
package models

// Check names recorded in MatchOutcome.Reasons.
const (
	CheckAmount      = "amount"
	CheckSenderName  = "sender_name"
	CheckSenderIBAN  = "sender_iban"
	CheckDescription = "description"
)

// CheckResult records one evaluated check. Detail explains a failure in
// human-readable form for the review UI.
type CheckResult struct {
	Check  string `json:"check"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// MatchOutcome is the result of evaluating one transaction against one rule.
// Reasons holds every active check, pass or fail, so the UI can explain
// why a transaction did or did not match.
type MatchOutcome struct {
	Matched       bool          `json:"matched"`
	RuleID        string        `json:"ruleId"`
	TenantID      string        `json:"tenantId"`
	TransactionID string        `json:"transactionId"`
	Reasons       []CheckResult `json:"reasons"`
	ActiveChecks  int           `json:"activeChecks"`
}

// Resolution statuses for a transaction evaluated against a rule set.
const (
	ResolutionMatched   = "matched"
	ResolutionNone      = "none"
	ResolutionAmbiguous = "ambiguous"
)
