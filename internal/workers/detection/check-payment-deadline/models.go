// internal/workers/detection/check-payment-deadline/models.go
package checkpaymentdeadline

// Input holds the variables for the deadline sweep job.
type Input struct {
	LandlordID    string `json:"landlordId"`
	ReferenceDate string `json:"referenceDate,omitempty"` // YYYY-MM-DD, defaults to today
}

// OverdueTenant describes one tenant whose rent deadline has passed without a
// matched payment this period.
type OverdueTenant struct {
	RuleID      string `json:"ruleId"`
	TenantID    string `json:"tenantId"`
	DeadlineDay int    `json:"deadlineDay"`
	Period      string `json:"period"`
}

// Output is the result returned to the process instance.
type Output struct {
	Period       string          `json:"period"`
	CheckedRules int             `json:"checkedRules"`
	Overdue      []OverdueTenant `json:"overdue"`
}
