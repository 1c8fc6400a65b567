package matching

import (
	"fmt"

	"quittance-workers/internal/models"
)

// ValidateRule rejects rules that can never behave sensibly. Only genuinely
// invalid values are errors: a negative expected amount or tolerance, or a
// deadline day outside the calendar. A zero expected amount or a rule with
// no optional checks is accepted; the amount check alone still applies.
func ValidateRule(rule *models.MatchingRule) error {
	if rule.TenantID == "" {
		return fmt.Errorf("matching rule requires a tenant")
	}
	if rule.ExpectedAmount.IsNegative() {
		return fmt.Errorf("expected amount cannot be negative, got %s", rule.ExpectedAmount)
	}
	if rule.ToleranceAmount.IsNegative() {
		return fmt.Errorf("tolerance amount cannot be negative, got %s", rule.ToleranceAmount)
	}
	if rule.DetectionDeadlineDay != 0 && (rule.DetectionDeadlineDay < 1 || rule.DetectionDeadlineDay > 31) {
		return fmt.Errorf("detection deadline day must be between 1 and 31, got %d", rule.DetectionDeadlineDay)
	}
	return nil
}
