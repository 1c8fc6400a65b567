package matching

import (
	"time"

	"quittance-workers/internal/models"
)

// Period returns the billing period key for a point in time, "YYYY-MM".
// Receipts and detection locks are keyed per tenant and period.
func Period(t time.Time) string {
	return t.Format("2006-01")
}

// DeadlineDay returns the effective deadline day of rule for the month of
// ref, clamping to the last day of short months so a day-31 deadline still
// fires in February.
func DeadlineDay(rule *models.MatchingRule, ref time.Time) int {
	lastDay := time.Date(ref.Year(), ref.Month()+1, 0, 0, 0, 0, 0, ref.Location()).Day()
	if rule.DetectionDeadlineDay > lastDay {
		return lastDay
	}
	return rule.DetectionDeadlineDay
}

// Overdue reports whether a reminder is due: the rule carries a deadline,
// no payment has matched for the current period, and today is past the
// effective deadline day. When the configured day does not exist in the
// current month the reminder fires on the month's last day instead of
// waiting for a day that never comes.
func Overdue(rule *models.MatchingRule, today time.Time, hasMatch bool) bool {
	if rule.DetectionDeadlineDay == 0 || hasMatch {
		return false
	}
	effective := DeadlineDay(rule, today)
	if effective < rule.DetectionDeadlineDay {
		return today.Day() >= effective
	}
	return today.Day() > effective
}
