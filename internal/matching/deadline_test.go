package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"quittance-workers/internal/models"
)

func TestPeriod(t *testing.T) {
	assert.Equal(t, "2025-03", Period(time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, "2025-12", Period(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDeadlineDayClampsToShortMonths(t *testing.T) {
	rule := testRule(func(r *models.MatchingRule) { r.DetectionDeadlineDay = 31 })

	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 28, DeadlineDay(rule, feb))

	febLeap := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 29, DeadlineDay(rule, febLeap))

	march := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 31, DeadlineDay(rule, march))
}

func TestOverdue(t *testing.T) {
	rule := testRule(func(r *models.MatchingRule) { r.DetectionDeadlineDay = 10 })

	tests := []struct {
		name     string
		day      int
		hasMatch bool
		overdue  bool
	}{
		{"before deadline", 5, false, false},
		{"on deadline day", 10, false, false},
		{"past deadline unpaid", 11, false, true},
		{"past deadline paid", 11, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			today := time.Date(2025, 3, tt.day, 12, 0, 0, 0, time.UTC)
			assert.Equal(t, tt.overdue, Overdue(rule, today, tt.hasMatch))
		})
	}
}

func TestOverdueNoDeadlineConfigured(t *testing.T) {
	rule := testRule(nil)
	today := time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)
	assert.False(t, Overdue(rule, today, false))
}

func TestOverdueClampedDeadlineFiresOnLastDayOfFebruary(t *testing.T) {
	rule := testRule(func(r *models.MatchingRule) { r.DetectionDeadlineDay = 31 })

	assert.False(t, Overdue(rule, time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC), false))
	assert.True(t, Overdue(rule, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), false))
	assert.False(t, Overdue(rule, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), true))
}
