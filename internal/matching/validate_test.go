package matching

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"quittance-workers/internal/models"
)

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.MatchingRule)
		wantErr bool
	}{
		{"valid minimal rule", nil, false},
		{"zero expected amount accepted", func(r *models.MatchingRule) {
			r.ExpectedAmount = decimal.Zero
		}, false},
		{"zero tolerance accepted", func(r *models.MatchingRule) {
			r.ToleranceAmount = decimal.Zero
		}, false},
		{"deadline day 1 accepted", func(r *models.MatchingRule) {
			r.DetectionDeadlineDay = 1
		}, false},
		{"deadline day 31 accepted", func(r *models.MatchingRule) {
			r.DetectionDeadlineDay = 31
		}, false},
		{"negative expected amount rejected", func(r *models.MatchingRule) {
			r.ExpectedAmount = dec("-900")
		}, true},
		{"negative tolerance rejected", func(r *models.MatchingRule) {
			r.ToleranceAmount = dec("-1")
		}, true},
		{"deadline day above 31 rejected", func(r *models.MatchingRule) {
			r.DetectionDeadlineDay = 32
		}, true},
		{"negative deadline day rejected", func(r *models.MatchingRule) {
			r.DetectionDeadlineDay = -5
		}, true},
		{"missing tenant rejected", func(r *models.MatchingRule) {
			r.TenantID = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRule(testRule(tt.mutate))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
