package matching

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quittance-workers/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testRule(mutate func(*models.MatchingRule)) *models.MatchingRule {
	rule := &models.MatchingRule{
		ID:              "rule-1",
		TenantID:        "tenant-1",
		ExpectedAmount:  dec("900"),
		ToleranceAmount: dec("10"),
	}
	if mutate != nil {
		mutate(rule)
	}
	return rule
}

func testTx(mutate func(*models.BankTransaction)) *models.BankTransaction {
	tx := &models.BankTransaction{
		ID:     "tx-1",
		Amount: dec("900"),
		Date:   time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(tx)
	}
	return tx
}

func TestEvaluateAmountToleranceBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		matched bool
	}{
		{"exact expected amount", "900", true},
		{"lower boundary inclusive", "890", true},
		{"upper boundary inclusive", "910", true},
		{"one cent below window", "889.99", false},
		{"one cent above window", "910.01", false},
		{"debit of the expected amount", "-900", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := testTx(func(tx *models.BankTransaction) { tx.Amount = dec(tt.amount) })
			outcome := Evaluate(tx, testRule(nil))
			assert.Equal(t, tt.matched, outcome.Matched)
		})
	}
}

func TestEvaluateZeroToleranceRequiresExactAmount(t *testing.T) {
	rule := testRule(func(r *models.MatchingRule) { r.ToleranceAmount = decimal.Zero })

	assert.True(t, Evaluate(testTx(nil), rule).Matched)

	off := testTx(func(tx *models.BankTransaction) { tx.Amount = dec("900.01") })
	assert.False(t, Evaluate(off, rule).Matched)
}

func TestEvaluateSenderName(t *testing.T) {
	rule := testRule(func(r *models.MatchingRule) { r.SenderName = "Jean Dupont" })

	tests := []struct {
		name    string
		sender  string
		matched bool
	}{
		{"exact name", "Jean Dupont", true},
		{"bank label contains rule name", "M. JEAN DUPONT", true},
		{"rule name contains bank label", "dupont", true},
		{"case insensitive", "jean dupont", true},
		{"unrelated sender", "Marie Martin", false},
		{"missing sender name", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := testTx(func(tx *models.BankTransaction) { tx.SenderName = tt.sender })
			outcome := Evaluate(tx, rule)
			assert.Equal(t, tt.matched, outcome.Matched)
		})
	}
}

func TestEvaluateIBAN(t *testing.T) {
	const fullIBAN = "FR7630006000011234567890189"

	tests := []struct {
		name     string
		ruleIBAN string
		txIBAN   string
		matched  bool
	}{
		{"suffix matches full IBAN", "90189", fullIBAN, true},
		{"suffix does not match", "11111", fullIBAN, false},
		{"full IBAN exact match", fullIBAN, fullIBAN, true},
		{"full IBAN with spaces and lowercase", fullIBAN, "fr76 3000 6000 0112 3456 7890 189", true},
		{"full IBAN requires exact, not suffix", fullIBAN, "XX99" + fullIBAN, false},
		{"missing transaction IBAN", "90189", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := testRule(func(r *models.MatchingRule) { r.SenderIBAN = tt.ruleIBAN })
			tx := testTx(func(tx *models.BankTransaction) { tx.SenderIBAN = tt.txIBAN })
			outcome := Evaluate(tx, rule)
			assert.Equal(t, tt.matched, outcome.Matched)
		})
	}
}

func TestEvaluateDescriptionKeywords(t *testing.T) {
	rule := testRule(func(r *models.MatchingRule) { r.DescriptionContains = "loyer, virement dupont" })

	tests := []struct {
		name        string
		description string
		matched     bool
	}{
		{"first keyword present", "LOYER MARS 2025", true},
		{"second keyword present", "Virement Dupont ref 1234", true},
		{"no keyword present", "Remboursement frais", false},
		{"empty description", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := testTx(func(tx *models.BankTransaction) { tx.Description = tt.description })
			outcome := Evaluate(tx, rule)
			assert.Equal(t, tt.matched, outcome.Matched)
		})
	}
}

func TestEvaluateAllActiveChecksMustPass(t *testing.T) {
	rule := testRule(func(r *models.MatchingRule) {
		r.SenderName = "Jean Dupont"
		r.DescriptionContains = "loyer"
	})

	tx := testTx(func(tx *models.BankTransaction) {
		tx.SenderName = "JEAN DUPONT"
		tx.Description = "Remboursement caution"
	})

	outcome := Evaluate(tx, rule)
	assert.False(t, outcome.Matched)
	assert.Equal(t, 3, outcome.ActiveChecks)

	require.Len(t, outcome.Reasons, 3)
	byCheck := map[string]models.CheckResult{}
	for _, r := range outcome.Reasons {
		byCheck[r.Check] = r
	}
	assert.True(t, byCheck[models.CheckAmount].Passed)
	assert.True(t, byCheck[models.CheckSenderName].Passed)
	assert.False(t, byCheck[models.CheckDescription].Passed)
	assert.NotEmpty(t, byCheck[models.CheckDescription].Detail)
}

func TestEvaluateRecordsReasonsOnMatch(t *testing.T) {
	rule := testRule(func(r *models.MatchingRule) { r.SenderName = "Dupont" })
	tx := testTx(func(tx *models.BankTransaction) { tx.SenderName = "M. Jean Dupont" })

	outcome := Evaluate(tx, rule)
	require.True(t, outcome.Matched)
	require.Len(t, outcome.Reasons, 2)
	for _, r := range outcome.Reasons {
		assert.True(t, r.Passed)
		assert.Empty(t, r.Detail)
	}
	assert.Equal(t, "rule-1", outcome.RuleID)
	assert.Equal(t, "tenant-1", outcome.TenantID)
	assert.Equal(t, "tx-1", outcome.TransactionID)
}

func TestEvaluateMissingOptionalFieldsFailWithoutError(t *testing.T) {
	rule := testRule(func(r *models.MatchingRule) {
		r.SenderName = "Dupont"
		r.SenderIBAN = "90189"
		r.DescriptionContains = "loyer"
	})

	// Transaction carries only an amount and a date.
	outcome := Evaluate(testTx(nil), rule)
	assert.False(t, outcome.Matched)
	require.Len(t, outcome.Reasons, 4)
	assert.True(t, outcome.Reasons[0].Passed) // amount
	for _, r := range outcome.Reasons[1:] {
		assert.False(t, r.Passed)
	}
}
