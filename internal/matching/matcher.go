// Package matching implements rent payment detection: evaluating bank
// transactions against landlord matching rules and resolving which tenant,
// if any, a payment belongs to. All functions are pure and safe for
// concurrent use.
package matching

import (
	"fmt"
	"strings"
	"unicode"

	"quittance-workers/internal/models"
)

// ibanFullLength is the shortest normalized value treated as a complete
// IBAN. Anything shorter is matched as a suffix against the transaction
// IBAN, since aggregators often deliver only the trailing digits.
const ibanFullLength = 15

// Evaluate runs every active check of rule against tx and returns the
// outcome with one CheckResult per active check. The amount check is always
// active; sender name, IBAN and description checks only when the rule sets
// them. Missing or empty transaction fields fail the corresponding check,
// they never abort evaluation.
func Evaluate(tx *models.BankTransaction, rule *models.MatchingRule) models.MatchOutcome {
	outcome := models.MatchOutcome{
		Matched:       true,
		RuleID:        rule.ID,
		TenantID:      rule.TenantID,
		TransactionID: tx.ID,
		ActiveChecks:  rule.ActiveCheckCount(),
	}

	record := func(check string, passed bool, detail string) {
		if passed {
			detail = ""
		}
		outcome.Reasons = append(outcome.Reasons, models.CheckResult{
			Check:  check,
			Passed: passed,
			Detail: detail,
		})
		if !passed {
			outcome.Matched = false
		}
	}

	record(models.CheckAmount, amountMatches(tx, rule), amountDetail(tx, rule))

	if rule.HasSenderNameCheck() {
		record(models.CheckSenderName, senderNameMatches(tx.SenderName, rule.SenderName),
			fmt.Sprintf("sender name %q does not match %q", tx.SenderName, rule.SenderName))
	}
	if rule.HasIBANCheck() {
		record(models.CheckSenderIBAN, ibanMatches(tx.SenderIBAN, rule.SenderIBAN),
			fmt.Sprintf("sender IBAN %q does not match %q", tx.SenderIBAN, rule.SenderIBAN))
	}
	if rule.HasDescriptionCheck() {
		record(models.CheckDescription, descriptionMatches(tx.Description, rule.DescriptionContains),
			fmt.Sprintf("description %q contains none of %q", tx.Description, rule.DescriptionContains))
	}

	return outcome
}

// amountMatches requires a credit within the rule's tolerance window:
// |amount - expected| <= tolerance. Debits never match a rent rule.
func amountMatches(tx *models.BankTransaction, rule *models.MatchingRule) bool {
	if !tx.IsCredit() {
		return false
	}
	diff := tx.Amount.Sub(rule.ExpectedAmount).Abs()
	return diff.LessThanOrEqual(rule.ToleranceAmount)
}

func amountDetail(tx *models.BankTransaction, rule *models.MatchingRule) string {
	if !tx.IsCredit() {
		return fmt.Sprintf("amount %s is not a credit", tx.Amount)
	}
	return fmt.Sprintf("amount %s outside %s ± %s",
		tx.Amount, rule.ExpectedAmount, rule.ToleranceAmount)
}

// senderNameMatches is a case-insensitive containment test in either
// direction, so "M. Jean Dupont" matches a rule naming "Jean Dupont" and
// a rule naming "M. Jean Dupont SCI" matches the shorter bank label.
func senderNameMatches(txName, ruleName string) bool {
	txName = strings.ToLower(strings.TrimSpace(txName))
	ruleName = strings.ToLower(strings.TrimSpace(ruleName))
	if txName == "" || ruleName == "" {
		return false
	}
	return strings.Contains(txName, ruleName) || strings.Contains(ruleName, txName)
}

// ibanMatches compares normalized IBANs. A rule value long enough to be a
// complete IBAN must match exactly; a shorter value matches when the
// transaction IBAN ends with it.
func ibanMatches(txIBAN, ruleIBAN string) bool {
	txIBAN = normalizeIBAN(txIBAN)
	ruleIBAN = normalizeIBAN(ruleIBAN)
	if txIBAN == "" || ruleIBAN == "" {
		return false
	}
	if len(ruleIBAN) >= ibanFullLength {
		return txIBAN == ruleIBAN
	}
	return strings.HasSuffix(txIBAN, ruleIBAN)
}

func normalizeIBAN(iban string) string {
	var b strings.Builder
	for _, r := range iban {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// descriptionMatches splits the rule keywords on commas and passes when any
// keyword appears in the transaction description, case-insensitively.
func descriptionMatches(description, keywords string) bool {
	description = strings.ToLower(description)
	if description == "" {
		return false
	}
	for _, keyword := range strings.Split(keywords, ",") {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if strings.Contains(description, keyword) {
			return true
		}
	}
	return false
}
