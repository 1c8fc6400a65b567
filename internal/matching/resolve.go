package matching

import (
	"sort"

	"github.com/shopspring/decimal"

	"quittance-workers/internal/models"
)

// Candidate pairs a rule with its evaluated outcome for one transaction.
type Candidate struct {
	Rule    *models.MatchingRule
	Outcome models.MatchOutcome
}

// Resolution is the result of evaluating one transaction against a set of
// rules. Status is "matched", "none" or "ambiguous". Best is set only for
// "matched". Candidates holds the tied rules when Status is "ambiguous" so
// they can be surfaced for manual review. Outcomes holds every evaluation,
// matched or not, for the audit trail.
type Resolution struct {
	Status     string
	Best       *Candidate
	Candidates []Candidate
	Outcomes   []models.MatchOutcome
}

// Resolve evaluates tx against every rule and picks a winner when more than
// one rule matches: the rule whose expected amount is closest to the
// transaction amount wins, then the rule with more active checks. A tie
// that survives both criteria is reported as ambiguous, never decided
// arbitrarily.
func Resolve(tx *models.BankTransaction, rules []*models.MatchingRule) Resolution {
	res := Resolution{Status: models.ResolutionNone}

	var matched []Candidate
	for _, rule := range rules {
		outcome := Evaluate(tx, rule)
		res.Outcomes = append(res.Outcomes, outcome)
		if outcome.Matched {
			matched = append(matched, Candidate{Rule: rule, Outcome: outcome})
		}
	}

	switch len(matched) {
	case 0:
		return res
	case 1:
		res.Status = models.ResolutionMatched
		res.Best = &matched[0]
		return res
	}

	sort.SliceStable(matched, func(i, j int) bool {
		di := amountDistance(tx, matched[i].Rule)
		dj := amountDistance(tx, matched[j].Rule)
		if !di.Equal(dj) {
			return di.LessThan(dj)
		}
		return matched[i].Outcome.ActiveChecks > matched[j].Outcome.ActiveChecks
	})

	best := matched[0]
	tied := []Candidate{best}
	for _, c := range matched[1:] {
		if amountDistance(tx, c.Rule).Equal(amountDistance(tx, best.Rule)) &&
			c.Outcome.ActiveChecks == best.Outcome.ActiveChecks {
			tied = append(tied, c)
		}
	}

	if len(tied) > 1 {
		res.Status = models.ResolutionAmbiguous
		res.Candidates = tied
		return res
	}

	res.Status = models.ResolutionMatched
	res.Best = &best
	return res
}

func amountDistance(tx *models.BankTransaction, rule *models.MatchingRule) decimal.Decimal {
	return tx.Amount.Sub(rule.ExpectedAmount).Abs()
}
