// internal/workers/detection/evaluate-rent-payment/handler.go
package evaluaterentpayment

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"quittance-workers/internal/common/logger"
	"quittance-workers/internal/common/metrics"
	"quittance-workers/internal/matching"
	"quittance-workers/internal/models"
)

const (
	TaskType = "evaluate-rent-payment"
)

var (
	ErrRuleLookupFailed     = errors.New("QUERY_EXECUTION_FAILED")
	ErrOutcomePersistFailed = errors.New("DATABASE_INSERT_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	es     *elasticsearch.Client
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redisClient *redis.Client, es *elasticsearch.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  redisClient,
		es:     es,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "QUERY_EXECUTION_FAILED"
		if errors.Is(err, ErrOutcomePersistFailed) {
			errorCode = "DATABASE_INSERT_FAILED"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ConnectionID == "" {
		return nil, fmt.Errorf("connectionId is required")
	}

	rules, err := h.loadRules(ctx, input.ConnectionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuleLookupFailed, err)
	}

	output := &Output{
		Matched:        []MatchedPayment{},
		Ambiguous:      []AmbiguousTransaction{},
		Unmatched:      []UnmatchedTransaction{},
		EvaluatedRules: len(rules),
	}

	for i := range input.Transactions {
		tx := &input.Transactions[i]
		res := matching.Resolve(tx, rules)
		metrics.MatchResolutions.WithLabelValues(res.Status).Inc()

		if err := h.persistOutcomes(ctx, matching.Period(tx.Date), storedOutcomes(&res)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOutcomePersistFailed, err)
		}
		h.indexAudit(ctx, tx, &res)

		switch res.Status {
		case models.ResolutionMatched:
			period := matching.Period(tx.Date)
			receiptDue, lockErr := h.acquireReceiptLock(ctx, res.Best.Rule.TenantID, period, tx.ID)
			if lockErr != nil {
				h.logger.Warn("receipt lock check failed, skipping receipt trigger", map[string]interface{}{
					"transactionId": tx.ID,
					"tenantId":      res.Best.Rule.TenantID,
					"error":         lockErr.Error(),
				})
				receiptDue = false
			}
			output.Matched = append(output.Matched, MatchedPayment{
				TransactionID: tx.ID,
				RuleID:        res.Best.Rule.ID,
				TenantID:      res.Best.Rule.TenantID,
				Period:        period,
				ReceiptDue:    receiptDue,
				Reasons:       res.Best.Outcome.Reasons,
			})

		case models.ResolutionAmbiguous:
			ruleIDs := make([]string, 0, len(res.Candidates))
			for _, c := range res.Candidates {
				ruleIDs = append(ruleIDs, c.Rule.ID)
			}
			h.logger.Warn("ambiguous match, routing to manual review", map[string]interface{}{
				"transactionId":    tx.ID,
				"candidateRuleIds": ruleIDs,
			})
			output.Ambiguous = append(output.Ambiguous, AmbiguousTransaction{
				TransactionID:    tx.ID,
				CandidateRuleIDs: ruleIDs,
				Outcomes:         res.Outcomes,
			})

		default:
			output.Unmatched = append(output.Unmatched, UnmatchedTransaction{
				TransactionID: tx.ID,
				Outcomes:      res.Outcomes,
			})
		}
	}

	return output, nil
}

// loadRules fetches the connection's active rules, Redis first.
func (h *Handler) loadRules(ctx context.Context, connectionID string) ([]*models.MatchingRule, error) {
	cacheKey := "rules:" + connectionID
	if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
		var rules []*models.MatchingRule
		if err := json.Unmarshal([]byte(val), &rules); err == nil {
			return rules, nil
		}
	}

	query := `SELECT id, bank_connection_id, tenant_id, landlord_id, expected_amount, tolerance_amount,
	                 COALESCE(sender_name, ''), COALESCE(sender_iban, ''), COALESCE(description_contains, ''),
	                 COALESCE(detection_deadline_day, 0)
	          FROM matching_rules
	          WHERE bank_connection_id = $1 AND active = true`
	rows, err := h.db.QueryContext(ctx, query, connectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*models.MatchingRule
	for rows.Next() {
		rule := &models.MatchingRule{Active: true}
		var expected, tolerance string
		if err := rows.Scan(
			&rule.ID, &rule.BankConnectionID, &rule.TenantID, &rule.LandlordID,
			&expected, &tolerance,
			&rule.SenderName, &rule.SenderIBAN, &rule.DescriptionContains,
			&rule.DetectionDeadlineDay,
		); err != nil {
			return nil, err
		}
		if rule.ExpectedAmount, err = parseAmount(expected); err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		if rule.ToleranceAmount, err = parseAmount(tolerance); err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rules); err == nil {
		h.redis.Set(ctx, cacheKey, data, h.config.RuleCacheTTL)
	}
	return rules, nil
}

// storedOutcomes returns the outcomes as they are written to match_outcomes.
// Tied candidates of an ambiguous resolution are stored unmatched: no rule
// owns the payment until manual review assigns one, so the period still
// counts as unpaid for deadline checks.
func storedOutcomes(res *matching.Resolution) []models.MatchOutcome {
	if res.Status != models.ResolutionAmbiguous {
		return res.Outcomes
	}
	outcomes := make([]models.MatchOutcome, len(res.Outcomes))
	copy(outcomes, res.Outcomes)
	for i := range outcomes {
		outcomes[i].Matched = false
	}
	return outcomes
}

// persistOutcomes upserts one row per evaluation so re-running a batch
// refreshes rather than duplicates the audit trail.
func (h *Handler) persistOutcomes(ctx context.Context, period string, outcomes []models.MatchOutcome) error {
	const query = `INSERT INTO match_outcomes (rule_id, transaction_id, tenant_id, period, matched, reasons, evaluated_at)
	               VALUES ($1, $2, $3, $4, $5, $6, NOW())
	               ON CONFLICT (rule_id, transaction_id)
	               DO UPDATE SET matched = EXCLUDED.matched, reasons = EXCLUDED.reasons, evaluated_at = NOW()`

	for _, outcome := range outcomes {
		reasons, err := json.Marshal(outcome.Reasons)
		if err != nil {
			return err
		}
		if _, err := h.db.ExecContext(ctx, query,
			outcome.RuleID, outcome.TransactionID, outcome.TenantID, period, outcome.Matched, reasons,
		); err != nil {
			return err
		}
	}
	return nil
}

// acquireReceiptLock claims the per-(tenant, period) receipt slot. Only the
// first matched transaction of a period wins the claim.
func (h *Handler) acquireReceiptLock(ctx context.Context, tenantID, period, transactionID string) (bool, error) {
	key := fmt.Sprintf("receipt:lock:%s:%s", tenantID, period)
	return h.redis.SetNX(ctx, key, transactionID, h.config.ReceiptLockTTL).Result()
}

// indexAudit writes one audit document per transaction evaluation. Audit
// indexing is best effort: the match-outcome rows in PostgreSQL remain the
// source of truth.
func (h *Handler) indexAudit(ctx context.Context, tx *models.BankTransaction, res *matching.Resolution) {
	if h.es == nil {
		return
	}

	doc := map[string]interface{}{
		"transactionId": tx.ID,
		"connectionId":  tx.ConnectionID,
		"amount":        tx.Amount.String(),
		"date":          tx.Date.Format(time.RFC3339),
		"status":        res.Status,
		"outcomes":      res.Outcomes,
		"indexedAt":     time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return
	}

	resp, err := h.es.Index(
		h.config.AuditIndex,
		bytes.NewReader(body),
		h.es.Index.WithContext(ctx),
		h.es.Index.WithDocumentID(tx.ID),
	)
	if err != nil {
		h.logger.Warn("failed to index audit document", map[string]interface{}{
			"transactionId": tx.ID,
			"error":         err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	if resp.IsError() {
		h.logger.Warn("audit index rejected document", map[string]interface{}{
			"transactionId": tx.ID,
			"status":        resp.Status(),
		})
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
