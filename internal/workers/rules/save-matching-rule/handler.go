// internal/workers/rules/save-matching-rule/handler.go
package savematchingrule

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quittance-workers/internal/common/logger"
	"quittance-workers/internal/matching"
	"quittance-workers/internal/models"
)

const (
	TaskType = "save-matching-rule"
)

var (
	ErrValidationFailed  = errors.New("RULE_VALIDATION_FAILED")
	ErrRulePersistFailed = errors.New("DATABASE_INSERT_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redisClient *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  redisClient,
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
		errorCode := "DATABASE_INSERT_FAILED"
		if errors.Is(err, ErrValidationFailed) {
			errorCode = "RULE_VALIDATION_FAILED"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Rule) == 0 {
		return nil, fmt.Errorf("%w: rule payload is required", ErrValidationFailed)
	}

	if err := validatePayload(input.Rule); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	payload, err := decodePayload(input.Rule)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	rule := payload.toRule()
	if err := matching.ValidateRule(rule); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	ruleID, err := h.upsertRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRulePersistFailed, err)
	}

	invalidated := h.invalidateRuleCache(ctx, rule.BankConnectionID)

	h.logger.Info("matching rule saved", map[string]interface{}{
		"ruleId":       ruleID,
		"connectionId": rule.BankConnectionID,
		"tenantId":     rule.TenantID,
	})

	return &Output{
		RuleID:           ruleID,
		Active:           rule.Active,
		CacheInvalidated: invalidated,
	}, nil
}

func decodePayload(raw map[string]interface{}) (*RulePayload, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var payload RulePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (p *RulePayload) toRule() *models.MatchingRule {
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	return &models.MatchingRule{
		ID:                   p.ID,
		BankConnectionID:     p.ConnectionID,
		TenantID:             p.TenantID,
		LandlordID:           p.LandlordID,
		ExpectedAmount:       p.ExpectedAmount,
		ToleranceAmount:      p.ToleranceAmount,
		SenderName:           p.SenderName,
		SenderIBAN:           p.SenderIBAN,
		DescriptionContains:  p.DescriptionContains,
		DetectionDeadlineDay: p.DeadlineDay,
		Active:               active,
	}
}

// upsertRule writes the rule, one rule per (bank connection, tenant) pair.
func (h *Handler) upsertRule(ctx context.Context, rule *models.MatchingRule) (string, error) {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	const query = `INSERT INTO matching_rules
	                   (id, bank_connection_id, tenant_id, landlord_id, expected_amount, tolerance_amount,
	                    sender_name, sender_iban, description_contains, detection_deadline_day, active, updated_at)
	               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	               ON CONFLICT (bank_connection_id, tenant_id)
	               DO UPDATE SET expected_amount = EXCLUDED.expected_amount,
	                             tolerance_amount = EXCLUDED.tolerance_amount,
	                             sender_name = EXCLUDED.sender_name,
	                             sender_iban = EXCLUDED.sender_iban,
	                             description_contains = EXCLUDED.description_contains,
	                             detection_deadline_day = EXCLUDED.detection_deadline_day,
	                             active = EXCLUDED.active,
	                             landlord_id = EXCLUDED.landlord_id,
	                             updated_at = NOW()
	               RETURNING id`

	var ruleID string
	err := h.db.QueryRowContext(ctx, query,
		rule.ID, rule.BankConnectionID, rule.TenantID, rule.LandlordID,
		rule.ExpectedAmount.String(), rule.ToleranceAmount.String(),
		nullIfEmpty(rule.SenderName), nullIfEmpty(rule.SenderIBAN), nullIfEmpty(rule.DescriptionContains),
		nullIfZero(rule.DetectionDeadlineDay), rule.Active,
	).Scan(&ruleID)
	if err != nil {
		return "", err
	}
	return ruleID, nil
}

// invalidateRuleCache drops the connection's cached rule set so the next
// evaluation reloads from the database. Best effort.
func (h *Handler) invalidateRuleCache(ctx context.Context, connectionID string) bool {
	if err := h.redis.Del(ctx, "rules:"+connectionID).Err(); err != nil {
		h.logger.Warn("failed to invalidate rule cache", map[string]interface{}{
			"connectionId": connectionID,
			"error":        err.Error(),
		})
		return false
	}
	return true
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
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
