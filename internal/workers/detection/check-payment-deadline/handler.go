// internal/workers/detection/check-payment-deadline/handler.go
package checkpaymentdeadline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"quittance-workers/internal/common/logger"
	"quittance-workers/internal/matching"
	"quittance-workers/internal/models"
)

const (
	TaskType = "check-payment-deadline"
)

var (
	ErrDeadlineQueryFailed = errors.New("QUERY_EXECUTION_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:    func() time.Time { return time.Now().UTC() },
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
		errorCode := "VALIDATION_ERROR"
		if errors.Is(err, ErrDeadlineQueryFailed) {
			errorCode = "QUERY_EXECUTION_FAILED"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.LandlordID == "" {
		return nil, fmt.Errorf("landlordId is required")
	}

	today := h.now()
	if input.ReferenceDate != "" {
		parsed, err := time.Parse("2006-01-02", input.ReferenceDate)
		if err != nil {
			return nil, fmt.Errorf("invalid referenceDate %q: %v", input.ReferenceDate, err)
		}
		today = parsed
	}
	period := matching.Period(today)

	output := &Output{
		Period:  period,
		Overdue: []OverdueTenant{},
	}

	// One row per deadline-bearing rule, with a flag telling whether a
	// matched payment was already recorded for the period.
	query := `SELECT r.id, r.tenant_id, r.detection_deadline_day,
	                 EXISTS (
	                     SELECT 1 FROM match_outcomes o
	                     WHERE o.rule_id = r.id AND o.matched = true AND o.period = $2
	                 ) AS paid
	          FROM matching_rules r
	          WHERE r.landlord_id = $1 AND r.active = true AND r.detection_deadline_day > 0`
	rows, err := h.db.QueryContext(ctx, query, input.LandlordID, period)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeadlineQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rule models.MatchingRule
			paid bool
		)
		if err := rows.Scan(&rule.ID, &rule.TenantID, &rule.DetectionDeadlineDay, &paid); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeadlineQueryFailed, err)
		}
		output.CheckedRules++

		if !matching.Overdue(&rule, today, paid) {
			continue
		}
		output.Overdue = append(output.Overdue, OverdueTenant{
			RuleID:      rule.ID,
			TenantID:    rule.TenantID,
			DeadlineDay: rule.DetectionDeadlineDay,
			Period:      period,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeadlineQueryFailed, err)
	}

	if len(output.Overdue) > 0 {
		h.logger.Info("overdue tenants found", map[string]interface{}{
			"landlordId": input.LandlordID,
			"period":     period,
			"count":      len(output.Overdue),
		})
	}

	return output, nil
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
