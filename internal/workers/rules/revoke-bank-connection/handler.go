// internal/workers/rules/revoke-bank-connection/handler.go
package revokebankconnection

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"quittance-workers/internal/common/logger"
	"quittance-workers/internal/matching"
)

const (
	TaskType = "revoke-bank-connection"
)

var (
	ErrRevocationFailed = errors.New("DATABASE_DELETE_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, db *sql.DB, redisClient *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  redisClient,
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
		if errors.Is(err, ErrRevocationFailed) {
			errorCode = "DATABASE_DELETE_FAILED"
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

	tenantIDs, err := h.deleteRules(ctx, input.ConnectionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRevocationFailed, err)
	}

	output := &Output{DeletedRules: len(tenantIDs)}
	output.CacheInvalidated = h.invalidateRuleCache(ctx, input.ConnectionID)
	output.ReleasedLocks = h.releaseReceiptLocks(ctx, tenantIDs)

	h.logger.Info("bank connection revoked", map[string]interface{}{
		"connectionId": input.ConnectionID,
		"deletedRules": output.DeletedRules,
	})

	return output, nil
}

func (h *Handler) deleteRules(ctx context.Context, connectionID string) ([]string, error) {
	const query = `DELETE FROM matching_rules WHERE bank_connection_id = $1 RETURNING tenant_id`

	rows, err := h.db.QueryContext(ctx, query, connectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenantIDs []string
	for rows.Next() {
		var tenantID string
		if err := rows.Scan(&tenantID); err != nil {
			return nil, err
		}
		tenantIDs = append(tenantIDs, tenantID)
	}
	return tenantIDs, rows.Err()
}

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

// releaseReceiptLocks frees the current-period receipt claims of the deleted
// rules so a replacement connection can claim them again. Best effort.
func (h *Handler) releaseReceiptLocks(ctx context.Context, tenantIDs []string) int {
	period := matching.Period(h.now())
	released := 0
	for _, tenantID := range tenantIDs {
		key := fmt.Sprintf("receipt:lock:%s:%s", tenantID, period)
		n, err := h.redis.Del(ctx, key).Result()
		if err != nil {
			h.logger.Warn("failed to release receipt lock", map[string]interface{}{
				"tenantId": tenantID,
				"period":   period,
				"error":    err.Error(),
			})
			continue
		}
		released += int(n)
	}
	return released
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
