// internal/workers/billing/validate-subscription/handler.go
package validatesubscription

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quittance-workers/internal/common/logger"
	"quittance-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "validate-subscription"
)

var (
	ErrSubscriptionInvalid     = errors.New("SUBSCRIPTION_INVALID")
	ErrSubscriptionExpired     = errors.New("SUBSCRIPTION_EXPIRED")
	ErrSubscriptionCheckFailed = errors.New("SUBSCRIPTION_CHECK_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redis *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  redis,
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
		errorCode := "UNKNOWN_ERROR"
		if errors.Is(err, ErrSubscriptionInvalid) || errors.Is(err, ErrSubscriptionExpired) {
			errorCode = err.Error()
		} else if errors.Is(err, ErrSubscriptionCheckFailed) {
			errorCode = "SUBSCRIPTION_CHECK_FAILED"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.LandlordID == "" {
		return nil, fmt.Errorf("%w: landlordId is required", ErrSubscriptionInvalid)
	}

	cacheKey := "sub:" + input.LandlordID
	if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
		var sub models.LandlordSubscription
		if err := json.Unmarshal([]byte(val), &sub); err == nil {
			return &Output{IsValid: sub.IsValid, Tier: sub.SubscriptionTier, Status: sub.Status}, nil
		}
	}

	var sub models.LandlordSubscription
	query := `SELECT landlord_id, tier, status, COALESCE(current_period_end::text, '')
	          FROM landlord_subscriptions WHERE landlord_id = $1`
	err := h.db.QueryRowContext(ctx, query, input.LandlordID).Scan(
		&sub.LandlordID, &sub.SubscriptionTier, &sub.Status, &sub.PeriodEnd,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrSubscriptionCheckFailed, err)
	}

	if sub.Status != "active" && sub.Status != "trialing" {
		return nil, ErrSubscriptionInvalid
	}

	if sub.PeriodEnd != "" {
		end, parseErr := time.Parse(time.RFC3339, sub.PeriodEnd)
		if parseErr != nil {
			h.logger.Debug("Failed to parse period end, skipping expiration check", map[string]interface{}{
				"landlordId": sub.LandlordID,
				"periodEnd":  sub.PeriodEnd,
				"error":      parseErr.Error(),
			})
		} else {
			if time.Now().After(end) {
				return nil, ErrSubscriptionExpired
			}
		}
	}

	validTiers := map[string]bool{
		"free": true, "starter": true, "premium": true, "enterprise": true,
	}
	if !validTiers[sub.SubscriptionTier] {
		return nil, ErrSubscriptionInvalid
	}

	sub.IsValid = true
	data, _ := json.Marshal(sub)
	h.redis.Set(ctx, cacheKey, data, h.config.CacheTTL)

	return &Output{IsValid: true, Tier: sub.SubscriptionTier, Status: sub.Status}, nil
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
