// internal/workers/billing/sync-subscription-status/handler.go
package syncsubscriptionstatus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"quittance-workers/internal/common/billing"
	"quittance-workers/internal/common/logger"
)

const (
	TaskType = "sync-subscription-status"
)

var (
	ErrProviderUnavailable = errors.New("BILLING_PROVIDER_ERROR")
	ErrSyncPersistFailed   = errors.New("DATABASE_UPDATE_FAILED")
)

// BillingAPI is the slice of the billing client the worker needs.
type BillingAPI interface {
	GetSubscription(ctx context.Context, customerID string) (*billing.SubscriptionStatus, error)
}

type Handler struct {
	config  *Config
	db      *sql.DB
	redis   *redis.Client
	billing BillingAPI
	logger  logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redisClient *redis.Client, billingClient BillingAPI, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		db:      db,
		redis:   redisClient,
		billing: billingClient,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		switch {
		case errors.Is(err, ErrProviderUnavailable):
			errorCode = "BILLING_PROVIDER_ERROR"
		case errors.Is(err, ErrSyncPersistFailed):
			errorCode = "DATABASE_UPDATE_FAILED"
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
	if input.BillingCustomerID == "" {
		return nil, fmt.Errorf("billingCustomerId is required")
	}

	sub, err := h.billing.GetSubscription(ctx, input.BillingCustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	// A customer the provider has never billed falls back to the free tier.
	tier := sub.Tier
	status := sub.Status
	if status == "none" {
		tier = "free"
		status = "active"
	}

	if err := h.storeSubscription(ctx, input.LandlordID, tier, status, sub.PeriodEnd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyncPersistFailed, err)
	}

	// Drop the validation cache so the next check sees the fresh state.
	if err := h.redis.Del(ctx, "sub:"+input.LandlordID).Err(); err != nil {
		h.logger.Warn("failed to invalidate subscription cache", map[string]interface{}{
			"landlordId": input.LandlordID,
			"error":      err.Error(),
		})
	}

	h.logger.Info("subscription synced", map[string]interface{}{
		"landlordId": input.LandlordID,
		"tier":       tier,
		"status":     status,
	})

	return &Output{
		LandlordID: input.LandlordID,
		Tier:       tier,
		Status:     status,
		PeriodEnd:  sub.PeriodEnd,
	}, nil
}

func (h *Handler) storeSubscription(ctx context.Context, landlordID, tier, status, periodEnd string) error {
	const query = `INSERT INTO landlord_subscriptions (landlord_id, tier, status, current_period_end, synced_at)
	               VALUES ($1, $2, $3, NULLIF($4, '')::timestamptz, NOW())
	               ON CONFLICT (landlord_id)
	               DO UPDATE SET tier = EXCLUDED.tier,
	                             status = EXCLUDED.status,
	                             current_period_end = EXCLUDED.current_period_end,
	                             synced_at = NOW()`

	_, err := h.db.ExecContext(ctx, query, landlordID, tier, status, periodEnd)
	return err
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
