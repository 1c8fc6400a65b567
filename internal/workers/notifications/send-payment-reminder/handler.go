// internal/workers/notifications/send-payment-reminder/handler.go
package sendpaymentreminder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"quittance-workers/internal/common/logger"
	"quittance-workers/internal/common/metrics"
	"quittance-workers/internal/notify"
)

const (
	TaskType = "send-payment-reminder"
)

var (
	ErrReminderSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// SMSSender is the slice of the fallback chain the worker needs.
type SMSSender interface {
	Send(ctx context.Context, msg *notify.Message) (string, error)
}

type Handler struct {
	config *Config
	db     *sql.DB
	sms    SMSSender
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, sms SMSSender, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		sms:    sms,
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
		h.failJob(client, job, "NOTIFICATION_SEND_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.TenantID == "" {
		return nil, fmt.Errorf("tenantId is required")
	}

	sentAt := time.Now().UTC().Format(time.RFC3339)
	notificationID := uuid.New().String()

	tenantName, phone, err := h.getTenantContact(ctx, input.TenantID)
	if err != nil {
		h.logger.Warn("recipient not found", map[string]interface{}{
			"tenantId": input.TenantID,
		})
		return &Output{NotificationID: notificationID, Status: StatusDisabled, SentAt: sentAt}, nil
	}

	if !h.config.SMSEnabled || phone == "" {
		return &Output{NotificationID: notificationID, Status: StatusDisabled, SentAt: sentAt}, nil
	}

	body := notify.Render(
		"Bonjour {{tenantName}}, nous n'avons pas encore recu votre loyer pour la periode {{period}}. "+
			"Merci de regulariser votre paiement.",
		map[string]interface{}{
			"tenantName": tenantName,
			"period":     input.Period,
		},
	)

	provider, err := h.sms.Send(ctx, &notify.Message{To: phone, Body: body})
	if err != nil {
		h.logger.Error("reminder SMS send failed", map[string]interface{}{
			"tenantId": input.TenantID,
			"error":    err.Error(),
		})
		h.recordNotification(ctx, notificationID, input.TenantID, "", StatusFailed, sentAt)
		return nil, fmt.Errorf("%w: %v", ErrReminderSendFailed, err)
	}

	metrics.NotificationsSent.WithLabelValues("sms", provider).Inc()
	h.recordNotification(ctx, notificationID, input.TenantID, provider, StatusSent, sentAt)

	return &Output{
		NotificationID: notificationID,
		Status:         StatusSent,
		Provider:       provider,
		SentAt:         sentAt,
	}, nil
}

func (h *Handler) getTenantContact(ctx context.Context, tenantID string) (string, string, error) {
	var name, phone string
	query := `SELECT full_name, COALESCE(phone, '') FROM tenants WHERE id = $1`
	err := h.db.QueryRowContext(ctx, query, tenantID).Scan(&name, &phone)
	return name, phone, err
}

// recordNotification keeps the send audit row. Best effort: a failed insert
// must not trigger a retry that would send the SMS twice.
func (h *Handler) recordNotification(ctx context.Context, id, tenantID, provider, status, sentAt string) {
	const query = `INSERT INTO notifications (id, recipient_id, recipient_type, type, channel, provider, status, sent_at)
	               VALUES ($1, $2, 'tenant', 'payment_overdue', 'sms', $3, $4, $5)`
	if _, err := h.db.ExecContext(ctx, query, id, tenantID, provider, status, sentAt); err != nil {
		h.logger.Warn("failed to record notification", map[string]interface{}{
			"notificationId": id,
			"error":          err.Error(),
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
