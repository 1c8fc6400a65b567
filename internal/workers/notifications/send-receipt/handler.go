// internal/workers/notifications/send-receipt/handler.go
package sendreceipt

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
	TaskType = "send-receipt"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// EmailSender is the slice of the fallback chain the worker needs.
type EmailSender interface {
	Send(ctx context.Context, msg *notify.Message) (string, error)
}

type Handler struct {
	config *Config
	db     *sql.DB
	email  EmailSender
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, email EmailSender, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		email:  email,
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

	tenantName, email, err := h.getTenantContact(ctx, input.TenantID)
	if err != nil {
		h.logger.Warn("recipient not found", map[string]interface{}{
			"tenantId": input.TenantID,
		})
		return &Output{NotificationID: notificationID, Status: StatusDisabled, SentAt: sentAt}, nil
	}

	if !h.config.EmailEnabled || email == "" {
		return &Output{NotificationID: notificationID, Status: StatusDisabled, SentAt: sentAt}, nil
	}

	template := receiptTemplate()
	data := map[string]interface{}{
		"tenantName": tenantName,
		"period":     input.Period,
		"amount":     input.Amount,
		"receiptId":  input.ReceiptID,
	}
	for k, v := range input.Metadata {
		data[k] = v
	}

	msg := &notify.Message{
		To:      email,
		From:    h.config.FromEmail,
		Subject: notify.Render(template.Subject, data),
		Body:    notify.Render(template.Body, data),
	}

	provider, err := h.email.Send(ctx, msg)
	if err != nil {
		h.logger.Error("receipt email send failed", map[string]interface{}{
			"tenantId": input.TenantID,
			"error":    err.Error(),
		})
		h.recordNotification(ctx, notificationID, input, "", StatusFailed, sentAt)
		return nil, fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}

	metrics.NotificationsSent.WithLabelValues("email", provider).Inc()
	h.recordNotification(ctx, notificationID, input, provider, StatusSent, sentAt)
	h.markReceiptSent(ctx, input.ReceiptID)

	return &Output{
		NotificationID: notificationID,
		Status:         StatusSent,
		Provider:       provider,
		SentAt:         sentAt,
	}, nil
}

func (h *Handler) getTenantContact(ctx context.Context, tenantID string) (string, string, error) {
	var name, email string
	query := `SELECT full_name, COALESCE(email, '') FROM tenants WHERE id = $1`
	err := h.db.QueryRowContext(ctx, query, tenantID).Scan(&name, &email)
	return name, email, err
}

// recordNotification keeps the send audit row. Best effort: a failed insert
// must not trigger a retry that would send the email twice.
func (h *Handler) recordNotification(ctx context.Context, id string, input *Input, provider, status, sentAt string) {
	const query = `INSERT INTO notifications (id, recipient_id, recipient_type, type, channel, provider, status, sent_at)
	               VALUES ($1, $2, 'tenant', 'receipt_ready', 'email', $3, $4, $5)`
	if _, err := h.db.ExecContext(ctx, query, id, input.TenantID, provider, status, sentAt); err != nil {
		h.logger.Warn("failed to record notification", map[string]interface{}{
			"notificationId": id,
			"error":          err.Error(),
		})
	}
}

func (h *Handler) markReceiptSent(ctx context.Context, receiptID string) {
	if receiptID == "" {
		return
	}
	const query = `UPDATE receipts SET status = 'sent', sent_at = NOW() WHERE id = $1`
	if _, err := h.db.ExecContext(ctx, query, receiptID); err != nil {
		h.logger.Warn("failed to mark receipt sent", map[string]interface{}{
			"receiptId": receiptID,
			"error":     err.Error(),
		})
	}
}

func receiptTemplate() struct{ Subject, Body string } {
	return struct{ Subject, Body string }{
		Subject: "Votre quittance de loyer {{period}}",
		Body: "Bonjour {{tenantName}},\n\n" +
			"Votre paiement de {{amount}} EUR pour la periode {{period}} a bien ete recu. " +
			"Votre quittance de loyer est disponible dans votre espace locataire.\n\n" +
			"Reference: {{receiptId}}",
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
