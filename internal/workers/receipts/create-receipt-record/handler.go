// internal/workers/receipts/create-receipt-record/handler.go
package createreceiptrecord

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quittance-workers/internal/common/logger"
	"quittance-workers/internal/common/metrics"
)

const (
	TaskType = "create-receipt-record"
)

var (
	ErrDuplicateReceipt      = errors.New("DUPLICATE_RECEIPT")
	ErrReceiptPersistFailed  = errors.New("DATABASE_INSERT_FAILED")
	ErrInvalidReceiptRequest = errors.New("VALIDATION_ERROR")
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
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
		switch {
		case errors.Is(err, ErrDuplicateReceipt):
			errorCode = "DUPLICATE_RECEIPT"
		case errors.Is(err, ErrInvalidReceiptRequest):
			errorCode = "VALIDATION_ERROR"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReceiptRequest, err)
	}

	receiptID := uuid.New().String()

	// The unique (tenant_id, period) constraint is what guarantees at most
	// one receipt per tenant per month, regardless of how many detection
	// runs raced to this point.
	const query = `INSERT INTO receipts (id, tenant_id, landlord_id, transaction_id, period, amount, status, created_at)
	               VALUES ($1, $2, $3, $4, $5, $6, 'created', NOW())
	               ON CONFLICT (tenant_id, period) DO NOTHING
	               RETURNING id`

	err := h.db.QueryRowContext(ctx, query,
		receiptID, input.TenantID, input.LandlordID, input.TransactionID, input.Period, input.Amount,
	).Scan(&receiptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			metrics.ReceiptsCreated.WithLabelValues("duplicate").Inc()
			h.logger.Warn("receipt already exists for period", map[string]interface{}{
				"tenantId": input.TenantID,
				"period":   input.Period,
			})
			return nil, fmt.Errorf("%w: tenant %s period %s", ErrDuplicateReceipt, input.TenantID, input.Period)
		}
		return nil, fmt.Errorf("%w: %v", ErrReceiptPersistFailed, err)
	}

	metrics.ReceiptsCreated.WithLabelValues("created").Inc()
	h.logger.Info("receipt record created", map[string]interface{}{
		"receiptId": receiptID,
		"tenantId":  input.TenantID,
		"period":    input.Period,
	})

	return &Output{ReceiptID: receiptID, Created: true}, nil
}

func validateInput(input *Input) error {
	if input.TenantID == "" {
		return fmt.Errorf("tenantId is required")
	}
	if input.LandlordID == "" {
		return fmt.Errorf("landlordId is required")
	}
	if input.TransactionID == "" {
		return fmt.Errorf("transactionId is required")
	}
	if !periodPattern.MatchString(input.Period) {
		return fmt.Errorf("period must be YYYY-MM, got %q", input.Period)
	}
	amount, err := decimal.NewFromString(input.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q", input.Amount)
	}
	if amount.IsNegative() {
		return fmt.Errorf("amount must not be negative")
	}
	return nil
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
