// internal/workers/data-access/query-match-audit/handler.go
package querymatchaudit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"

	"quittance-workers/internal/common/logger"
	"quittance-workers/internal/workers/data-access/query-match-audit/queries"
)

const (
	TaskType = "query-match-audit"
)

var (
	ErrSearchFailed     = errors.New("ELASTICSEARCH_QUERY_FAILED")
	ErrInvalidQueryType = errors.New("INVALID_QUERY_TYPE")
)

type Handler struct {
	config *Config
	es     *elasticsearch.Client
	logger logger.Logger
}

func NewHandler(config *Config, esClient *elasticsearch.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		es:     esClient,
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
		errorCode := "ELASTICSEARCH_QUERY_FAILED"
		if errors.Is(err, ErrInvalidQueryType) {
			errorCode = "INVALID_QUERY_TYPE"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	aq := queries.AuditQuery{
		Index:         input.IndexName,
		QueryType:     input.QueryType,
		TenantID:      input.TenantID,
		TransactionID: input.TransactionID,
		ConnectionID:  input.ConnectionID,
		Period:        input.Period,
		Filters:       input.Filters,
	}
	if aq.Index == "" {
		aq.Index = h.config.AuditIndex
	}
	if aq.Filters == nil {
		aq.Filters = map[string]interface{}{}
	}

	aq.Pagination.From = 0
	aq.Pagination.Size = 20
	if from, ok := input.Pagination["from"].(float64); ok {
		aq.Pagination.From = int(from)
	}
	if size, ok := input.Pagination["size"].(float64); ok {
		aq.Pagination.Size = int(size)
		if aq.Pagination.Size > 100 {
			aq.Pagination.Size = 100
		}
		if aq.Pagination.Size < 1 {
			aq.Pagination.Size = 20
		}
	}

	result, err := queries.Execute(ctx, h.es, aq)
	if err != nil {
		if errors.Is(err, queries.ErrUnknownQueryType) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQueryType, input.QueryType)
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	return &Output{
		Data:      result.Data,
		TotalHits: result.TotalHits,
		Took:      result.Took,
	}, nil
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
