// internal/workers/data-access/query-match-audit/models.go
package querymatchaudit

type Input struct {
	QueryType     string                 `json:"queryType"`
	IndexName     string                 `json:"indexName,omitempty"`
	TenantID      string                 `json:"tenantId,omitempty"`
	TransactionID string                 `json:"transactionId,omitempty"`
	ConnectionID  string                 `json:"connectionId,omitempty"`
	Period        string                 `json:"period,omitempty"`
	Filters       map[string]interface{} `json:"filters,omitempty"`
	Pagination    map[string]interface{} `json:"pagination,omitempty"`
}

type Output struct {
	Data      []map[string]interface{} `json:"data"`
	TotalHits int64                    `json:"totalHits"`
	Took      int64                    `json:"took"` // milliseconds
}

// Query types
const (
	QueryTypeTenantOutcomes      = "tenant_outcomes"
	QueryTypeTransactionOutcomes = "transaction_outcomes"
	QueryTypeConnectionActivity  = "connection_activity"
)
