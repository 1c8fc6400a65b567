// internal/workers/data-access/query-match-audit/queries/builders.go
package queries

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrMissingIndex     = errors.New("index name is required")
	ErrMissingParam     = errors.New("missing required parameter")
)

// AuditQuery defines the structure of an audit search request
type AuditQuery struct {
	Index         string
	QueryType     string
	TenantID      string
	TransactionID string
	ConnectionID  string
	Period        string
	Filters       map[string]interface{}
	Pagination    struct {
		From int
		Size int
	}
}

// BuildQuery builds an Elasticsearch search request over the audit index
func BuildQuery(esClient *elasticsearch.Client, aq AuditQuery) (*esapi.SearchRequest, error) {
	if aq.Index == "" {
		return nil, ErrMissingIndex
	}

	var queryBody map[string]interface{}
	var err error

	switch aq.QueryType {
	case "tenant_outcomes":
		queryBody, err = buildTenantOutcomesQuery(aq)
	case "transaction_outcomes":
		queryBody, err = buildTransactionOutcomesQuery(aq)
	case "connection_activity":
		queryBody, err = buildConnectionActivityQuery(aq)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueryType, aq.QueryType)
	}
	if err != nil {
		return nil, err
	}

	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index: []string{aq.Index},
		Body:  strings.NewReader(string(body)),
		From:  &aq.Pagination.From,
		Size:  &aq.Pagination.Size,
	}

	return &req, nil
}

// buildTenantOutcomesQuery lists a tenant's evaluations, newest first
func buildTenantOutcomesQuery(aq AuditQuery) (map[string]interface{}, error) {
	if aq.TenantID == "" {
		return nil, fmt.Errorf("%w: tenantId", ErrMissingParam)
	}

	filterClauses := []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{"outcomes.tenantId": aq.TenantID},
		},
	}

	if status, ok := aq.Filters["status"].(string); ok && status != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"status": status},
		})
	}
	if aq.Period != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"prefix": map[string]interface{}{"date": aq.Period},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filterClauses,
			},
		},
		"sort": []map[string]interface{}{{"indexedAt": "desc"}},
	}, nil
}

// buildTransactionOutcomesQuery fetches every evaluation of one transaction
func buildTransactionOutcomesQuery(aq AuditQuery) (map[string]interface{}, error) {
	if aq.TransactionID == "" {
		return nil, fmt.Errorf("%w: transactionId", ErrMissingParam)
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"transactionId": aq.TransactionID},
		},
	}, nil
}

// buildConnectionActivityQuery shows recent evaluation activity per bank
// connection, optionally narrowed to a resolution status
func buildConnectionActivityQuery(aq AuditQuery) (map[string]interface{}, error) {
	if aq.ConnectionID == "" {
		return nil, fmt.Errorf("%w: connectionId", ErrMissingParam)
	}

	filterClauses := []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{"connectionId": aq.ConnectionID},
		},
	}

	if status, ok := aq.Filters["status"].(string); ok && status != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"status": status},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filterClauses,
			},
		},
		"sort": []map[string]interface{}{{"indexedAt": "desc"}},
	}, nil
}
