// internal/workers/data-access/query-match-audit/queries/registry.go
package queries

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

type QueryResult struct {
	Data      []map[string]interface{}
	TotalHits int64
	Took      int64
}

func Execute(ctx context.Context, esClient *elasticsearch.Client, aq AuditQuery) (*QueryResult, error) {
	req, err := BuildQuery(esClient, aq)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := req.Do(ctx, esClient)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search query failed: %s", res.String())
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	hits, ok := r["hits"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("malformed search response")
	}
	total := float64(0)
	if t, ok := hits["total"].(map[string]interface{}); ok {
		if v, ok := t["value"].(float64); ok {
			total = v
		}
	}

	var data []map[string]interface{}
	if hitList, ok := hits["hits"].([]interface{}); ok {
		for _, hit := range hitList {
			if source, ok := hit.(map[string]interface{})["_source"].(map[string]interface{}); ok {
				data = append(data, source)
			}
		}
	}

	return &QueryResult{
		Data:      data,
		TotalHits: int64(total),
		Took:      time.Since(start).Milliseconds(),
	}, nil
}
