// internal/workers/data-access/query-rent-data/queries/receipts.go
package queries

import (
	"context"
	"database/sql"
	"time"
)

const receiptHistoryLimit = 24

func ReceiptHistory(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	tenantID, ok := params["tenantId"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT id, period, amount::text, status, created_at::text, COALESCE(sent_at::text, '')
		FROM receipts
		WHERE tenant_id = $1
		ORDER BY period DESC
		LIMIT $2`, tenantID, receiptHistoryLimit)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	receipts := []map[string]interface{}{}
	for rows.Next() {
		var id, period, amount, status, createdAt, sentAt string
		if err := rows.Scan(&id, &period, &amount, &status, &createdAt, &sentAt); err != nil {
			return nil, 0, 0, err
		}
		receipts = append(receipts, map[string]interface{}{
			"id":        id,
			"period":    period,
			"amount":    amount,
			"status":    status,
			"createdAt": createdAt,
			"sentAt":    sentAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return receipts, len(receipts), execTime, nil
}
