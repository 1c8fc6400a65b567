// internal/workers/data-access/query-rent-data/queries/rules.go
package queries

import (
	"context"
	"database/sql"
	"time"
)

func MatchingRules(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	connectionID, ok := params["connectionId"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT id, tenant_id, landlord_id, expected_amount::text, tolerance_amount::text,
		       COALESCE(sender_name, ''), COALESCE(sender_iban, ''), COALESCE(description_contains, ''),
		       COALESCE(detection_deadline_day, 0), active
		FROM matching_rules
		WHERE bank_connection_id = $1
		ORDER BY tenant_id`, connectionID)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	rules := []map[string]interface{}{}
	for rows.Next() {
		var id, tenantID, landlordID, expected, tolerance string
		var senderName, senderIBAN, descriptionContains string
		var deadlineDay int
		var active bool
		if err := rows.Scan(&id, &tenantID, &landlordID, &expected, &tolerance,
			&senderName, &senderIBAN, &descriptionContains, &deadlineDay, &active); err != nil {
			return nil, 0, 0, err
		}
		rules = append(rules, map[string]interface{}{
			"id":                  id,
			"tenantId":            tenantID,
			"landlordId":          landlordID,
			"expectedAmount":      expected,
			"toleranceAmount":     tolerance,
			"senderName":          senderName,
			"senderIban":          senderIBAN,
			"descriptionContains": descriptionContains,
			"deadlineDay":         deadlineDay,
			"active":              active,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return rules, len(rules), execTime, nil
}
