// internal/workers/data-access/query-rent-data/queries/tenant.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func TenantDetails(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	tenantID, ok := params["tenantId"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	var id, landlordID, fullName, email, phone, propertyID string
	err := db.QueryRowContext(ctx, `
		SELECT id, landlord_id, full_name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(property_id, '')
		FROM tenants
		WHERE id = $1`, tenantID).Scan(
		&id, &landlordID, &fullName, &email, &phone, &propertyID,
	)
	if err != nil {
		return nil, 0, 0, err
	}

	result := map[string]interface{}{
		"id":         id,
		"landlordId": landlordID,
		"fullName":   fullName,
		"email":      email,
		"phone":      phone,
		"propertyId": propertyID,
	}

	execTime := time.Since(start).Milliseconds()
	return result, 1, execTime, nil
}

func LandlordTenants(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	landlordID, ok := params["landlordId"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT id, full_name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(property_id, '')
		FROM tenants
		WHERE landlord_id = $1
		ORDER BY full_name`, landlordID)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	tenants := []map[string]interface{}{}
	for rows.Next() {
		var id, fullName, email, phone, propertyID string
		if err := rows.Scan(&id, &fullName, &email, &phone, &propertyID); err != nil {
			return nil, 0, 0, err
		}
		tenants = append(tenants, map[string]interface{}{
			"id":         id,
			"fullName":   fullName,
			"email":      email,
			"phone":      phone,
			"propertyId": propertyID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return tenants, len(tenants), execTime, nil
}

// TenantPaymentStatus reports whether the tenant's rent was detected for a
// period and whether the receipt went out.
func TenantPaymentStatus(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	tenantID, ok := params["tenantId"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}
	period, ok := params["period"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	var transactionID string
	paid := true
	err := db.QueryRowContext(ctx, `
		SELECT transaction_id
		FROM match_outcomes
		WHERE tenant_id = $1 AND period = $2 AND matched = true
		ORDER BY evaluated_at DESC
		LIMIT 1`, tenantID, period).Scan(&transactionID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, 0, 0, err
		}
		paid = false
	}

	var receiptID, receiptStatus string
	err = db.QueryRowContext(ctx, `
		SELECT id, status
		FROM receipts
		WHERE tenant_id = $1 AND period = $2`, tenantID, period).Scan(&receiptID, &receiptStatus)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, 0, err
	}

	result := map[string]interface{}{
		"tenantId":      tenantID,
		"period":        period,
		"paid":          paid,
		"transactionId": transactionID,
		"receiptId":     receiptID,
		"receiptStatus": receiptStatus,
	}

	execTime := time.Since(start).Milliseconds()
	return result, 1, execTime, nil
}
