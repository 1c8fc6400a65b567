// internal/workers/rules/save-matching-rule/handler_test.go
package savematchingrule

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"quittance-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, db *sql.DB, redisClient *redis.Client) *Handler {
	return NewHandler(&Config{Timeout: 10 * time.Second}, db, redisClient, logger.NewTestLogger(t))
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func validRulePayload(mutate func(map[string]interface{})) map[string]interface{} {
	payload := map[string]interface{}{
		"connectionId":   "conn-1",
		"tenantId":       "tenant-1",
		"landlordId":     "landlord-1",
		"expectedAmount": "900.00",
	}
	if mutate != nil {
		mutate(payload)
	}
	return payload
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_SavesRuleAndInvalidatesCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mr, redisClient := newTestRedis(t)
	require.NoError(t, mr.Set("rules:conn-1", "[]"))

	mock.ExpectQuery("INSERT INTO matching_rules").
		WithArgs(sqlmock.AnyArg(), "conn-1", "tenant-1", "landlord-1", "900.00", "0",
			nil, nil, nil, nil, true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rule-1"))

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{Rule: validRulePayload(nil)})
	require.NoError(t, err)

	assert.Equal(t, "rule-1", output.RuleID)
	assert.True(t, output.Active)
	assert.True(t, output.CacheInvalidated)
	assert.False(t, mr.Exists("rules:conn-1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_SavesRuleWithAllChecks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, redisClient := newTestRedis(t)

	mock.ExpectQuery("INSERT INTO matching_rules").
		WithArgs("rule-7", "conn-1", "tenant-1", "landlord-1", "900.00", "10.00",
			"Dupont", "FR7630006000011234567890189", "loyer,location", 5, true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rule-7"))

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{Rule: validRulePayload(func(p map[string]interface{}) {
		p["id"] = "rule-7"
		p["toleranceAmount"] = "10.00"
		p["senderName"] = "Dupont"
		p["senderIban"] = "FR7630006000011234567890189"
		p["descriptionContains"] = "loyer,location"
		p["deadlineDay"] = 5
	})})
	require.NoError(t, err)

	assert.Equal(t, "rule-7", output.RuleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_DeactivatesRule(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, redisClient := newTestRedis(t)

	mock.ExpectQuery("INSERT INTO matching_rules").
		WithArgs(sqlmock.AnyArg(), "conn-1", "tenant-1", "landlord-1", "900.00", "0",
			nil, nil, nil, nil, false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rule-1"))

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{Rule: validRulePayload(func(p map[string]interface{}) {
		p["active"] = false
	})})
	require.NoError(t, err)

	assert.False(t, output.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Validation Tests
// ==========================

func TestHandler_Execute_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		rule map[string]interface{}
	}{
		{
			name: "missing rule payload",
			rule: nil,
		},
		{
			name: "missing tenantId",
			rule: validRulePayload(func(p map[string]interface{}) { delete(p, "tenantId") }),
		},
		{
			name: "missing expectedAmount",
			rule: validRulePayload(func(p map[string]interface{}) { delete(p, "expectedAmount") }),
		},
		{
			name: "empty connectionId",
			rule: validRulePayload(func(p map[string]interface{}) { p["connectionId"] = "" }),
		},
		{
			name: "unknown field rejected",
			rule: validRulePayload(func(p map[string]interface{}) { p["pricingTier"] = "premium" }),
		},
		{
			name: "negative expectedAmount",
			rule: validRulePayload(func(p map[string]interface{}) { p["expectedAmount"] = "-50.00" }),
		},
		{
			name: "negative toleranceAmount",
			rule: validRulePayload(func(p map[string]interface{}) { p["toleranceAmount"] = "-1.00" }),
		},
		{
			name: "deadline day out of range",
			rule: validRulePayload(func(p map[string]interface{}) { p["deadlineDay"] = 32 }),
		},
		{
			name: "non-numeric expectedAmount",
			rule: validRulePayload(func(p map[string]interface{}) { p["expectedAmount"] = "abc" }),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			_, redisClient := newTestRedis(t)

			handler := createTestHandler(t, db, redisClient)
			output, err := handler.Execute(context.Background(), &Input{Rule: tt.rule})

			assert.Nil(t, output)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidationFailed)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_PersistFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, redisClient := newTestRedis(t)

	mock.ExpectQuery("INSERT INTO matching_rules").
		WillReturnError(fmt.Errorf("unique constraint violated"))

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{Rule: validRulePayload(nil)})

	assert.Nil(t, output)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRulePersistFailed)
}

func TestHandler_Execute_CacheInvalidationFailureIsNotFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mr, redisClient := newTestRedis(t)

	mock.ExpectQuery("INSERT INTO matching_rules").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rule-1"))

	mr.Close()

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{Rule: validRulePayload(nil)})
	require.NoError(t, err)

	assert.Equal(t, "rule-1", output.RuleID)
	assert.False(t, output.CacheInvalidated)
}
