// internal/workers/billing/validate-subscription/handler_test.go
package validatesubscription

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"quittance-workers/internal/common/logger"
	"quittance-workers/internal/models"

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
	return NewHandler(&Config{Timeout: 10 * time.Second, CacheTTL: 5 * time.Minute}, db, redisClient, logger.NewTestLogger(t))
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func subscriptionColumns() []string {
	return []string{"landlord_id", "tier", "status", "current_period_end"}
}

func expectSubscriptionQuery(mock sqlmock.Sqlmock, landlordID, tier, status, periodEnd string) {
	mock.ExpectQuery("SELECT landlord_id, tier, status").
		WithArgs(landlordID).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns()).
			AddRow(landlordID, tier, status, periodEnd))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_ValidSubscriptions(t *testing.T) {
	tests := []struct {
		name   string
		tier   string
		status string
	}{
		{name: "active free tier", tier: "free", status: "active"},
		{name: "active starter tier", tier: "starter", status: "active"},
		{name: "active premium tier", tier: "premium", status: "active"},
		{name: "active enterprise tier", tier: "enterprise", status: "active"},
		{name: "trialing premium tier", tier: "premium", status: "trialing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			_, redisClient := newTestRedis(t)

			periodEnd := time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339)
			expectSubscriptionQuery(mock, "landlord-1", tt.tier, tt.status, periodEnd)

			handler := createTestHandler(t, db, redisClient)
			output, err := handler.Execute(context.Background(), &Input{LandlordID: "landlord-1"})
			require.NoError(t, err)

			assert.True(t, output.IsValid)
			assert.Equal(t, tt.tier, output.Tier)
			assert.Equal(t, tt.status, output.Status)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_CachesValidSubscription(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mr, redisClient := newTestRedis(t)

	expectSubscriptionQuery(mock, "landlord-1", "premium", "active", "")

	handler := createTestHandler(t, db, redisClient)
	_, err = handler.Execute(context.Background(), &Input{LandlordID: "landlord-1"})
	require.NoError(t, err)

	assert.True(t, mr.Exists("sub:landlord-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ServedFromCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mr, redisClient := newTestRedis(t)

	cached, err := json.Marshal(models.LandlordSubscription{
		LandlordID:       "landlord-1",
		SubscriptionTier: "starter",
		Status:           "active",
		IsValid:          true,
	})
	require.NoError(t, err)
	require.NoError(t, mr.Set("sub:landlord-1", string(cached)))

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{LandlordID: "landlord-1"})
	require.NoError(t, err)

	assert.True(t, output.IsValid)
	assert.Equal(t, "starter", output.Tier)
	// No database query expected.
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_InvalidSubscriptions(t *testing.T) {
	tests := []struct {
		name      string
		tier      string
		status    string
		periodEnd string
		wantErr   error
	}{
		{
			name: "canceled subscription", tier: "premium", status: "canceled",
			wantErr: ErrSubscriptionInvalid,
		},
		{
			name: "past due subscription", tier: "starter", status: "past_due",
			wantErr: ErrSubscriptionInvalid,
		},
		{
			name: "unknown tier", tier: "platinum", status: "active",
			wantErr: ErrSubscriptionInvalid,
		},
		{
			name: "expired period", tier: "premium", status: "active",
			periodEnd: time.Now().Add(-24 * time.Hour).Format(time.RFC3339),
			wantErr:   ErrSubscriptionExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			_, redisClient := newTestRedis(t)

			expectSubscriptionQuery(mock, "landlord-1", tt.tier, tt.status, tt.periodEnd)

			handler := createTestHandler(t, db, redisClient)
			output, err := handler.Execute(context.Background(), &Input{LandlordID: "landlord-1"})

			assert.Nil(t, output)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHandler_Execute_NoSubscriptionRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, redisClient := newTestRedis(t)

	mock.ExpectQuery("SELECT landlord_id, tier, status").
		WithArgs("landlord-1").
		WillReturnError(sql.ErrNoRows)

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{LandlordID: "landlord-1"})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrSubscriptionInvalid)
}

func TestHandler_Execute_DatabaseFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, redisClient := newTestRedis(t)

	mock.ExpectQuery("SELECT landlord_id, tier, status").
		WillReturnError(fmt.Errorf("connection refused"))

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{LandlordID: "landlord-1"})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrSubscriptionCheckFailed)
}

func TestHandler_Execute_MissingLandlordID(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, redisClient := newTestRedis(t)

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrSubscriptionInvalid)
}
