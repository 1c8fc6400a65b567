// internal/workers/billing/sync-subscription-status/handler_test.go
package syncsubscriptionstatus

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"quittance-workers/internal/common/billing"
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

type fakeBilling struct {
	sub   *billing.SubscriptionStatus
	err   error
	calls int
}

func (f *fakeBilling) GetSubscription(ctx context.Context, customerID string) (*billing.SubscriptionStatus, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

func createTestHandler(t *testing.T, db *sql.DB, redisClient *redis.Client, api BillingAPI) *Handler {
	return NewHandler(&Config{Timeout: 10 * time.Second}, db, redisClient, api, logger.NewTestLogger(t))
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_SyncsProviderState(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mr, redisClient := newTestRedis(t)
	require.NoError(t, mr.Set("sub:landlord-1", "stale"))

	periodEnd := "2025-12-31T23:59:59Z"
	api := &fakeBilling{sub: &billing.SubscriptionStatus{
		CustomerID: "cus-1",
		Tier:       "premium",
		Status:     "active",
		PeriodEnd:  periodEnd,
	}}

	mock.ExpectExec("INSERT INTO landlord_subscriptions").
		WithArgs("landlord-1", "premium", "active", periodEnd).
		WillReturnResult(sqlmock.NewResult(0, 1))

	handler := createTestHandler(t, db, redisClient, api)
	output, err := handler.Execute(context.Background(), &Input{
		LandlordID:        "landlord-1",
		BillingCustomerID: "cus-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "premium", output.Tier)
	assert.Equal(t, "active", output.Status)
	assert.Equal(t, periodEnd, output.PeriodEnd)
	assert.Equal(t, 1, api.calls)
	assert.False(t, mr.Exists("sub:landlord-1"), "validation cache must be invalidated")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_UnbilledCustomerFallsBackToFreeTier(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, redisClient := newTestRedis(t)

	api := &fakeBilling{sub: &billing.SubscriptionStatus{
		CustomerID: "cus-1",
		Status:     "none",
	}}

	mock.ExpectExec("INSERT INTO landlord_subscriptions").
		WithArgs("landlord-1", "free", "active", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	handler := createTestHandler(t, db, redisClient, api)
	output, err := handler.Execute(context.Background(), &Input{
		LandlordID:        "landlord-1",
		BillingCustomerID: "cus-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "free", output.Tier)
	assert.Equal(t, "active", output.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_MissingInputs(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, redisClient := newTestRedis(t)

	handler := createTestHandler(t, db, redisClient, &fakeBilling{})

	output, err := handler.Execute(context.Background(), &Input{BillingCustomerID: "cus-1"})
	assert.Nil(t, output)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "landlordId is required")

	output, err = handler.Execute(context.Background(), &Input{LandlordID: "landlord-1"})
	assert.Nil(t, output)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "billingCustomerId is required")
}

func TestHandler_Execute_ProviderFailure(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, redisClient := newTestRedis(t)

	api := &fakeBilling{err: fmt.Errorf("billing provider returned status 503")}

	handler := createTestHandler(t, db, redisClient, api)
	output, err := handler.Execute(context.Background(), &Input{
		LandlordID:        "landlord-1",
		BillingCustomerID: "cus-1",
	})

	assert.Nil(t, output)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestHandler_Execute_PersistFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, redisClient := newTestRedis(t)

	api := &fakeBilling{sub: &billing.SubscriptionStatus{
		CustomerID: "cus-1",
		Tier:       "starter",
		Status:     "active",
	}}

	mock.ExpectExec("INSERT INTO landlord_subscriptions").
		WillReturnError(fmt.Errorf("deadlock detected"))

	handler := createTestHandler(t, db, redisClient, api)
	output, err := handler.Execute(context.Background(), &Input{
		LandlordID:        "landlord-1",
		BillingCustomerID: "cus-1",
	})

	assert.Nil(t, output)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyncPersistFailed)
}
