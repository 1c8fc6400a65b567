// internal/workers/rules/revoke-bank-connection/handler_test.go
package revokebankconnection

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

func createTestHandler(t *testing.T, db *sql.DB, redisClient *redis.Client) *Handler {
	handler := NewHandler(&Config{Timeout: 10 * time.Second}, db, redisClient, logger.NewTestLogger(t))
	handler.now = func() time.Time {
		return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	}
	return handler
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestHandler_Execute_DeletesRulesAndReleasesState(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mr, redisClient := newTestRedis(t)

	require.NoError(t, mr.Set("rules:conn-1", "[]"))
	require.NoError(t, mr.Set("receipt:lock:tenant-1:2025-03", "tx-1"))
	require.NoError(t, mr.Set("receipt:lock:tenant-2:2025-03", "tx-2"))

	mock.ExpectQuery("DELETE FROM matching_rules").
		WithArgs("conn-1").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}).
			AddRow("tenant-1").
			AddRow("tenant-2"))

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{ConnectionID: "conn-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, output.DeletedRules)
	assert.Equal(t, 2, output.ReleasedLocks)
	assert.True(t, output.CacheInvalidated)
	assert.False(t, mr.Exists("rules:conn-1"))
	assert.False(t, mr.Exists("receipt:lock:tenant-1:2025-03"))
	assert.False(t, mr.Exists("receipt:lock:tenant-2:2025-03"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_NoRulesForConnection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, redisClient := newTestRedis(t)

	mock.ExpectQuery("DELETE FROM matching_rules").
		WithArgs("conn-9").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}))

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{ConnectionID: "conn-9"})
	require.NoError(t, err)

	assert.Equal(t, 0, output.DeletedRules)
	assert.Equal(t, 0, output.ReleasedLocks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_LocksFromOtherPeriodsUntouched(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mr, redisClient := newTestRedis(t)

	require.NoError(t, mr.Set("receipt:lock:tenant-1:2025-02", "tx-0"))

	mock.ExpectQuery("DELETE FROM matching_rules").
		WithArgs("conn-1").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}).AddRow("tenant-1"))

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{ConnectionID: "conn-1"})
	require.NoError(t, err)

	assert.Equal(t, 0, output.ReleasedLocks)
	assert.True(t, mr.Exists("receipt:lock:tenant-1:2025-02"))
}

func TestHandler_Execute_MissingConnectionID(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, redisClient := newTestRedis(t)

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{})
	assert.Nil(t, output)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connectionId is required")
}

func TestHandler_Execute_DeleteFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, redisClient := newTestRedis(t)

	mock.ExpectQuery("DELETE FROM matching_rules").
		WillReturnError(fmt.Errorf("connection refused"))

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{ConnectionID: "conn-1"})
	assert.Nil(t, output)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRevocationFailed)
}
