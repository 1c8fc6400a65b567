// internal/workers/detection/check-payment-deadline/handler_test.go
package checkpaymentdeadline

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"quittance-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, db *sql.DB) *Handler {
	return NewHandler(&Config{Timeout: 10 * time.Second}, db, logger.NewTestLogger(t))
}

func deadlineColumns() []string {
	return []string{"id", "tenant_id", "detection_deadline_day", "paid"}
}

func expectDeadlineQuery(mock sqlmock.Sqlmock, period string, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT r.id, r.tenant_id, r.detection_deadline_day").
		WithArgs("landlord-1", period).
		WillReturnRows(rows)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_ReportsOverdueTenants(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Reference date 2025-03-10: day-5 deadline has passed, day-25 has not.
	expectDeadlineQuery(mock, "2025-03", sqlmock.NewRows(deadlineColumns()).
		AddRow("rule-1", "tenant-1", 5, false).
		AddRow("rule-2", "tenant-2", 25, false))

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		LandlordID:    "landlord-1",
		ReferenceDate: "2025-03-10",
	})
	require.NoError(t, err)

	assert.Equal(t, "2025-03", output.Period)
	assert.Equal(t, 2, output.CheckedRules)
	require.Len(t, output.Overdue, 1)
	assert.Equal(t, "rule-1", output.Overdue[0].RuleID)
	assert.Equal(t, "tenant-1", output.Overdue[0].TenantID)
	assert.Equal(t, 5, output.Overdue[0].DeadlineDay)
	assert.Equal(t, "2025-03", output.Overdue[0].Period)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_PaidTenantNotOverdue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectDeadlineQuery(mock, "2025-03", sqlmock.NewRows(deadlineColumns()).
		AddRow("rule-1", "tenant-1", 5, true))

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		LandlordID:    "landlord-1",
		ReferenceDate: "2025-03-10",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, output.CheckedRules)
	assert.Empty(t, output.Overdue)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_DeadlineDayNotYetReached(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Reference date equals the deadline day. The tenant still has until the
	// end of the day, so no reminder yet.
	expectDeadlineQuery(mock, "2025-03", sqlmock.NewRows(deadlineColumns()).
		AddRow("rule-1", "tenant-1", 10, false))

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		LandlordID:    "landlord-1",
		ReferenceDate: "2025-03-10",
	})
	require.NoError(t, err)

	assert.Empty(t, output.Overdue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ClampedDeadlineInShortMonth(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// A day-31 deadline clamps to Feb 28, which counts as overdue on the 28th.
	expectDeadlineQuery(mock, "2025-02", sqlmock.NewRows(deadlineColumns()).
		AddRow("rule-1", "tenant-1", 31, false))

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		LandlordID:    "landlord-1",
		ReferenceDate: "2025-02-28",
	})
	require.NoError(t, err)

	require.Len(t, output.Overdue, 1)
	assert.Equal(t, 31, output.Overdue[0].DeadlineDay)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_DefaultsToCurrentDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := createTestHandler(t, db)
	handler.now = func() time.Time {
		return time.Date(2025, time.June, 20, 8, 0, 0, 0, time.UTC)
	}

	expectDeadlineQuery(mock, "2025-06", sqlmock.NewRows(deadlineColumns()).
		AddRow("rule-1", "tenant-1", 15, false))

	output, err := handler.Execute(context.Background(), &Input{LandlordID: "landlord-1"})
	require.NoError(t, err)

	assert.Equal(t, "2025-06", output.Period)
	require.Len(t, output.Overdue, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_MissingLandlordID(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{})
	assert.Nil(t, output)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "landlordId is required")
}

func TestHandler_Execute_InvalidReferenceDate(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		LandlordID:    "landlord-1",
		ReferenceDate: "03/10/2025",
	})
	assert.Nil(t, output)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid referenceDate")
}

func TestHandler_Execute_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT r.id, r.tenant_id, r.detection_deadline_day").
		WillReturnError(fmt.Errorf("connection refused"))

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		LandlordID:    "landlord-1",
		ReferenceDate: "2025-03-10",
	})
	assert.Nil(t, output)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeadlineQueryFailed)
}
