// internal/workers/notifications/send-payment-reminder/handler_test.go
package sendpaymentreminder

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"quittance-workers/internal/common/logger"
	"quittance-workers/internal/notify"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSMSSender struct {
	provider string
	err      error
	sent     []*notify.Message
}

func (f *fakeSMSSender) Send(ctx context.Context, msg *notify.Message) (string, error) {
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return "", f.err
	}
	return f.provider, nil
}

func createTestHandler(t *testing.T, db *sql.DB, sms SMSSender) *Handler {
	config := &Config{SMSEnabled: true, Timeout: 10 * time.Second}
	return NewHandler(config, db, sms, logger.NewTestLogger(t))
}

func createInput() *Input {
	return &Input{
		TenantID:    "tenant-1",
		Period:      "2025-03",
		DeadlineDay: 5,
	}
}

func expectTenantLookup(mock sqlmock.Sqlmock, name, phone string) {
	mock.ExpectQuery("SELECT full_name").
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"full_name", "phone"}).AddRow(name, phone))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_SendsReminderSMS(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectTenantLookup(mock, "Marie Dupont", "+33612345678")
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(sqlmock.AnyArg(), "tenant-1", "sns", StatusSent, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sms := &fakeSMSSender{provider: "sns"}
	handler := createTestHandler(t, db, sms)

	output, err := handler.Execute(context.Background(), createInput())
	require.NoError(t, err)

	assert.Equal(t, StatusSent, output.Status)
	assert.Equal(t, "sns", output.Provider)

	require.Len(t, sms.sent, 1)
	assert.Equal(t, "+33612345678", sms.sent[0].To)
	assert.Contains(t, sms.sent[0].Body, "Marie Dupont")
	assert.Contains(t, sms.sent[0].Body, "2025-03")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_FallbackProviderRecorded(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectTenantLookup(mock, "Marie Dupont", "+33612345678")
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(sqlmock.AnyArg(), "tenant-1", "http-sms", StatusSent, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sms := &fakeSMSSender{provider: "http-sms"}
	handler := createTestHandler(t, db, sms)

	output, err := handler.Execute(context.Background(), createInput())
	require.NoError(t, err)

	assert.Equal(t, "http-sms", output.Provider)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_NoPhoneDisablesSend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectTenantLookup(mock, "Marie Dupont", "")

	sms := &fakeSMSSender{provider: "sns"}
	handler := createTestHandler(t, db, sms)

	output, err := handler.Execute(context.Background(), createInput())
	require.NoError(t, err)

	assert.Equal(t, StatusDisabled, output.Status)
	assert.Empty(t, sms.sent)
}

func TestHandler_Execute_UnknownTenantDisablesSend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT full_name").
		WithArgs("tenant-1").
		WillReturnError(sql.ErrNoRows)

	sms := &fakeSMSSender{provider: "sns"}
	handler := createTestHandler(t, db, sms)

	output, err := handler.Execute(context.Background(), createInput())
	require.NoError(t, err)

	assert.Equal(t, StatusDisabled, output.Status)
	assert.Empty(t, sms.sent)
}

func TestHandler_Execute_SMSChannelDisabledByConfig(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectTenantLookup(mock, "Marie Dupont", "+33612345678")

	sms := &fakeSMSSender{provider: "sns"}
	handler := createTestHandler(t, db, sms)
	handler.config.SMSEnabled = false

	output, err := handler.Execute(context.Background(), createInput())
	require.NoError(t, err)

	assert.Equal(t, StatusDisabled, output.Status)
	assert.Empty(t, sms.sent)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_AllProvidersFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectTenantLookup(mock, "Marie Dupont", "+33612345678")
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(sqlmock.AnyArg(), "tenant-1", "", StatusFailed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sms := &fakeSMSSender{err: fmt.Errorf("all providers failed")}
	handler := createTestHandler(t, db, sms)

	output, err := handler.Execute(context.Background(), createInput())

	assert.Nil(t, output)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReminderSendFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_MissingTenantID(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := createTestHandler(t, db, &fakeSMSSender{provider: "sns"})
	output, err := handler.Execute(context.Background(), &Input{})

	assert.Nil(t, output)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenantId is required")
}
