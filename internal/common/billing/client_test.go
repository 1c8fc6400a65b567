// internal/common/billing/client_test.go
package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/customers/cus-1/subscription", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"tier":"premium","status":"active","currentPeriodEnd":"2025-12-31T23:59:59Z"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	sub, err := client.GetSubscription(context.Background(), "cus-1")
	require.NoError(t, err)

	assert.Equal(t, "cus-1", sub.CustomerID)
	assert.Equal(t, "premium", sub.Tier)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, "2025-12-31T23:59:59Z", sub.PeriodEnd)
}

func TestClient_GetSubscription_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	sub, err := client.GetSubscription(context.Background(), "cus-404")
	require.NoError(t, err)

	assert.Equal(t, "none", sub.Status)
	assert.Equal(t, "cus-404", sub.CustomerID)
}

func TestClient_GetSubscription_EmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	sub, err := client.GetSubscription(context.Background(), "cus-1")
	require.NoError(t, err)

	assert.Equal(t, "none", sub.Status)
}

func TestClient_GetSubscription_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	sub, err := client.GetSubscription(context.Background(), "cus-1")

	assert.Nil(t, sub)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
