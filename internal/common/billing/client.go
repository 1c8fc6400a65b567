// internal/common/billing/client.go
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin REST client for the billing provider. It reads
// subscription state only; checkout and payment flows live entirely on the
// provider's side.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// SubscriptionStatus is the provider's view of a landlord subscription.
type SubscriptionStatus struct {
	CustomerID string `json:"customerId"`
	Tier       string `json:"tier"`
	Status     string `json:"status"`
	PeriodEnd  string `json:"currentPeriodEnd"`
}

type subscriptionResponse struct {
	Data []SubscriptionStatus `json:"data"`
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetSubscription fetches the current subscription for a customer. A
// customer with no subscription at all returns status "none" rather than
// an error.
func (c *Client) GetSubscription(ctx context.Context, customerID string) (*SubscriptionStatus, error) {
	url := fmt.Sprintf("%s/v1/customers/%s/subscription", c.baseURL, customerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return &SubscriptionStatus{CustomerID: customerID, Status: "none"}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("billing provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var subResp subscriptionResponse
	if err := json.Unmarshal(body, &subResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(subResp.Data) == 0 {
		return &SubscriptionStatus{CustomerID: customerID, Status: "none"}, nil
	}

	sub := subResp.Data[0]
	sub.CustomerID = customerID
	return &sub, nil
}
