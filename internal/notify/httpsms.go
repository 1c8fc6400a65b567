package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	commonhttp "quittance-workers/internal/common/http"
)

// HTTPSMSProvider sends SMS through a generic REST gateway, the fallback
// behind SNS in the SMS chain. The gateway is expected to accept a JSON
// POST of {"to": ..., "message": ...} and answer 2xx on acceptance.
type HTTPSMSProvider struct {
	baseURL    string
	apiKey     string
	sender     string
	httpClient *commonhttp.Client
}

func NewHTTPSMSProvider(baseURL, apiKey, sender string) *HTTPSMSProvider {
	return &HTTPSMSProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		sender:     sender,
		httpClient: commonhttp.NewClient(30 * time.Second),
	}
}

func (p *HTTPSMSProvider) Name() string { return "http-sms" }

func (p *HTTPSMSProvider) Send(ctx context.Context, msg *Message) error {
	payload := map[string]string{
		"to":      msg.To,
		"message": msg.Body,
	}
	if p.sender != "" {
		payload["sender"] = p.sender
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal SMS payload: %w", err)
	}

	url := fmt.Sprintf("%s/messages", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms gateway rejected message (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}
