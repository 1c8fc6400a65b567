// internal/workers/notifications/send-receipt/models.go
package sendreceipt

type Input struct {
	ReceiptID string                 `json:"receiptId"`
	TenantID  string                 `json:"tenantId"`
	Period    string                 `json:"period"`
	Amount    string                 `json:"amount"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "failed", "disabled"
	Provider       string `json:"provider,omitempty"`
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
