// internal/workers/notifications/send-payment-reminder/models.go
package sendpaymentreminder

type Input struct {
	TenantID    string `json:"tenantId"`
	Period      string `json:"period"`
	DeadlineDay int    `json:"deadlineDay,omitempty"`
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
