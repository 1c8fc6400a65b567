// internal/models/notification.go
package models

type Notification struct {
	ID            string                 `json:"id"`
	RecipientID   string                 `json:"recipientId"`
	RecipientType string                 `json:"recipientType"` // "landlord" or "tenant"
	Type          string                 `json:"type"`          // "receipt_ready", "payment_overdue"
	Channel       string                 `json:"channel"`       // "email", "sms"
	Provider      string                 `json:"provider"`      // provider that accepted the send
	Status        string                 `json:"status"`        // "sent", "failed", "disabled"
	Payload       map[string]interface{} `json:"payload"`
	SentAt        string                 `json:"sentAt"`
	CreatedAt     string                 `json:"createdAt"`
}

type NotificationTemplate struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	HTMLBody string `json:"htmlBody,omitempty"`
	Version  string `json:"version"`
}
