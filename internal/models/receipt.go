// internal/models/receipt.go
package models

import "github.com/shopspring/decimal"

// Receipt is a rent receipt (quittance) record. Uniqueness is enforced per
// (tenantId, period) by the database, which backs the at-most-once
// generation guarantee.
type Receipt struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenantId"`
	LandlordID    string          `json:"landlordId"`
	TransactionID string          `json:"transactionId"`
	Period        string          `json:"period"` // "YYYY-MM"
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"` // "created", "sent"
	CreatedAt     string          `json:"createdAt"`
	SentAt        string          `json:"sentAt,omitempty"`
}

// Tenant is the rent-paying party a receipt is issued to.
type Tenant struct {
	ID         string `json:"id"`
	LandlordID string `json:"landlordId"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	PropertyID string `json:"propertyId,omitempty"`
	CreatedAt  string `json:"createdAt"`
}
