// internal/models/subscription.go
package models

// LandlordSubscription is the cached view of a landlord's billing status.
type LandlordSubscription struct {
	LandlordID       string `json:"landlordId"`
	SubscriptionTier string `json:"subscriptionTier"` // "free", "starter", "premium", "enterprise"
	Status           string `json:"status"`           // "active", "past_due", "canceled"
	IsValid          bool   `json:"isValid"`
	PeriodEnd        string `json:"periodEnd,omitempty"`
}
