// internal/workers/billing/sync-subscription-status/models.go
package syncsubscriptionstatus

// Input holds the variables for the subscription sync job.
type Input struct {
	LandlordID        string `json:"landlordId"`
	BillingCustomerID string `json:"billingCustomerId"`
}

// Output is the refreshed subscription state returned to the process.
type Output struct {
	LandlordID string `json:"landlordId"`
	Tier       string `json:"tier"`
	Status     string `json:"status"`
	PeriodEnd  string `json:"periodEnd,omitempty"`
}
