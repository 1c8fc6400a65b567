// internal/workers/billing/validate-subscription/models.go
package validatesubscription

type Input struct {
	LandlordID string `json:"landlordId"`
}

// Output represents the output data after subscription validation
type Output struct {
	IsValid bool   `json:"isValid"`
	Tier    string `json:"tier"`
	Status  string `json:"status"`
}
