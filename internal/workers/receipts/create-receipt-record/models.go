// internal/workers/receipts/create-receipt-record/models.go
package createreceiptrecord

// Input holds the variables for the receipt creation job.
type Input struct {
	TenantID      string `json:"tenantId"`
	LandlordID    string `json:"landlordId"`
	TransactionID string `json:"transactionId"`
	Period        string `json:"period"` // "YYYY-MM"
	Amount        string `json:"amount"`
}

// Output is the result returned to the process instance.
type Output struct {
	ReceiptID string `json:"receiptId"`
	Created   bool   `json:"created"`
}
