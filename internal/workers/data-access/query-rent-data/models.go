// internal/workers/data-access/query-rent-data/models.go
package queryrentdata

import "quittance-workers/internal/models"

type Input struct {
	QueryType    string                 `json:"queryType"`
	TenantID     string                 `json:"tenantId,omitempty"`
	LandlordID   string                 `json:"landlordId,omitempty"`
	ConnectionID string                 `json:"connectionId,omitempty"`
	Period       string                 `json:"period,omitempty"`
	Filters      map[string]interface{} `json:"filters,omitempty"`
}

type Output struct {
	Data               interface{} `json:"data"`
	RowCount           int         `json:"rowCount"`
	QueryExecutionTime int64       `json:"queryExecutionTime"` // milliseconds
}

type QueryType = models.QueryType

// Export constants for external use
var (
	QueryTypeTenantPaymentStatus = models.QueryTypeTenantPaymentStatus
	QueryTypeMatchingRules       = models.QueryTypeMatchingRules
	QueryTypeReceiptHistory      = models.QueryTypeReceiptHistory
	QueryTypeTenantDetails       = models.QueryTypeTenantDetails
	QueryTypeLandlordTenants     = models.QueryTypeLandlordTenants
)
