// internal/models/query_types.go
package models

type QueryType string

const (
	QueryTypeTenantPaymentStatus QueryType = "tenant_payment_status"
	QueryTypeMatchingRules       QueryType = "matching_rules"
	QueryTypeReceiptHistory      QueryType = "receipt_history"
	QueryTypeTenantDetails       QueryType = "tenant_details"
	QueryTypeLandlordTenants     QueryType = "landlord_tenants"
)
