// internal/workers/rules/revoke-bank-connection/models.go
package revokebankconnection

// Input holds the variables for the revocation job.
type Input struct {
	ConnectionID string `json:"connectionId"`
}

// Output is the result returned to the process instance.
type Output struct {
	DeletedRules     int  `json:"deletedRules"`
	ReleasedLocks    int  `json:"releasedLocks"`
	CacheInvalidated bool `json:"cacheInvalidated"`
}
