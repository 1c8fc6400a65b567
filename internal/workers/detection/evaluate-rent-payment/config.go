// internal/workers/detection/evaluate-rent-payment/config.go
package evaluaterentpayment

import "time"

type Config struct {
	Timeout        time.Duration
	RuleCacheTTL   time.Duration
	ReceiptLockTTL time.Duration
	AuditIndex     string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		RuleCacheTTL:   10 * time.Minute,
		ReceiptLockTTL: 24 * time.Hour,
		AuditIndex:     "match-outcomes",
	}
}
