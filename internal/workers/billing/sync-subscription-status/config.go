// internal/workers/billing/sync-subscription-status/config.go
package syncsubscriptionstatus

import (
	"time"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 45 * time.Second,
	}
}
