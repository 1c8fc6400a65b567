// internal/workers/rules/revoke-bank-connection/config.go
package revokebankconnection

import (
	"time"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
