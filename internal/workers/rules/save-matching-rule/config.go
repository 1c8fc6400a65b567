// internal/workers/rules/save-matching-rule/config.go
package savematchingrule

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
