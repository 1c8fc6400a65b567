// internal/workers/detection/check-payment-deadline/config.go
package checkpaymentdeadline

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
