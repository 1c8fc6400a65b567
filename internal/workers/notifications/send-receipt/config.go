// internal/workers/notifications/send-receipt/config.go
package sendreceipt

import "time"

type Config struct {
	EmailEnabled bool
	FromEmail    string
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		EmailEnabled: true,
		Timeout:      30 * time.Second,
	}
}
