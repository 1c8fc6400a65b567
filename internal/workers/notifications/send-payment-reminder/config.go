// internal/workers/notifications/send-payment-reminder/config.go
package sendpaymentreminder

import "time"

type Config struct {
	SMSEnabled bool
	Timeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		SMSEnabled: true,
		Timeout:    30 * time.Second,
	}
}
