// internal/workers/receipts/create-receipt-record/config.go
package createreceiptrecord

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
