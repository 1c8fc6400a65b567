// internal/workers/data-access/query-rent-data/config.go
package queryrentdata

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
