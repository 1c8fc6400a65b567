// internal/workers/data-access/query-match-audit/config.go
package querymatchaudit

import "time"

type Config struct {
	Timeout    time.Duration
	AuditIndex string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    30 * time.Second,
		AuditIndex: "match-outcomes",
	}
}
