package postgres

import (
	"fmt"

	"github.com/GoSim-25-26J-441/playground-sync/config"
)

// DSN prefers an explicit DATABASE_URL and otherwise builds a keyword/value
// string. Both forms are understood by lib/pq and pgx.
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslmode,
	)
}
