package database

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ManuelReschke/videopass/internal/pkg/config"
)

var ErrMigrationsUnsupported = errors.New("SQL migrations are written for postgres; use DB_AUTO_MIGRATE for other drivers")

// MigrationURL builds the golang-migrate database URL for cfg.
func MigrationURL(cfg config.DatabaseConfig) (string, error) {
	if cfg.Driver != "" && cfg.Driver != "postgres" {
		return "", ErrMigrationsUnsupported
	}
	if cfg.DSN != "" {
		if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
			return cfg.DSN, nil
		}
		return "", fmt.Errorf("DATABASE_URL must be a postgres:// URL for migrations")
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
