package database

import (
	"fmt"

	"github.com/kebairia/appbackup/internal/config"
)

// New builds the driver selected by cfg.Driver. Tools listed in cfg.Binaries
// are resolved before opts, so WithBinary still wins.
func New(cfg config.DatabaseConfig, opts ...Option) (Driver, error) {
	base := make([]Option, 0, len(cfg.Binaries)+len(opts))
	for tool, bin := range cfg.Binaries {
		base = append(base, WithBinary(tool, bin))
	}
	s := newSettings(append(base, opts...))
	user, pass := cfg.Username, cfg.Password
	if s.username != "" {
		user = s.username
	}
	if s.password != "" {
		pass = s.password
	}

	switch cfg.Driver {
	case EngineMySQL:
		return &MySQL{
			settings:          s,
			Host:              cfg.Host,
			Port:              portOr(cfg.Port, "3306"),
			Username:          user,
			Password:          pass,
			Database:          cfg.Database,
			SingleTransaction: cfg.SingleTransaction,
		}, nil
	case EnginePostgres, "postgres":
		return &Postgres{
			settings: s,
			Host:     cfg.Host,
			Port:     portOr(cfg.Port, "5432"),
			Username: user,
			Password: pass,
			Database: cfg.Database,
		}, nil
	case EngineSQLite:
		if cfg.Database == "" {
			return nil, fmt.Errorf("%w: sqlite needs a database path", ErrUnsupportedDriver)
		}
		return &SQLite{settings: s, Path: cfg.Database}, nil
	case "":
		return nil, fmt.Errorf("%w: no database driver configured", ErrUnsupportedDriver)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

func portOr(port, def string) string {
	if port == "" {
		return def
	}
	return port
}
