// Package database dumps the application database to a plain SQL (or, for
// SQLite, a byte copy) file and loads such a file back.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/kebairia/appbackup/internal/logger"
)

var (
	ErrTimeout           = errors.New("operation timed out")
	ErrDumpFailed        = errors.New("database dump failed")
	ErrRestoreFailed     = errors.New("database restore failed")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	ErrFileNotFound      = errors.New("database file not found")
)

const (
	EngineMySQL    = "mysql"
	EnginePostgres = "pgsql"
	EngineSQLite   = "sqlite"
)

// Driver is implemented by MySQL, Postgres and SQLite only.
type Driver interface {
	// Engine returns the driver name as written in configuration.
	Engine() string
	// Dump writes the database to outPath, creating or truncating it.
	Dump(ctx context.Context, outPath string) error
	// Restore loads the file at inPath into the database.
	Restore(ctx context.Context, inPath string) error
}

// Option overrides settings shared by every driver.
type Option func(*settings)

type settings struct {
	timeout  time.Duration
	log      logger.Logger
	binaries map[string]string
	username string
	password string
}

func newSettings(opts []Option) settings {
	s := settings{
		log:      logger.Nop(),
		binaries: map[string]string{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithTimeout bounds every external process. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithBinary runs path instead of the tool called name (mysqldump, mysql,
// pg_dump or psql).
func WithBinary(name, path string) Option {
	return func(s *settings) {
		if path != "" {
			s.binaries[name] = path
		}
	}
}

// WithCredentials replaces the configured username and password, e.g. with
// short-lived credentials issued by Vault.
func WithCredentials(user, pass string) Option {
	return func(s *settings) {
		if user != "" {
			s.username = user
		}
		if pass != "" {
			s.password = pass
		}
	}
}

func (s settings) binary(name string) string {
	if p, ok := s.binaries[name]; ok {
		return p
	}
	return name
}
