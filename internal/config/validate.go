package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/kebairia/appbackup/internal/backup"
	"github.com/robfig/cron/v3"
)

// SupportedDrivers are the database engine identifiers a backup can be taken
// from. The empty string means no database is configured (files-only setups).
var SupportedDrivers = []string{"", "mysql", "pgsql", "postgres", "sqlite"}

// SupportedBinaries are the client tools database.binaries may override.
var SupportedBinaries = []string{"mysqldump", "mysql", "pg_dump", "psql"}

// SupportedDisks are the catalogue storage backends.
var SupportedDisks = []string{"local", "memory"}

// SupportedCompression are the archive entry compression methods.
var SupportedCompression = []string{"deflate", "zstd"}

// Validate checks the loaded configuration and returns every problem found,
// joined and wrapped in ErrValidateConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !slices.Contains(SupportedDisks, c.Storage.Disk) {
		add("storage.disk %q is not one of %s", c.Storage.Disk, strings.Join(SupportedDisks, ", "))
	}
	if strings.TrimSpace(c.Storage.Directory) == "" {
		add("storage.directory must not be empty")
	}

	if c.Retention.MaxBackups < 1 {
		add("retention.max_backups must be at least 1, got %d", c.Retention.MaxBackups)
	}
	for kind, n := range c.Retention.PerKind {
		if _, err := backup.ParseKind(kind); err != nil {
			add("retention.per_kind: %v", err)
		}
		if n < 1 {
			add("retention.per_kind.%s must be at least 1, got %d", kind, n)
		}
	}

	if !slices.Contains(SupportedCompression, c.Backup.Compression.Method) {
		add("backup.compression.method %q is not one of %s",
			c.Backup.Compression.Method, strings.Join(SupportedCompression, ", "))
	}
	if c.Backup.Compression.Level < 0 || c.Backup.Compression.Level > 9 {
		add("backup.compression.level must be between 0 and 9, got %d", c.Backup.Compression.Level)
	}
	if c.Backup.Timeout < 0 {
		add("backup.timeout must not be negative")
	}
	if c.Backup.MemoryLimit != "" {
		if _, err := humanize.ParseBytes(c.Backup.MemoryLimit); err != nil {
			add("backup.memory_limit %q: %v", c.Backup.MemoryLimit, err)
		}
	}

	if !slices.Contains(SupportedDrivers, c.Database.Driver) {
		add("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.Database == "" {
		add("database.database must point at the sqlite file")
	}
	for tool, bin := range c.Database.Binaries {
		if !slices.Contains(SupportedBinaries, tool) {
			add("database.binaries: unknown tool %q, expected one of %s", tool, strings.Join(SupportedBinaries, ", "))
		}
		if bin == "" {
			add("database.binaries.%s must not be empty", tool)
		}
	}

	for kind, expr := range c.Schedules.ByKind() {
		if expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(expr); err != nil {
			add("schedules.%s %q: %v", kind, expr, err)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidateConfig, errors.Join(errs...))
}

// ByKind maps each backup kind to its cron expression.
func (s ScheduleConfig) ByKind() map[backup.Kind]string {
	return map[backup.Kind]string{
		backup.KindFull:     s.Full,
		backup.KindDatabase: s.Database,
		backup.KindFiles:    s.Files,
	}
}
