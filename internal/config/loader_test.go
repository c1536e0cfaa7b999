package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ParsesBackupTimeoutAndRetention(t *testing.T) {
	yaml := `
storage:
  disk: memory
  directory: snapshots
backup:
  timeout: 90s
  compression:
    method: zstd
    level: 3
retention:
  max_backups: 4
  per_kind:
    database: 2
database:
  driver: pgsql
  host: db.example.com
  port: "5433"
  database: app
  binaries:
    pg_dump: /usr/lib/postgresql/16/bin/pg_dump
`
	path := writeConfig(t, t.TempDir(), "config.yaml", yaml)

	var cfg Config
	require.NoError(t, cfg.Load(path))

	assert.Equal(t, "memory", cfg.Storage.Disk)
	assert.Equal(t, "snapshots", cfg.Storage.Directory)
	assert.Equal(t, 90*time.Second, cfg.Backup.Timeout)
	assert.Equal(t, "zstd", cfg.Backup.Compression.Method)
	assert.Equal(t, 3, cfg.Backup.Compression.Level)
	assert.Equal(t, 2, cfg.Retention.MaxBackupsFor("database"))
	assert.Equal(t, 4, cfg.Retention.MaxBackupsFor("full"))
	assert.Equal(t, "pgsql", cfg.Database.Driver)
	assert.Equal(t, "5433", cfg.Database.Port)
	assert.Equal(t, map[string]string{"pg_dump": "/usr/lib/postgresql/16/bin/pg_dump"}, cfg.Database.Binaries)
	require.NoError(t, cfg.Validate())
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "app:\n  name: shop\n")

	var cfg Config
	require.NoError(t, cfg.Load(path))

	assert.Equal(t, "shop", cfg.App.Name)
	assert.Equal(t, DefaultDisk, cfg.Storage.Disk)
	assert.Equal(t, DefaultDirectory, cfg.Storage.Directory)
	assert.Equal(t, DefaultMaxBackups, cfg.Retention.MaxBackups)
	assert.Equal(t, DefaultTimeout, cfg.Backup.Timeout)
	assert.Equal(t, DefaultInclude, cfg.Files.Include)
	assert.Equal(t, DefaultExclude, cfg.Files.Exclude)
	assert.Equal(t, "0 2 * * *", cfg.Schedules.Full)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "storage:\n  disk: local\n")
	t.Setenv("BACKUP_STORAGE_DISK", "memory")
	t.Setenv("BACKUP_RETENTION_MAX_BACKUPS", "3")

	var cfg Config
	require.NoError(t, cfg.Load(path))

	assert.Equal(t, "memory", cfg.Storage.Disk)
	assert.Equal(t, 3, cfg.Retention.MaxBackups)
}

func TestLoad_MergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "db.yaml", "database:\n  driver: sqlite\n  database: /var/lib/app.db\n")
	path := writeConfig(t, dir, "config.yaml", "include:\n  - db.yaml\n")

	var cfg Config
	require.NoError(t, cfg.Load(path))

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/var/lib/app.db", cfg.Database.Database)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "storage:\n  bucket: nope\n")

	var cfg Config
	err := cfg.Load(path)
	assert.ErrorIs(t, err, ErrLoadConfig)
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg Config
	err := cfg.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrLoadConfig)
}

func TestValidate_ReportsProblems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, `database.driver "oracle"`},
		{"sqlite without file", func(c *Config) { c.Database.Driver = "sqlite" }, "sqlite file"},
		{"unknown disk", func(c *Config) { c.Storage.Disk = "ftp" }, "storage.disk"},
		{"zero retention", func(c *Config) { c.Retention.MaxBackups = 0 }, "retention.max_backups"},
		{"unknown kind", func(c *Config) { c.Retention.PerKind = map[string]int{"logs": 2} }, "retention.per_kind"},
		{"bad cron", func(c *Config) { c.Schedules.Files = "every sunday" }, "schedules.files"},
		{"bad level", func(c *Config) { c.Backup.Compression.Level = 12 }, "compression.level"},
		{"bad memory", func(c *Config) { c.Backup.MemoryLimit = "lots" }, "memory_limit"},
		{"unknown binary", func(c *Config) { c.Database.Binaries = map[string]string{"mongodump": "/bin/true"} }, `unknown tool "mongodump"`},
		{"empty binary", func(c *Config) { c.Database.Binaries = map[string]string{"psql": ""} }, "database.binaries.psql"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrValidateConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRetention_MaxBackupsForFallsBackToDefault(t *testing.T) {
	var r RetentionConfig
	assert.Equal(t, DefaultMaxBackups, r.MaxBackupsFor("full"))
}
