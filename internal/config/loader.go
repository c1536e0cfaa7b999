package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrLoadConfig indicates a failure to read or parse the YAML configuration.
var ErrLoadConfig = errors.New("config load failed")

// ErrValidateConfig indicates that the loaded configuration is invalid.
var ErrValidateConfig = errors.New("configuration validation failed")

// EnvPrefix is prepended to every environment override, e.g.
// BACKUP_STORAGE_DISK or BACKUP_RETENTION_MAX_BACKUPS.
const EnvPrefix = "BACKUP"

// Config represents the top-level YAML configuration file.
type Config struct {
	Include   []string        `mapstructure:"include"   yaml:"include,omitempty"`
	App       AppConfig       `mapstructure:"app"       yaml:"app"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Backup    BackupConfig    `mapstructure:"backup"    yaml:"backup"`
	Retention RetentionConfig `mapstructure:"retention" yaml:"retention"`
	Schedules ScheduleConfig  `mapstructure:"schedules" yaml:"schedules"`
	Files     FilesConfig     `mapstructure:"files"     yaml:"files"`
	Database  DatabaseConfig  `mapstructure:"database"  yaml:"database"`
	Log       LogConfig       `mapstructure:"log"       yaml:"log"`
}

// AppConfig describes the application being backed up. The values only end up
// in metadata.json.
type AppConfig struct {
	Name        string `mapstructure:"name"        yaml:"name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
	URL         string `mapstructure:"url"         yaml:"url"`
	Version     string `mapstructure:"version"     yaml:"version"`
}

// StorageConfig selects the disk holding the catalogue.
type StorageConfig struct {
	Disk      string `mapstructure:"disk"      yaml:"disk"`
	Root      string `mapstructure:"root"      yaml:"root"`
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// BackupConfig contains global backup options.
type BackupConfig struct {
	TempDirectory string            `mapstructure:"temp_directory" yaml:"temp_directory"`
	Timeout       time.Duration     `mapstructure:"timeout"        yaml:"timeout"`
	MemoryLimit   string            `mapstructure:"memory_limit"   yaml:"memory_limit"`
	Encrypt       bool              `mapstructure:"encrypt"        yaml:"encrypt"`
	Compression   CompressionConfig `mapstructure:"compression"    yaml:"compression"`
}

// CompressionConfig controls how archive entries are compressed.
type CompressionConfig struct {
	Method string `mapstructure:"method" yaml:"method"`
	Level  int    `mapstructure:"level"  yaml:"level"`
}

// RetentionConfig specifies how many archives to keep per kind.
type RetentionConfig struct {
	MaxBackups int            `mapstructure:"max_backups" yaml:"max_backups"`
	PerKind    map[string]int `mapstructure:"per_kind"    yaml:"per_kind,omitempty"`
}

// MaxBackupsFor returns the retention ceiling for kind, falling back to
// MaxBackups and then to DefaultMaxBackups.
func (r RetentionConfig) MaxBackupsFor(kind string) int {
	if n, ok := r.PerKind[kind]; ok && n > 0 {
		return n
	}
	if r.MaxBackups > 0 {
		return r.MaxBackups
	}
	return DefaultMaxBackups
}

// ScheduleConfig holds the cron expressions an external scheduler uses to
// trigger each kind.
type ScheduleConfig struct {
	Full     string `mapstructure:"full"     yaml:"full"`
	Database string `mapstructure:"database" yaml:"database"`
	Files    string `mapstructure:"files"    yaml:"files"`
}

// FilesConfig lists the application paths copied into files/full backups.
type FilesConfig struct {
	BasePath string   `mapstructure:"base_path" yaml:"base_path"`
	Include  []string `mapstructure:"include"   yaml:"include"`
	Restore  []string `mapstructure:"restore"   yaml:"restore"`
	Exclude  []string `mapstructure:"exclude"   yaml:"exclude"`
}

// DatabaseConfig is the single database connection being backed up.
type DatabaseConfig struct {
	Connection        string      `mapstructure:"connection"         yaml:"connection"`
	Driver            string      `mapstructure:"driver"             yaml:"driver"`
	Host              string      `mapstructure:"host"               yaml:"host,omitempty"`
	Port              string      `mapstructure:"port"               yaml:"port,omitempty"`
	Username          string      `mapstructure:"username"           yaml:"username,omitempty"`
	Password          string      `mapstructure:"password"           yaml:"password,omitempty"`
	Database          string      `mapstructure:"database"           yaml:"database,omitempty"`
	SingleTransaction bool        `mapstructure:"single_transaction" yaml:"single_transaction"`

	// Binaries maps a client tool (mysqldump, mysql, pg_dump, psql) to the
	// executable to run in its place.
	Binaries map[string]string `mapstructure:"binaries" yaml:"binaries,omitempty"`
	Vault    VaultConfig       `mapstructure:"vault"    yaml:"vault"`
}

// VaultConfig holds connection settings for HashiCorp Vault. When
// CredentialsPath is set, the database username and password are read from it.
type VaultConfig struct {
	Address         string `mapstructure:"address"          yaml:"address"`
	RoleID          string `mapstructure:"role_id"          yaml:"role_id,omitempty"`
	RoleName        string `mapstructure:"role_name"        yaml:"role_name,omitempty"`
	CredentialsPath string `mapstructure:"credentials_path" yaml:"credentials_path,omitempty"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level"       yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Load reads the configuration from the given YAML file using Viper,
// merges any included files, applies defaults and BACKUP_* environment
// overrides, and unmarshals into the Config struct.
func (c *Config) Load(path string) error {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read base configuration
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read base config %s: %v", ErrLoadConfig, path, err)
	}

	// Merge include files (if any), relative to the base file
	for _, inc := range v.GetStringSlice("include") {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		data, err := os.ReadFile(inc)
		if err != nil {
			return fmt.Errorf("%w: read include %s: %v", ErrLoadConfig, inc, err)
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("%w: merge include %s: %v", ErrLoadConfig, inc, err)
		}
	}

	if err := v.UnmarshalExact(c); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}

	return nil
}

// Default returns a Config populated with the same defaults Load applies.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&c)
	return c
}
