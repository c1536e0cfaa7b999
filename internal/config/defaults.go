package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultDisk        = "local"
	DefaultDirectory   = "backups"
	DefaultMaxBackups  = 10
	DefaultTimeout     = time.Hour
	DefaultMemoryLimit = "512M"
)

// DefaultInclude are the application paths mirrored into files backups.
var DefaultInclude = []string{
	"app",
	"config",
	"database/migrations",
	"database/seeders",
	"resources",
	"routes",
	"storage/app",
	"public",
}

// DefaultRestore are the paths put back by a files restore. storage/app is
// backed up but deliberately not restored over live uploads.
var DefaultRestore = []string{
	"app",
	"config",
	"database/migrations",
	"database/seeders",
	"resources",
	"routes",
	"public",
}

// DefaultExclude are substrings that keep noise and secrets out of archives.
var DefaultExclude = []string{
	"node_modules",
	"vendor",
	".git",
	"storage/logs",
	"storage/framework/cache",
	"storage/framework/sessions",
	"storage/framework/testing",
	"storage/app/backups",
	"bootstrap/cache",
	".env",
	".DS_Store",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "app")
	v.SetDefault("app.environment", "production")
	v.SetDefault("app.url", "")
	v.SetDefault("app.version", "")

	v.SetDefault("storage.disk", DefaultDisk)
	v.SetDefault("storage.root", "./storage")
	v.SetDefault("storage.directory", DefaultDirectory)

	v.SetDefault("backup.temp_directory", "")
	v.SetDefault("backup.timeout", DefaultTimeout)
	v.SetDefault("backup.memory_limit", DefaultMemoryLimit)
	v.SetDefault("backup.encrypt", false)
	v.SetDefault("backup.compression.method", "deflate")
	v.SetDefault("backup.compression.level", 6)

	v.SetDefault("retention.max_backups", DefaultMaxBackups)

	v.SetDefault("schedules.full", "0 2 * * *")
	v.SetDefault("schedules.database", "0 3 * * *")
	v.SetDefault("schedules.files", "0 4 * * 0")

	v.SetDefault("files.base_path", ".")
	v.SetDefault("files.include", DefaultInclude)
	v.SetDefault("files.restore", DefaultRestore)
	v.SetDefault("files.exclude", DefaultExclude)

	v.SetDefault("database.connection", "")
	v.SetDefault("database.driver", "")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "")
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "")
	v.SetDefault("database.single_transaction", true)
	v.SetDefault("database.vault.address", "")
	v.SetDefault("database.vault.role_id", "")
	v.SetDefault("database.vault.role_name", "")
	v.SetDefault("database.vault.credentials_path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}
