package operations

import (
	"time"

	"github.com/kebairia/appbackup/internal/backup"
)

// CreateResult describes a stored backup.
type CreateResult struct {
	Success     bool        `json:"success"`
	BackupName  string      `json:"backup_name"`
	FilePath    string      `json:"file_path"`
	FileSize    int64       `json:"file_size"`
	CreatedAt   time.Time   `json:"created_at"`
	Type        backup.Kind `json:"type"`
	Description *string     `json:"description"`
}

// RestoreResult is returned by a successful restore. Metadata is nil when the
// archive carried no readable metadata.json.
type RestoreResult struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Metadata *backup.Metadata `json:"metadata"`
}

// environment collects the application descriptors recorded in every
// metadata file.
func (o *Orchestrator) environment() backup.Environment {
	conn := o.cfg.Database.Connection
	if conn == "" {
		conn = o.cfg.Database.Driver
	}
	return backup.Environment{
		AppName:            o.cfg.App.Name,
		AppVersion:         o.cfg.App.Version,
		Environment:        o.cfg.App.Environment,
		DatabaseConnection: conn,
		URL:                o.cfg.App.URL,
	}
}
