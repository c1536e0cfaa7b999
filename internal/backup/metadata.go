package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
)

// Metadata is the descriptor written to metadata.json at the archive root.
// It is the only durable record of an archive's kind once it is catalogued.
type Metadata struct {
	BackupName         string  `json:"backup_name"         mapstructure:"backup_name"`
	Type               Kind    `json:"type"                mapstructure:"type"`
	Description        *string `json:"description"         mapstructure:"description"`
	CreatedAt          string  `json:"created_at"          mapstructure:"created_at"`
	AppName            string  `json:"app_name,omitempty"  mapstructure:"app_name"`
	AppVersion         string  `json:"app_version"         mapstructure:"app_version"`
	GoVersion          string  `json:"go_version"          mapstructure:"go_version"`
	Platform           string  `json:"platform,omitempty"  mapstructure:"platform"`
	Environment        string  `json:"environment"         mapstructure:"environment"`
	DatabaseConnection string  `json:"database_connection" mapstructure:"database_connection"`
	URL                string  `json:"url"                 mapstructure:"url"`

	// Extra keeps keys written by other producers (older releases, other
	// tooling) so that decoding never fails on them.
	Extra map[string]any `json:"-" mapstructure:",remain"`
}

// Environment carries the descriptors of the running application that end up
// in every metadata file.
type Environment struct {
	AppName            string
	AppVersion         string
	Environment        string
	DatabaseConnection string
	URL                string
}

// NewMetadata builds the descriptor for a backup created at createdAt.
// An empty description is stored as null.
func NewMetadata(name string, kind Kind, description string, createdAt time.Time, env Environment) *Metadata {
	m := &Metadata{
		BackupName:         name,
		Type:               kind,
		CreatedAt:          createdAt.UTC().Format(time.RFC3339),
		AppName:            env.AppName,
		AppVersion:         env.AppVersion,
		GoVersion:          runtime.Version(),
		Platform:           runtime.GOOS + "/" + runtime.GOARCH,
		Environment:        env.Environment,
		DatabaseConnection: env.DatabaseConnection,
		URL:                env.URL,
	}
	if description != "" {
		m.Description = &description
	}
	return m
}

// DescriptionOrEmpty dereferences Description.
func (m *Metadata) DescriptionOrEmpty() string {
	if m == nil || m.Description == nil {
		return ""
	}
	return *m.Description
}

// DecodeMetadata parses a metadata.json document. Keys it does not know are
// collected into Extra and scalar types are converted leniently.
func DecodeMetadata(data []byte) (*Metadata, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode metadata JSON: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode metadata JSON: document is null")
	}

	var m Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &m,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("metadata decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode metadata fields: %w", err)
	}
	return &m, nil
}

// Load reads the metadata file at filePath.
func (m *Metadata) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("couldn't open metadata file %q: %w", filePath, err)
	}
	decoded, err := DecodeMetadata(data)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}

// Write stores the metadata as metadata.json inside dirPath.
func (m *Metadata) Write(dirPath string) error {
	// Build full path to metadata file
	filePath := filepath.Join(dirPath, MetadataFilename)

	// Ensure directory exists
	if err := EnsureDirectoryExist(dirPath); err != nil {
		return fmt.Errorf("ensure metadata directory %q: %w", dirPath, err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata JSON: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("write metadata file %q: %w", filePath, err)
	}
	return nil
}
