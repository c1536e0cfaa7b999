package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewName(t *testing.T) {
	at := time.Date(2024, 1, 15, 14, 30, 5, 0, time.UTC)
	assert.Equal(t, "database_backup_20240115_143005", NewName(KindDatabase, at))
	assert.Equal(t, "full_backup_20240115_143005", NewName(KindFull, at))
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("incremental")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestKindStages(t *testing.T) {
	assert.True(t, KindFull.IncludesDatabase())
	assert.True(t, KindFull.IncludesFiles())
	assert.True(t, KindDatabase.IncludesDatabase())
	assert.False(t, KindDatabase.IncludesFiles())
	assert.False(t, KindFiles.IncludesDatabase())
	assert.True(t, KindFiles.IncludesFiles())
}

func TestMetadata_WriteLoad(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2024, 1, 15, 14, 30, 5, 0, time.UTC)
	m := NewMetadata("files_backup_20240115_143005", KindFiles, "before upgrade", at, Environment{
		AppName:            "shop",
		Environment:        "staging",
		DatabaseConnection: "mysql",
		URL:                "https://shop.example.com",
	})
	require.NoError(t, m.Write(dir))

	var loaded Metadata
	require.NoError(t, loaded.Load(filepath.Join(dir, MetadataFilename)))

	assert.Equal(t, "files_backup_20240115_143005", loaded.BackupName)
	assert.Equal(t, KindFiles, loaded.Type)
	assert.Equal(t, "before upgrade", loaded.DescriptionOrEmpty())
	assert.Equal(t, "2024-01-15T14:30:05Z", loaded.CreatedAt)
	assert.Equal(t, "staging", loaded.Environment)
	assert.NotEmpty(t, loaded.GoVersion)
}

func TestMetadata_EmptyDescriptionIsNull(t *testing.T) {
	dir := t.TempDir()
	m := NewMetadata("full_backup_20240115_143005", KindFull, "", time.Now(), Environment{})
	require.NoError(t, m.Write(dir))

	data, err := os.ReadFile(filepath.Join(dir, MetadataFilename))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"description": null`)
}

func TestDecodeMetadata_KeepsUnknownKeys(t *testing.T) {
	doc := `{
		"backup_name": "full_backup_2024_01_15_143005",
		"type": "full",
		"description": null,
		"created_at": "2024-01-15T14:30:05.000000Z",
		"laravel_version": "10.48.4",
		"php_version": "8.2.1",
		"environment": "production",
		"database_connection": "mysql",
		"url": "http://localhost"
	}`
	m, err := DecodeMetadata([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, KindFull, m.Type)
	assert.Nil(t, m.Description)
	assert.Equal(t, "10.48.4", m.Extra["laravel_version"])
	assert.Equal(t, "mysql", m.DatabaseConnection)
}

func TestDecodeMetadata_Invalid(t *testing.T) {
	_, err := DecodeMetadata([]byte("{not json"))
	assert.Error(t, err)

	_, err = DecodeMetadata([]byte("null"))
	assert.Error(t, err)
}
