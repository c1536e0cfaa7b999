// Package backup holds the model shared by the archive, catalogue and
// orchestration packages: backup kinds, archive names, the metadata.json
// descriptor and the records returned by catalogue listings.
package backup

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownKind is returned by ParseKind for anything but full, database or files.
var ErrUnknownKind = errors.New("unknown backup kind")

// Kind decides which stages of the create and restore pipelines run.
type Kind string

const (
	// KindFull archives both the database dump and the application files.
	KindFull Kind = "full"
	// KindDatabase archives the database dump only.
	KindDatabase Kind = "database"
	// KindFiles archives the application files only.
	KindFiles Kind = "files"
)

// NameTimeLayout is the timestamp suffix of every backup name.
const NameTimeLayout = "20060102_150405"

// Well-known entries at the archive root.
const (
	MetadataFilename = "metadata.json"
	DumpFilename     = "database.sql"
	ArchiveExt       = ".zip"
)

// Kinds returns every kind in catalogue order.
func Kinds() []Kind {
	return []Kind{KindFull, KindDatabase, KindFiles}
}

// ParseKind converts s into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	switch k {
	case KindFull, KindDatabase, KindFiles:
		return true
	}
	return false
}

// IncludesDatabase reports whether archives of this kind carry database.sql.
func (k Kind) IncludesDatabase() bool { return k == KindFull || k == KindDatabase }

// IncludesFiles reports whether archives of this kind carry the file tree.
func (k Kind) IncludesFiles() bool { return k == KindFull || k == KindFiles }

func (k Kind) String() string { return string(k) }

// NewName returns the backup name for kind taken at t, e.g.
// "database_backup_20240115_143000".
func NewName(kind Kind, t time.Time) string {
	return fmt.Sprintf("%s_backup_%s", kind, t.Format(NameTimeLayout))
}

// Record describes one archive in the catalogue. It is rebuilt from the
// storage listing plus the archive's metadata on every call.
type Record struct {
	Name        string    `json:"name"`
	Kind        Kind      `json:"type"`
	Description string    `json:"description,omitempty"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
	CreatedAt   time.Time `json:"created_at"`
	Metadata    *Metadata `json:"metadata"`
}
