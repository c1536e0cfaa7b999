package operations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kebairia/appbackup/internal/backup"
	"github.com/kebairia/appbackup/internal/database"
	"github.com/kebairia/appbackup/internal/logger"
)

// Create produces one archive of kind, stores it in the catalogue and prunes
// older archives of the same kind. Nothing is left in the staging area and
// no archive becomes visible in the catalogue unless every step succeeded.
func (o *Orchestrator) Create(ctx context.Context, kind backup.Kind, description string) (*CreateResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if kind.IncludesDatabase() && o.driver == nil {
		return nil, fmt.Errorf("%w: %w: no database driver configured", ErrBackupFailed, database.ErrUnsupportedDriver)
	}

	createdAt := o.now()
	name := backup.NewName(kind, createdAt)
	log := o.log.With("kind", kind, "name", name)
	log.Info("backup started")
	start := time.Now()

	stage, err := o.newStageDir(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}
	archivePath := stage + backup.ArchiveExt
	defer o.cleanup(stage, archivePath)

	if kind.IncludesDatabase() {
		if err := o.driver.Dump(ctx, filepath.Join(stage, backup.DumpFilename)); err != nil {
			return nil, o.failed(log, err)
		}
	}

	if kind.IncludesFiles() {
		files := o.cfg.Files
		if err := o.copier.Copy(ctx, files.BasePath, files.Include, stage, files.Exclude); err != nil {
			return nil, o.failed(log, fmt.Errorf("copy application files: %w", err))
		}
	}

	meta := backup.NewMetadata(name, kind, description, createdAt, o.environment())
	if err := meta.Write(stage); err != nil {
		return nil, o.failed(log, err)
	}

	if err := o.compress(ctx, stage, archivePath); err != nil {
		return nil, o.failed(log, err)
	}

	key, size, err := o.catalogue.Store(ctx, archivePath, kind, name, createdAt)
	if err != nil {
		return nil, o.failed(log, err)
	}

	if deleted, err := o.catalogue.Prune(ctx, kind); err != nil {
		log.Warn("retention cleanup incomplete", "deleted", len(deleted), "error", err.Error())
	} else if len(deleted) > 0 {
		log.Info("retention cleanup", "deleted", len(deleted))
	}

	log.Info("backup completed",
		"key", key,
		"size", size,
		"duration", time.Since(start).String(),
	)
	return &CreateResult{
		Success:     true,
		BackupName:  name,
		FilePath:    key,
		FileSize:    size,
		CreatedAt:   createdAt,
		Type:        kind,
		Description: meta.Description,
	}, nil
}

func (o *Orchestrator) failed(log logger.Logger, err error) error {
	log.Error("backup failed", "error", err.Error())
	return fmt.Errorf("%w: %w", ErrBackupFailed, err)
}

// newStageDir creates a fresh, empty directory for name under the temporary
// root. It fails rather than reuse an existing directory.
func (o *Orchestrator) newStageDir(name string) (string, error) {
	if err := os.MkdirAll(o.tempRoot, 0o700); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStaging, err)
	}
	token, _, _ := strings.Cut(uuid.NewString(), "-")
	dir := filepath.Join(o.tempRoot, name+"-"+token)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStaging, err)
	}
	return dir, nil
}

// cleanup removes staging artefacts. Failures are logged only.
func (o *Orchestrator) cleanup(paths ...string) {
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			o.log.Warn("cleanup failed", "path", p, "error", err.Error())
		}
	}
}
