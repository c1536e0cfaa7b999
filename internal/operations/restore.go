package operations

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kebairia/appbackup/internal/archive"
	"github.com/kebairia/appbackup/internal/backup"
	"github.com/kebairia/appbackup/internal/database"
	"github.com/kebairia/appbackup/internal/filetree"
)

// RestoredMessage is the message of every successful RestoreResult.
const RestoredMessage = "Backup restored successfully"

// Restore extracts the archive stored at key and applies it: the database
// dump, when present, is loaded through the driver, and application files are
// put back when the metadata says the archive holds them. Restores are
// destructive and are not rolled back on failure.
func (o *Orchestrator) Restore(ctx context.Context, key string) (*RestoreResult, error) {
	log := o.log.With("key", key)
	log.Info("restore started")
	start := time.Now()

	if err := os.MkdirAll(o.tempRoot, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrRestoreFailed, ErrStaging, err)
	}
	dir := filepath.Join(o.tempRoot, "restore-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrRestoreFailed, ErrStaging, err)
	}
	defer o.cleanup(dir)

	if err := o.extract(ctx, key, dir); err != nil {
		log.Error("restore failed", "error", err.Error())
		return nil, fmt.Errorf("%w: %w", ErrRestoreFailed, err)
	}

	meta := readMetadata(dir)
	if meta == nil {
		log.Warn("archive has no readable metadata, application files will not be restored")
	}

	dump := filepath.Join(dir, backup.DumpFilename)
	if backup.Exists(dump) {
		if o.driver == nil {
			return nil, fmt.Errorf("%w: %w: no database driver configured", ErrRestoreFailed, database.ErrUnsupportedDriver)
		}
		if err := o.driver.Restore(ctx, dump); err != nil {
			log.Error("restore failed", "error", err.Error())
			return nil, fmt.Errorf("%w: %w", ErrRestoreFailed, err)
		}
	}

	if meta != nil && meta.Type.IncludesFiles() {
		if err := o.copier.Restore(ctx, o.restorePairs(dir)); err != nil {
			log.Error("restore failed", "error", err.Error())
			return nil, fmt.Errorf("%w: restore application files: %w", ErrRestoreFailed, err)
		}
	}

	log.Info("restore completed", "duration", time.Since(start).String())
	return &RestoreResult{
		Success:  true,
		Message:  RestoredMessage,
		Metadata: meta,
	}, nil
}

// extract unpacks the stored archive at key into dir. A missing or unreadable
// archive yields ErrCannotOpenBackup.
func (o *Orchestrator) extract(ctx context.Context, key, dir string) error {
	f, err := o.catalogue.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCannotOpenBackup, err)
	}
	defer f.Close()

	if err := archive.Extract(ctx, f, f.Size(), dir); err != nil {
		if errors.Is(err, archive.ErrOpen) {
			return fmt.Errorf("%w: %w", ErrCannotOpenBackup, err)
		}
		return err
	}
	return nil
}

// readMetadata loads dir/metadata.json, or returns nil.
func readMetadata(dir string) *backup.Metadata {
	var m backup.Metadata
	if err := m.Load(filepath.Join(dir, backup.MetadataFilename)); err != nil {
		return nil
	}
	return &m
}

func (o *Orchestrator) restorePairs(dir string) []filetree.PathPair {
	pairs := make([]filetree.PathPair, 0, len(o.cfg.Files.Restore))
	for _, p := range o.cfg.Files.Restore {
		rel := filepath.FromSlash(p)
		pairs = append(pairs, filetree.PathPair{
			Source: filepath.Join(dir, rel),
			Target: filepath.Join(o.cfg.Files.BasePath, rel),
		})
	}
	return pairs
}
