package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite backs up the database file itself.
type SQLite struct {
	settings

	// Path is the database file.
	Path string
}

func (s *SQLite) Engine() string { return EngineSQLite }

// checkpoint folds the write-ahead log into the main file so that a plain
// copy sees every committed transaction. It is best effort.
func (s *SQLite) checkpoint(ctx context.Context) {
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		s.log.Warn("sqlite checkpoint skipped", "path", s.Path, "error", err.Error())
		return
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.log.Warn("sqlite checkpoint failed", "path", s.Path, "error", err.Error())
	}
}

// Dump copies the database file to outPath.
func (s *SQLite) Dump(ctx context.Context, outPath string) error {
	info, err := os.Stat(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %w: %s", ErrDumpFailed, ErrFileNotFound, s.Path)
		}
		return fmt.Errorf("%w: stat %q: %w", ErrDumpFailed, s.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %q is a directory", ErrDumpFailed, s.Path)
	}

	s.log.Info("database dump started", "engine", EngineSQLite, "path", s.Path)
	start := time.Now()
	s.checkpoint(ctx)

	if err := copyFile(ctx, s.Path, outPath); err != nil {
		return fmt.Errorf("%w: %w", ErrDumpFailed, err)
	}
	s.log.Info("database dump completed",
		"engine", EngineSQLite,
		"path", s.Path,
		"duration", time.Since(start).String(),
	)
	return nil
}

// Restore replaces the database file with inPath. The new file is written
// next to the target and renamed over it; stale -wal and -shm files are
// removed so SQLite does not replay them against the restored file.
func (s *SQLite) Restore(ctx context.Context, inPath string) (err error) {
	if _, err := os.Stat(inPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %w: %s", ErrRestoreFailed, ErrFileNotFound, inPath)
		}
		return fmt.Errorf("%w: stat %q: %w", ErrRestoreFailed, inPath, err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %q: %w", ErrRestoreFailed, dir, err)
	}

	s.log.Info("database restore started", "engine", EngineSQLite, "path", s.Path)
	start := time.Now()

	tmp := filepath.Join(dir, "."+filepath.Base(s.Path)+"."+uuid.NewString()+".restore")
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()
	if err := copyFile(ctx, inPath, tmp); err != nil {
		return fmt.Errorf("%w: %w", ErrRestoreFailed, err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("%w: replace %q: %w", ErrRestoreFailed, s.Path, err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(s.Path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("stale sqlite sidecar not removed", "path", s.Path+suffix, "error", err.Error())
		}
	}

	s.log.Info("database restore completed",
		"engine", EngineSQLite,
		"path", s.Path,
		"duration", time.Since(start).String(),
	)
	return nil
}

// copyFile copies src to dst, creating or truncating dst, and syncs it.
func copyFile(ctx context.Context, src, dst string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create %q: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %q: %w", dst, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %q to %q: %w", src, dst, err)
	}
	return out.Sync()
}
