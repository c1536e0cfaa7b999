// Package filetree mirrors application directories into a staging area and
// puts them back on restore.
package filetree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kebairia/appbackup/internal/logger"
	"github.com/spf13/afero"
)

// PathPair maps a restored tree onto its live location.
type PathPair struct {
	Source string
	Target string
}

// Option configures a Copier.
type Option func(*Copier)

// WithFs runs the copier on fsys instead of the host filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(c *Copier) {
		if fsys != nil {
			c.fs = fsys
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Copier) {
		if log != nil {
			c.log = log
		}
	}
}

// Copier copies regular files and directories. Symbolic links and other
// special files are skipped.
type Copier struct {
	fs  afero.Fs
	log logger.Logger
}

// NewCopier returns a Copier on the host filesystem.
func NewCopier(opts ...Option) *Copier {
	c := &Copier{fs: afero.NewOsFs(), log: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Copy mirrors each baseDir/path that exists into targetDir/path. A file is
// left out when its path relative to baseDir contains any of the excludes;
// an excluded directory is not descended into.
func (c *Copier) Copy(ctx context.Context, baseDir string, paths []string, targetDir string, excludes []string) error {
	for _, p := range paths {
		rel := filepath.Clean(filepath.FromSlash(p))
		if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
			return fmt.Errorf("include path %q must be relative to the base directory", p)
		}

		src := filepath.Join(baseDir, rel)
		if _, err := lstat(c.fs, src); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				c.log.Debug("include path missing, skipped", "path", src)
				continue
			}
			return fmt.Errorf("stat %q: %w", src, err)
		}

		n, err := c.copyTree(ctx, src, filepath.Join(targetDir, rel), func(sub string) bool {
			return excluded(filepath.ToSlash(filepath.Join(rel, sub)), excludes)
		})
		if err != nil {
			return err
		}
		c.log.Debug("include path copied", "path", rel, "files", n)
	}
	return nil
}

// Restore replaces each existing pair target with a copy of its source.
// Targets whose source is missing are left alone. There is no rollback: a
// failure part way leaves earlier pairs restored.
func (c *Copier) Restore(ctx context.Context, pairs []PathPair) error {
	for _, pair := range pairs {
		if _, err := lstat(c.fs, pair.Source); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %q: %w", pair.Source, err)
		}
		if err := c.fs.RemoveAll(pair.Target); err != nil {
			return fmt.Errorf("remove %q: %w", pair.Target, err)
		}
		n, err := c.copyTree(ctx, pair.Source, pair.Target, nil)
		if err != nil {
			return err
		}
		c.log.Info("path restored", "path", pair.Target, "files", n)
	}
	return nil
}

// copyTree copies src, a file or a directory, to dst. skip receives paths
// relative to src ("." for src itself).
func (c *Copier) copyTree(ctx context.Context, src, dst string, skip func(rel string) bool) (int, error) {
	copied := 0
	err := afero.Walk(c.fs, src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if skip != nil && skip(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		switch {
		case info.IsDir():
			return c.fs.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode().IsRegular():
			if err := c.copyFile(path, target, info); err != nil {
				return err
			}
			copied++
		}
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("copy %q: %w", src, err)
	}
	return copied, nil
}

func (c *Copier) copyFile(src, dst string, info fs.FileInfo) (err error) {
	if err := c.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := c.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := c.fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %q: %w", src, err)
	}
	return c.fs.Chtimes(dst, info.ModTime(), info.ModTime())
}

func lstat(fsys afero.Fs, path string) (fs.FileInfo, error) {
	if l, ok := fsys.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return fsys.Stat(path)
}

// excluded reports whether rel, a slash-separated path, contains any pattern.
func excluded(rel string, excludes []string) bool {
	for _, pattern := range excludes {
		if pattern != "" && strings.Contains(rel, pattern) {
			return true
		}
	}
	return false
}
