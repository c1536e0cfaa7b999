// Package catalogue keeps the stored backup archives, laid out as
// {directory}/{kind}/{name}.zip on a storage disk, and applies the per-kind
// retention ceiling.
package catalogue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/kebairia/appbackup/internal/archive"
	"github.com/kebairia/appbackup/internal/backup"
	"github.com/kebairia/appbackup/internal/config"
	"github.com/kebairia/appbackup/internal/logger"
	"github.com/kebairia/appbackup/internal/storage"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidKey is returned for keys outside the catalogue layout.
var ErrInvalidKey = errors.New("invalid backup key")

// listWorkers bounds concurrent metadata reads while listing.
const listWorkers = 4

// Option configures a Catalogue.
type Option func(*Catalogue)

// WithLogger overrides the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Catalogue) {
		if log != nil {
			c.log = log
		}
	}
}

// Catalogue owns the archives once they have been stored.
type Catalogue struct {
	store     storage.Storage
	dir       string
	retention config.RetentionConfig
	log       logger.Logger
}

// New returns a catalogue rooted at dir on store.
func New(store storage.Storage, dir string, retention config.RetentionConfig, opts ...Option) *Catalogue {
	c := &Catalogue{
		store:     store,
		dir:       path.Clean(strings.Trim(dir, "/")),
		retention: retention,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// KindDir returns the directory holding archives of kind.
func (c *Catalogue) KindDir(kind backup.Kind) string {
	return path.Join(c.dir, string(kind))
}

// Key returns the storage key of the archive called name.
func (c *Catalogue) Key(kind backup.Kind, name string) string {
	return path.Join(c.KindDir(kind), name+backup.ArchiveExt)
}

// ParseKey checks that key follows {directory}/{kind}/{name}.zip and returns
// the cleaned key and its kind.
func (c *Catalogue) ParseKey(key string) (string, backup.Kind, error) {
	clean := path.Clean(strings.TrimPrefix(key, "/"))
	dir, file := path.Split(clean)
	if file == "" || file == backup.ArchiveExt || !strings.HasSuffix(file, backup.ArchiveExt) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	kindDir := strings.TrimSuffix(dir, "/")
	if path.Dir(kindDir) != c.dir {
		return "", "", fmt.Errorf("%w: %q is not under %q", ErrInvalidKey, key, c.dir)
	}
	kind, err := backup.ParseKind(path.Base(kindDir))
	if err != nil {
		return "", "", fmt.Errorf("%w: %q: %w", ErrInvalidKey, key, err)
	}
	return clean, kind, nil
}

// Store copies the local archive at localPath into the catalogue, stamping
// it with createdAt. It returns the key and stored size.
func (c *Catalogue) Store(ctx context.Context, localPath string, kind backup.Kind, name string, createdAt time.Time) (string, int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", 0, fmt.Errorf("open local archive: %w", err)
	}
	defer f.Close()

	key := c.Key(kind, name)
	size, err := c.store.Put(ctx, key, f, createdAt)
	if err != nil {
		return "", 0, fmt.Errorf("store %q: %w", key, err)
	}
	c.log.Info("archive stored", "key", key, "size", size)
	return key, size, nil
}

// archives returns the zip objects of kind in listing order.
func (c *Catalogue) archives(ctx context.Context, kind backup.Kind) ([]storage.Object, error) {
	objs, err := c.store.List(ctx, c.KindDir(kind))
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(objs, func(o storage.Object) bool {
		return !strings.HasSuffix(o.Key, backup.ArchiveExt)
	}), nil
}

// List returns every archive of every kind, newest first. Each record is
// enriched with the archive's metadata when it can be read.
func (c *Catalogue) List(ctx context.Context) ([]backup.Record, error) {
	var records []backup.Record
	for _, kind := range backup.Kinds() {
		objs, err := c.archives(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s backups: %w", kind, err)
		}
		for _, o := range objs {
			records = append(records, backup.Record{
				Name:      strings.TrimSuffix(path.Base(o.Key), backup.ArchiveExt),
				Kind:      kind,
				FilePath:  o.Key,
				FileSize:  o.Size,
				CreatedAt: o.LastModified,
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listWorkers)
	for i := range records {
		rec := &records[i]
		g.Go(func() error {
			rec.Metadata = c.readMetadata(gctx, rec.FilePath)
			rec.Description = rec.Metadata.DescriptionOrEmpty()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(records, func(a, b backup.Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return records, nil
}

// readMetadata never fails; see archive.ReadMetadata.
func (c *Catalogue) readMetadata(ctx context.Context, key string) *backup.Metadata {
	f, err := c.store.Open(ctx, key)
	if err != nil {
		c.log.Debug("metadata unavailable", "key", key, "error", err.Error())
		return nil
	}
	defer f.Close()
	return archive.ReadMetadata(f, f.Size())
}

// Prune deletes the archives of kind beyond the retention ceiling, oldest
// first by modification time. Deletion continues past individual failures;
// the keys actually deleted are returned along with any joined errors.
func (c *Catalogue) Prune(ctx context.Context, kind backup.Kind) ([]string, error) {
	limit := c.retention.MaxBackupsFor(string(kind))

	objs, err := c.archives(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s backups: %w", kind, err)
	}
	if len(objs) <= limit {
		return nil, nil
	}

	slices.SortStableFunc(objs, func(a, b storage.Object) int {
		return b.LastModified.Compare(a.LastModified)
	})

	var (
		deleted []string
		errs    []error
	)
	for _, o := range objs[limit:] {
		if err := c.store.Delete(ctx, o.Key); err != nil {
			c.log.Warn("retention delete failed", "kind", kind, "key", o.Key, "error", err.Error())
			errs = append(errs, fmt.Errorf("delete %q: %w", o.Key, err))
			continue
		}
		c.log.Info("retention deleted archive", "kind", kind, "key", o.Key)
		deleted = append(deleted, o.Key)
	}
	return deleted, errors.Join(errs...)
}

// Open returns the stored archive for reading.
func (c *Catalogue) Open(ctx context.Context, key string) (storage.File, error) {
	clean, _, err := c.ParseKey(key)
	if err != nil {
		return nil, err
	}
	return c.store.Open(ctx, clean)
}

// Download streams the archive at key. The caller closes the reader.
func (c *Catalogue) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return c.Open(ctx, key)
}

// Delete removes the archive at key. It reports false when there was nothing
// to delete.
func (c *Catalogue) Delete(ctx context.Context, key string) (bool, error) {
	clean, _, err := c.ParseKey(key)
	if err != nil {
		return false, err
	}
	ok, err := c.store.Exists(ctx, clean)
	if err != nil || !ok {
		return false, err
	}
	if err := c.store.Delete(ctx, clean); err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	c.log.Info("archive deleted", "key", clean)
	return true, nil
}
