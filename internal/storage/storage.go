package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var (
	// ErrUnknownDisk is returned by New for an unsupported disk name.
	ErrUnknownDisk = errors.New("unknown storage disk")
	// ErrNotExist is returned when a key has no object behind it.
	ErrNotExist = errors.New("object does not exist")
)

const (
	DiskLocal  = "local"
	DiskMemory = "memory"

	partSuffix = ".part"
)

// Object describes a stored blob.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// File is an open stored blob. It supports random access so archives can be
// read in place.
type File interface {
	io.Reader
	io.ReaderAt
	io.Closer
	Size() int64
}

// Storage is a key/blob store with directory semantics. Keys are
// slash-separated and relative to the disk root.
type Storage interface {
	// Put stores r under key and stamps it with modTime. The object only
	// becomes visible once it has been written completely.
	Put(ctx context.Context, key string, r io.Reader, modTime time.Time) (int64, error)

	// Open returns the blob stored under key for reading.
	Open(ctx context.Context, key string) (File, error)

	// Stat returns size and modification time for key.
	Stat(ctx context.Context, key string) (Object, error)

	// List returns the objects directly under the prefix directory, sorted
	// by key. A missing directory yields an empty list.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key holds an object.
	Exists(ctx context.Context, key string) (bool, error)
}

// Disk implements Storage on top of an afero filesystem.
type Disk struct {
	name string
	fs   afero.Fs
}

// Statically assert that *Disk implements Storage.
var _ Storage = (*Disk)(nil)

// New returns the disk named by disk. "local" is rooted at root on the host
// filesystem, "memory" keeps everything in process.
func New(disk, root string) (*Disk, error) {
	switch disk {
	case DiskLocal:
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create storage root %q: %w", root, err)
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve storage root %q: %w", root, err)
		}
		return NewWithFs(DiskLocal, afero.NewBasePathFs(afero.NewOsFs(), abs)), nil
	case DiskMemory:
		return NewWithFs(DiskMemory, afero.NewMemMapFs()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDisk, disk)
	}
}

// NewWithFs wraps an arbitrary afero filesystem.
func NewWithFs(name string, fsys afero.Fs) *Disk {
	return &Disk{name: name, fs: fsys}
}

// Name returns the disk identifier.
func (d *Disk) Name() string { return d.name }

func (d *Disk) path(key string) string {
	return filepath.FromSlash(path.Clean("/" + key))
}

func notExist(key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	return err
}

func (d *Disk) Put(ctx context.Context, key string, r io.Reader, modTime time.Time) (n int64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p := d.path(key)
	if err := d.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return 0, fmt.Errorf("create directory for %q: %w", key, err)
	}

	tmp := p + "." + uuid.NewString() + partSuffix
	f, err := d.fs.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return 0, fmt.Errorf("create %q: %w", key, err)
	}
	defer func() {
		if err != nil {
			_ = d.fs.Remove(tmp)
		}
	}()

	n, err = io.Copy(f, r)
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("write %q: %w", key, err)
	}
	if err = f.Close(); err != nil {
		return 0, fmt.Errorf("close %q: %w", key, err)
	}
	// Stamp before the rename: once renamed the object is visible.
	if !modTime.IsZero() {
		if err = d.fs.Chtimes(tmp, modTime, modTime); err != nil {
			return 0, fmt.Errorf("set modification time on %q: %w", key, err)
		}
	}
	if err = d.fs.Rename(tmp, p); err != nil {
		return 0, fmt.Errorf("commit %q: %w", key, err)
	}
	return n, nil
}

type diskFile struct {
	afero.File
	size int64
}

func (f *diskFile) Size() int64 { return f.size }

func (d *Disk) Open(ctx context.Context, key string) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := d.fs.Open(d.path(key))
	if err != nil {
		return nil, notExist(key, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotExist, key)
	}
	return &diskFile{File: f, size: info.Size()}, nil
}

func (d *Disk) Stat(ctx context.Context, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	info, err := d.fs.Stat(d.path(key))
	if err != nil {
		return Object{}, notExist(key, err)
	}
	if info.IsDir() {
		return Object{}, fmt.Errorf("%w: %s is a directory", ErrNotExist, key)
	}
	return Object{Key: key, Size: info.Size(), LastModified: info.ModTime()}, nil
}

func (d *Disk) List(ctx context.Context, prefix string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := afero.ReadDir(d.fs, d.path(prefix))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Object{}, nil
		}
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}

	objects := make([]Object, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || strings.HasSuffix(info.Name(), partSuffix) {
			continue
		}
		objects = append(objects, Object{
			Key:          path.Join(prefix, info.Name()),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
	}
	return objects, nil
}

func (d *Disk) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.fs.Remove(d.path(key)); err != nil {
		return notExist(key, err)
	}
	return nil
}

func (d *Disk) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := d.fs.Stat(d.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}
