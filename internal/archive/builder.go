// Package archive packs a staging directory into a zip file and unpacks it
// again. Entries are stored under their slash-separated path relative to the
// staging root, which is what restore relies on to put files back.
package archive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kebairia/appbackup/internal/logger"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrArchive wraps failures to create, write or close an archive.
	ErrArchive = errors.New("archive error")
	// ErrOpen is returned when a file cannot be read as a zip archive.
	ErrOpen = errors.New("cannot open archive")
	// ErrIllegalPath is returned for entries that would land outside the
	// extraction directory.
	ErrIllegalPath = errors.New("illegal file path in archive")
)

const (
	MethodDeflate = "deflate"
	MethodZstd    = "zstd"

	writeBufferSize = 256 << 10
)

// Option configures a Builder.
type Option func(*Builder)

// Builder writes zip archives.
type Builder struct {
	method string
	level  int
	log    logger.Logger
}

// WithMethod selects deflate (default) or zstd entry compression.
func WithMethod(method string) Option {
	return func(b *Builder) {
		if method != "" {
			b.method = method
		}
	}
}

// WithLevel sets the compression level, 0 (store) to 9 (best).
func WithLevel(level int) Option {
	return func(b *Builder) {
		b.level = level
	}
}

// WithLogger overrides the logger.
func WithLogger(log logger.Logger) Option {
	return func(b *Builder) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBuilder returns a Builder using deflate at level 6 unless overridden.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		method: MethodDeflate,
		level:  6,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) zipMethod() uint16 {
	if b.method == MethodZstd {
		return zstd.ZipMethodWinZip
	}
	return zip.Deflate
}

func (b *Builder) registerCompressor(zw *zip.Writer) {
	switch b.method {
	case MethodZstd:
		zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor(
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(b.level)),
		))
	default:
		level := b.level
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
	}
}

// Build archives every regular file below sourceDir into archivePath,
// creating or truncating it. Directories are implied by entry names and
// symlinks are skipped. A partially written archive is removed on failure.
func (b *Builder) Build(ctx context.Context, sourceDir, archivePath string) (err error) {
	out, err := os.OpenFile(archivePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("%w: create %q: %w", ErrArchive, archivePath, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %q: %w", ErrArchive, archivePath, cerr)
		}
		if err != nil {
			_ = os.Remove(archivePath)
		}
	}()

	start := time.Now()
	bw := bufio.NewWriterSize(out, writeBufferSize)
	zw := zip.NewWriter(bw)
	b.registerCompressor(zw)

	var entries int
	walkErr := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			b.log.Debug("skipping non-regular file", "path", path)
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		entries++
		return b.addFile(zw, path, filepath.ToSlash(rel), d)
	})
	if walkErr != nil {
		_ = zw.Close()
		return fmt.Errorf("%w: add files from %q: %w", ErrArchive, sourceDir, walkErr)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: finish zip: %w", ErrArchive, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: flush %q: %w", ErrArchive, archivePath, err)
	}

	b.log.Debug("archive built",
		"path", archivePath,
		"entries", entries,
		"method", b.method,
		"duration", time.Since(start).String(),
	)
	return nil
}

func (b *Builder) addFile(zw *zip.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header for %q: %w", path, err)
	}
	hdr.Name = name
	hdr.Method = b.zipMethod()

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("create entry %q: %w", name, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write entry %q: %w", name, err)
	}
	return nil
}
