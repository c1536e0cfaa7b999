package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kebairia/appbackup/internal/backup"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// maxMetadataSize bounds how much of metadata.json ReadMetadata will read.
const maxMetadataSize = 1 << 20

func newReader(r io.ReaderAt, size int64) (*zip.Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	return zr, nil
}

// Extract unpacks the zip read from r into dest, which must exist. Entries
// escaping dest are rejected and setuid/setgid bits are stripped.
func Extract(ctx context.Context, r io.ReaderAt, size int64, dest string) error {
	zr, err := newReader(r, size)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}

	root, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("%w: resolve %q: %w", ErrArchive, dest, err)
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Zip Slip: the target must stay inside the extraction directory.
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target == root {
			// "." and "./" entries name the extraction directory itself.
			continue
		}
		if !strings.HasPrefix(target, filepath.Clean(root)+string(os.PathSeparator)) {
			return fmt.Errorf("%w: %s", ErrIllegalPath, f.Name)
		}

		mode := f.Mode() &^ (os.ModeSetuid | os.ModeSetgid)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: %w", ErrArchive, err)
			}
			continue
		}
		if !mode.IsRegular() {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrArchive, err)
		}
		if err := extractFile(f, target, mode.Perm()); err != nil {
			return fmt.Errorf("%w: extract %s: %w", ErrArchive, f.Name, err)
		}
	}
	return nil
}

// ExtractFile unpacks the archive at path into dest.
func ExtractFile(ctx context.Context, path, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return Extract(ctx, f, info.Size(), dest)
}

func extractFile(f *zip.File, target string, perm os.FileMode) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	// Remove first so a symlink planted at target is never followed.
	_ = os.Remove(target)

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	_ = os.Chtimes(target, f.Modified, f.Modified)
	return nil
}

// Entries lists the entry names of the zip read from r.
func Entries(r io.ReaderAt, size int64) ([]string, error) {
	zr, err := newReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// ReadMetadata returns the parsed metadata.json of the zip read from r.
//
// It is best-effort by contract and never fails: an unreadable archive, a
// missing entry or an unparsable document all yield nil. Catalogue listings
// depend on this to stay available for corrupt or foreign archives.
func ReadMetadata(r io.ReaderAt, size int64) *backup.Metadata {
	zr, err := newReader(r, size)
	if err != nil {
		return nil
	}
	for _, f := range zr.File {
		if f.Name != backup.MetadataFilename {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxMetadataSize))
		rc.Close()
		if err != nil {
			return nil
		}
		m, err := backup.DecodeMetadata(data)
		if err != nil {
			return nil
		}
		return m
	}
	return nil
}

// ReadMetadataFile is ReadMetadata for an archive on the local filesystem.
func ReadMetadataFile(path string) *backup.Metadata {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil
	}
	return ReadMetadata(f, info.Size())
}
