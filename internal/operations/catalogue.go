package operations

import (
	"context"
	"fmt"
	"io"

	"github.com/kebairia/appbackup/internal/backup"
	"github.com/kebairia/appbackup/internal/catalogue"
)

// List returns every stored backup, newest first.
func (o *Orchestrator) List(ctx context.Context) ([]backup.Record, error) {
	return o.catalogue.List(ctx)
}

// Delete removes the backup stored at key and reports whether it existed.
func (o *Orchestrator) Delete(ctx context.Context, key string) (bool, error) {
	return o.catalogue.Delete(ctx, key)
}

// Download streams the backup stored at key. The caller closes the reader.
func (o *Orchestrator) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return o.catalogue.Download(ctx, key)
}

// Statistics summarises the catalogue.
func (o *Orchestrator) Statistics(ctx context.Context) (catalogue.Statistics, error) {
	return o.catalogue.Statistics(ctx)
}

// Prune applies the retention ceiling of kind and returns the deleted keys.
func (o *Orchestrator) Prune(ctx context.Context, kind backup.Kind) ([]string, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return o.catalogue.Prune(ctx, kind)
}
