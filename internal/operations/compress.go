package operations

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kebairia/appbackup/internal/archive"
)

// compress packs the staging directory into archivePath with the configured
// zip method and level.
func (o *Orchestrator) compress(ctx context.Context, stage, archivePath string) error {
	c := o.cfg.Backup.Compression
	b := archive.NewBuilder(
		archive.WithMethod(c.Method),
		archive.WithLevel(c.Level),
		archive.WithLogger(o.log),
	)

	start := time.Now()
	if err := b.Build(ctx, stage, archivePath); err != nil {
		return fmt.Errorf("build archive: %w", err)
	}
	if info, err := os.Stat(archivePath); err == nil {
		o.log.Debug("archive built",
			"path", archivePath,
			"method", c.Method,
			"size", info.Size(),
			"duration", time.Since(start).String(),
		)
	}
	return nil
}
