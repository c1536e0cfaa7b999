package catalogue

import (
	"context"
	"time"

	"github.com/kebairia/appbackup/internal/backup"
)

// Statistics summarises the catalogue.
type Statistics struct {
	TotalBackups int                 `json:"total_backups"`
	TotalSize    int64               `json:"total_size"`
	ByType       map[backup.Kind]int `json:"by_type"`
	OldestBackup *time.Time          `json:"oldest_backup"`
	NewestBackup *time.Time          `json:"newest_backup"`
}

// Statistics folds over List. Every kind appears in ByType, zero or not.
func (c *Catalogue) Statistics(ctx context.Context) (Statistics, error) {
	records, err := c.List(ctx)
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		TotalBackups: len(records),
		ByType:       make(map[backup.Kind]int, len(backup.Kinds())),
	}
	for _, k := range backup.Kinds() {
		stats.ByType[k] = 0
	}

	for _, r := range records {
		stats.TotalSize += r.FileSize
		stats.ByType[r.Kind]++

		created := r.CreatedAt
		if stats.OldestBackup == nil || created.Before(*stats.OldestBackup) {
			stats.OldestBackup = &created
		}
		if stats.NewestBackup == nil || created.After(*stats.NewestBackup) {
			stats.NewestBackup = &created
		}
	}
	return stats, nil
}
