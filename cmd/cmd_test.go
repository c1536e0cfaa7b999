package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/kebairia/appbackup/internal/backup"
	"github.com/kebairia/appbackup/internal/catalogue"
	"github.com/kebairia/appbackup/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintRecords(t *testing.T) {
	now := time.Date(2024, 1, 15, 16, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, printRecords(&buf, []backup.Record{{
		Name:        "database_backup_20240115_143000",
		Kind:        backup.KindDatabase,
		Description: "nightly",
		FilePath:    "backups/database/database_backup_20240115_143000.zip",
		FileSize:    2048,
		CreatedAt:   now.Add(-2 * time.Hour),
	}}, now))

	out := buf.String()
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "database_backup_20240115_143000")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "nightly")

	buf.Reset()
	require.NoError(t, printRecords(&buf, nil, now))
	assert.Equal(t, "no backups\n", buf.String())
}

func TestPrintStats(t *testing.T) {
	oldest := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, printStats(&buf, catalogue.Statistics{
		TotalBackups: 3,
		TotalSize:    3000,
		ByType:       map[backup.Kind]int{backup.KindFull: 1, backup.KindDatabase: 2, backup.KindFiles: 0},
		OldestBackup: &oldest,
	}))

	out := buf.String()
	assert.Contains(t, out, "3.0 kB")
	assert.Contains(t, out, "2024-01-01T00:00:00Z")
	assert.Regexp(t, `newest\s+-`, out)
}

func TestPrintSchedule(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, printSchedule(&buf, config.ScheduleConfig{
		Full:     "0 2 * * *",
		Database: "30 * * * *",
	}, now))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "2024-01-16T02:00:00Z")
	assert.Contains(t, lines[2], "2024-01-15T12:30:00Z")
	assert.Contains(t, lines[3], "disabled")

	err := printSchedule(&buf, config.ScheduleConfig{Full: "not a cron"}, now)
	assert.Error(t, err)
}
