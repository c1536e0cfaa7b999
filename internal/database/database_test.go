package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/kebairia/appbackup/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool writes an executable shell script standing in for a client tool.
// The script records its arguments and environment under dir.
func fakeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	path := filepath.Join(dir, name)
	script := fmt.Sprintf(`#!/bin/sh
printf '%%s\n' "$@" > %q
env > %q
%s
`, filepath.Join(dir, name+".args"), filepath.Join(dir, name+".env"), body)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestNew_Engines(t *testing.T) {
	cases := map[string]string{
		"mysql":    EngineMySQL,
		"pgsql":    EnginePostgres,
		"postgres": EnginePostgres,
		"sqlite":   EngineSQLite,
	}
	for driver, engine := range cases {
		d, err := New(config.DatabaseConfig{Driver: driver, Database: "app.db"})
		require.NoError(t, err, driver)
		assert.Equal(t, engine, d.Engine())
	}
}

func TestNew_UnsupportedDriver(t *testing.T) {
	for _, driver := range []string{"", "oracle", "mongodb"} {
		_, err := New(config.DatabaseConfig{Driver: driver})
		assert.ErrorIs(t, err, ErrUnsupportedDriver, "driver %q", driver)
	}

	_, err := New(config.DatabaseConfig{Driver: "sqlite"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestNew_DefaultPortsAndCredentialOverride(t *testing.T) {
	d, err := New(config.DatabaseConfig{Driver: "mysql", Username: "cfg", Password: "cfgpass"},
		WithCredentials("vault-user", "vault-pass"))
	require.NoError(t, err)
	m := d.(*MySQL)
	assert.Equal(t, "3306", m.Port)
	assert.Equal(t, "vault-user", m.Username)
	assert.Equal(t, "vault-pass", m.Password)

	d, err = New(config.DatabaseConfig{Driver: "pgsql"})
	require.NoError(t, err)
	assert.Equal(t, "5432", d.(*Postgres).Port)
}

func TestMySQL_DumpUsesEnvPassword(t *testing.T) {
	dir := t.TempDir()
	bin := fakeTool(t, dir, "mysqldump", `echo "-- MySQL dump"`)

	d, err := New(config.DatabaseConfig{
		Driver:            "mysql",
		Host:              "db.internal",
		Username:          "app",
		Password:          "s3cr3t",
		Database:          "shop",
		SingleTransaction: true,
	}, WithBinary("mysqldump", bin))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "database.sql")
	require.NoError(t, d.Dump(context.Background(), out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "-- MySQL dump\n", string(data))

	args := readLines(t, filepath.Join(dir, "mysqldump.args"))
	assert.Equal(t, []string{"--user=app", "--port=3306", "--host=db.internal", "--single-transaction", "shop"}, args)
	for _, a := range args {
		assert.NotContains(t, a, "s3cr3t")
	}
	assert.Contains(t, readLines(t, filepath.Join(dir, "mysqldump.env")), "MYSQL_PWD=s3cr3t")
}

func TestNew_BinariesFromConfig(t *testing.T) {
	dir := t.TempDir()
	bin := fakeTool(t, dir, "mysqldump", "echo '-- from config'")

	d, err := New(config.DatabaseConfig{
		Driver:   "mysql",
		Database: "shop",
		Binaries: map[string]string{"mysqldump": bin},
	})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "database.sql")
	require.NoError(t, d.Dump(context.Background(), out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "-- from config\n", string(data))

	// An explicit option overrides the configured path.
	d, err = New(config.DatabaseConfig{
		Driver:   "mysql",
		Database: "shop",
		Binaries: map[string]string{"mysqldump": filepath.Join(dir, "missing")},
	}, WithBinary("mysqldump", bin))
	require.NoError(t, err)
	require.NoError(t, d.Dump(context.Background(), filepath.Join(t.TempDir(), "database.sql")))
}

func TestMySQL_RestoreFeedsStdin(t *testing.T) {
	dir := t.TempDir()
	stdin := filepath.Join(dir, "stdin")
	bin := fakeTool(t, dir, "mysql", fmt.Sprintf("cat > %q", stdin))

	d, err := New(config.DatabaseConfig{Driver: "mysql", Username: "app", Database: "shop"},
		WithBinary("mysql", bin))
	require.NoError(t, err)

	in := filepath.Join(t.TempDir(), "database.sql")
	require.NoError(t, os.WriteFile(in, []byte("INSERT INTO t VALUES (1);\n"), 0o644))
	require.NoError(t, d.Restore(context.Background(), in))

	got, err := os.ReadFile(stdin)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO t VALUES (1);\n", string(got))
}

func TestPostgres_DumpConnectsThroughEnvironment(t *testing.T) {
	dir := t.TempDir()
	bin := fakeTool(t, dir, "pg_dump", `echo "-- PostgreSQL database dump"`)

	d, err := New(config.DatabaseConfig{
		Driver:   "pgsql",
		Host:     "pg.internal",
		Port:     "6543",
		Username: "app",
		Password: "pw",
		Database: "shop",
	}, WithBinary("pg_dump", bin))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "database.sql")
	require.NoError(t, d.Dump(context.Background(), out))

	env := readLines(t, filepath.Join(dir, "pg_dump.env"))
	for _, kv := range []string{"PGPASSWORD=pw", "PGHOST=pg.internal", "PGPORT=6543", "PGUSER=app", "PGDATABASE=shop"} {
		assert.Contains(t, env, kv)
	}
	assert.Equal(t, []string{"--clean", "--if-exists", "--no-owner"}, readLines(t, filepath.Join(dir, "pg_dump.args")))
}

func TestDump_NonZeroExit(t *testing.T) {
	dir := t.TempDir()
	bin := fakeTool(t, dir, "pg_dump", `echo "FATAL: password authentication failed" >&2; exit 2`)

	d, err := New(config.DatabaseConfig{Driver: "pgsql"}, WithBinary("pg_dump", bin))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "database.sql")
	err = d.Dump(context.Background(), out)
	require.ErrorIs(t, err, ErrDumpFailed)
	assert.Contains(t, err.Error(), "exited with code 2")
	assert.Contains(t, err.Error(), "password authentication failed")
	assert.NoFileExists(t, out)
}

func TestRestore_NonZeroExit(t *testing.T) {
	dir := t.TempDir()
	bin := fakeTool(t, dir, "psql", `cat > /dev/null; echo "ERROR: syntax error" >&2; exit 3`)

	d, err := New(config.DatabaseConfig{Driver: "pgsql"}, WithBinary("psql", bin))
	require.NoError(t, err)

	in := filepath.Join(t.TempDir(), "database.sql")
	require.NoError(t, os.WriteFile(in, []byte("garbage;"), 0o644))
	err = d.Restore(context.Background(), in)
	require.ErrorIs(t, err, ErrRestoreFailed)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestDump_TimeoutKillsTool(t *testing.T) {
	dir := t.TempDir()
	bin := fakeTool(t, dir, "mysqldump", `sleep 30`)

	d, err := New(config.DatabaseConfig{Driver: "mysql"},
		WithBinary("mysqldump", bin),
		WithTimeout(200*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	err = d.Dump(context.Background(), filepath.Join(t.TempDir(), "database.sql"))
	require.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, ErrDumpFailed)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRestore_MissingInput(t *testing.T) {
	d, err := New(config.DatabaseConfig{Driver: "mysql"})
	require.NoError(t, err)

	err = d.Restore(context.Background(), filepath.Join(t.TempDir(), "absent.sql"))
	assert.ErrorIs(t, err, ErrRestoreFailed)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func seedSQLite(t *testing.T, path string, rows int) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("PRAGMA journal_mode=WAL")
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE IF NOT EXISTS users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)")
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		_, err = db.Exec("INSERT INTO users (name) VALUES (?)", fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
	}
}

func countUsers(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	return n
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.db")
	seedSQLite(t, path, 3)

	d, err := New(config.DatabaseConfig{Driver: "sqlite", Database: path})
	require.NoError(t, err)

	dump := filepath.Join(t.TempDir(), "database.sql")
	require.NoError(t, d.Dump(ctx, dump))

	seedSQLite(t, path, 5)
	require.Equal(t, 8, countUsers(t, path))

	require.NoError(t, d.Restore(ctx, dump))
	assert.Equal(t, 3, countUsers(t, path))
}

func TestSQLite_RestoreCreatesMissingTarget(t *testing.T) {
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "src.db")
	seedSQLite(t, src, 2)

	target := filepath.Join(t.TempDir(), "nested", "app.db")
	d, err := New(config.DatabaseConfig{Driver: "sqlite", Database: target})
	require.NoError(t, err)

	require.NoError(t, d.Restore(ctx, src))
	assert.Equal(t, 2, countUsers(t, target))
}

func TestSQLite_MissingSource(t *testing.T) {
	d, err := New(config.DatabaseConfig{Driver: "sqlite", Database: filepath.Join(t.TempDir(), "absent.db")})
	require.NoError(t, err)

	err = d.Dump(context.Background(), filepath.Join(t.TempDir(), "database.sql"))
	assert.ErrorIs(t, err, ErrDumpFailed)
	assert.ErrorIs(t, err, ErrFileNotFound)
}
