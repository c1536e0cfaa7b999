package database

import (
	"context"
	"time"
)

// Postgres dumps with pg_dump and restores with psql. The whole connection is
// passed through libpq environment variables.
type Postgres struct {
	settings

	Host     string
	Port     string
	Username string
	Password string
	Database string
}

func (p *Postgres) Engine() string { return EnginePostgres }

func (p *Postgres) env() []string {
	return []string{
		"PGPASSWORD=" + p.Password,
		"PGHOST=" + p.Host,
		"PGPORT=" + p.Port,
		"PGUSER=" + p.Username,
		"PGDATABASE=" + p.Database,
	}
}

// Dump writes a plain SQL dump that drops objects before recreating them, so
// it can be replayed over an existing database.
func (p *Postgres) Dump(ctx context.Context, outPath string) error {
	p.log.Info("database dump started", "engine", EnginePostgres, "database", p.Database, "path", outPath)
	start := time.Now()
	if err := p.toFile(ctx, ErrDumpFailed, outPath, command{
		tool: "pg_dump",
		args: []string{"--clean", "--if-exists", "--no-owner"},
		env:  p.env(),
	}); err != nil {
		return err
	}
	p.log.Info("database dump completed",
		"engine", EnginePostgres,
		"database", p.Database,
		"duration", time.Since(start).String(),
	)
	return nil
}

// Restore replays inPath through psql and stops at the first failing
// statement.
func (p *Postgres) Restore(ctx context.Context, inPath string) error {
	p.log.Info("database restore started", "engine", EnginePostgres, "database", p.Database, "path", inPath)
	start := time.Now()
	if err := p.fromFile(ctx, ErrRestoreFailed, inPath, command{
		tool: "psql",
		args: []string{"--quiet", "-v", "ON_ERROR_STOP=1"},
		env:  p.env(),
	}); err != nil {
		return err
	}
	p.log.Info("database restore completed",
		"engine", EnginePostgres,
		"database", p.Database,
		"duration", time.Since(start).String(),
	)
	return nil
}
