package database

import (
	"context"
	"time"
)

// MySQL dumps with mysqldump and restores with the mysql client. The password
// travels in MYSQL_PWD, never on the command line.
type MySQL struct {
	settings

	Host              string
	Port              string
	Username          string
	Password          string
	Database          string
	SingleTransaction bool
}

func (m *MySQL) Engine() string { return EngineMySQL }

func (m *MySQL) connArgs() []string {
	args := []string{"--user=" + m.Username, "--port=" + m.Port}
	if m.Host != "" {
		args = append(args, "--host="+m.Host)
	}
	return args
}

func (m *MySQL) env() []string {
	return []string{"MYSQL_PWD=" + m.Password}
}

// Dump runs mysqldump and writes its output to outPath.
func (m *MySQL) Dump(ctx context.Context, outPath string) error {
	args := m.connArgs()
	if m.SingleTransaction {
		args = append(args, "--single-transaction")
	}
	args = append(args, m.Database)

	m.log.Info("database dump started", "engine", EngineMySQL, "database", m.Database, "path", outPath)
	start := time.Now()
	if err := m.toFile(ctx, ErrDumpFailed, outPath, command{
		tool: "mysqldump",
		args: args,
		env:  m.env(),
	}); err != nil {
		return err
	}
	m.log.Info("database dump completed",
		"engine", EngineMySQL,
		"database", m.Database,
		"duration", time.Since(start).String(),
	)
	return nil
}

// Restore pipes inPath into the mysql client.
func (m *MySQL) Restore(ctx context.Context, inPath string) error {
	args := append(m.connArgs(), m.Database)

	m.log.Info("database restore started", "engine", EngineMySQL, "database", m.Database, "path", inPath)
	start := time.Now()
	if err := m.fromFile(ctx, ErrRestoreFailed, inPath, command{
		tool: "mysql",
		args: args,
		env:  m.env(),
	}); err != nil {
		return err
	}
	m.log.Info("database restore completed",
		"engine", EngineMySQL,
		"database", m.Database,
		"duration", time.Since(start).String(),
	)
	return nil
}
