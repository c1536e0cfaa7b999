// Package operations orchestrates backup creation and restore: it stages the
// database dump and application files, packs them into an archive, hands the
// archive to the catalogue and applies retention.
package operations

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kebairia/appbackup/internal/catalogue"
	"github.com/kebairia/appbackup/internal/config"
	"github.com/kebairia/appbackup/internal/database"
	"github.com/kebairia/appbackup/internal/filetree"
	"github.com/kebairia/appbackup/internal/logger"
	"github.com/kebairia/appbackup/internal/storage"
	"github.com/kebairia/appbackup/internal/vault"
)

var (
	ErrStaging          = errors.New("cannot create staging directory")
	ErrBackupFailed     = errors.New("backup failed")
	ErrRestoreFailed    = errors.New("restore failed")
	ErrCannotOpenBackup = errors.New("cannot open backup file")
	ErrInvalidKind      = errors.New("invalid backup type")
)

// tempDirName is the directory created under os.TempDir when no temporary
// directory is configured.
const tempDirName = "appbackup"

// Option overrides a collaborator of the Orchestrator.
type Option func(*Orchestrator)

// WithDriver uses d instead of building a driver from the configuration.
func WithDriver(d database.Driver) Option {
	return func(o *Orchestrator) {
		o.driver = d
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClock replaces time.Now for naming and stamping backups.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCopier replaces the file tree copier.
func WithCopier(c *filetree.Copier) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.copier = c
		}
	}
}

// Orchestrator runs create and restore. Calls are synchronous; concurrent
// calls use independent staging directories.
type Orchestrator struct {
	cfg       config.Config
	catalogue *catalogue.Catalogue
	driver    database.Driver
	copier    *filetree.Copier
	log       logger.Logger
	now       func() time.Time
	tempRoot  string
}

// New returns an Orchestrator storing archives in cat. Unless WithDriver is
// given, the database driver is built from cfg.Database; an unknown driver is
// rejected here, before any backup work starts.
func New(cfg config.Config, cat *catalogue.Catalogue, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:       cfg,
		catalogue: cat,
		log:       logger.Nop(),
		now:       time.Now,
		tempRoot:  cfg.Backup.TempDirectory,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tempRoot == "" {
		o.tempRoot = filepath.Join(os.TempDir(), tempDirName)
	}
	if o.copier == nil {
		o.copier = filetree.NewCopier(filetree.WithLogger(o.log))
	}

	if o.driver == nil && cfg.Database.Driver != "" {
		d, err := database.New(cfg.Database,
			database.WithTimeout(cfg.Backup.Timeout),
			database.WithLogger(o.log),
		)
		if err != nil {
			return nil, err
		}
		o.driver = d
	}
	return o, nil
}

// NewFromConfig wires storage, catalogue, Vault credentials and the database
// driver from cfg.
func NewFromConfig(ctx context.Context, cfg config.Config, log logger.Logger) (*Orchestrator, error) {
	if log == nil {
		log = logger.Nop()
	}

	store, err := storage.New(cfg.Storage.Disk, cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	cat := catalogue.New(store, cfg.Storage.Directory, cfg.Retention, catalogue.WithLogger(log))

	opts := []Option{WithLogger(log)}
	if cfg.Database.Driver != "" {
		dbOpts := []database.Option{
			database.WithTimeout(cfg.Backup.Timeout),
			database.WithLogger(log),
		}
		if path := cfg.Database.Vault.CredentialsPath; path != "" {
			creds, err := vaultCredentials(ctx, cfg.Database.Vault)
			if err != nil {
				return nil, err
			}
			log.Info("database credentials issued by vault", "path", path, "ttl", creds.TTL.String())
			dbOpts = append(dbOpts, database.WithCredentials(creds.Username, creds.Password))
		}
		d, err := database.New(cfg.Database, dbOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithDriver(d))
	}

	if cfg.Backup.Encrypt {
		log.Warn("backup.encrypt is set but archives are written unencrypted")
	}
	log.Debug("orchestrator configured",
		"disk", store.Name(),
		"directory", cfg.Storage.Directory,
		"driver", cfg.Database.Driver,
		"memory_limit", cfg.Backup.MemoryLimit,
	)
	return New(cfg, cat, opts...)
}

func vaultCredentials(ctx context.Context, cfg config.VaultConfig) (vault.DynamicCredentials, error) {
	client, err := vault.NewClient(ctx,
		vault.WithAddress(cfg.Address),
		vault.WithAppRole(cfg.RoleID, cfg.RoleName),
	)
	if err != nil {
		return vault.DynamicCredentials{}, fmt.Errorf("vault client init: %w", err)
	}
	creds, err := client.GetDynamicCredentials(ctx, cfg.CredentialsPath)
	if err != nil {
		return vault.DynamicCredentials{}, fmt.Errorf("vault credentials: %w", err)
	}
	return creds, nil
}

// Catalogue returns the catalogue archives are stored in.
func (o *Orchestrator) Catalogue() *catalogue.Catalogue { return o.catalogue }
