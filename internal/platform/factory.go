package platform

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aretw0/meteora/internal/config"
	"github.com/aretw0/meteora/pkg/adapters/fs"
	"github.com/aretw0/meteora/pkg/adapters/postgres"
	"github.com/aretw0/meteora/pkg/adapters/s3"
	"github.com/aretw0/meteora/pkg/adapters/snapshot"
	"github.com/aretw0/meteora/pkg/adapters/sqlite"
	"github.com/aretw0/meteora/pkg/core"
	"github.com/aretw0/meteora/pkg/seal"
)

// Default file names inside the system directory.
const (
	SnapshotFile = "meteora.json"
	SQLiteFile   = "meteora.db"
)

// New opens the store at root and returns a loaded Service.
//
//	svc, err := meteora.New("./notes", meteora.WithAdapter("sqlite"))
//
// The root is the vault directory. Adapters keeping a single file default to
// a file inside its system directory; postgres and s3 ignore it.
func New(root string, opts ...Option) (*core.Service, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	repo, err := initRepository(root, o)
	if err != nil {
		return nil, err
	}

	svcOpts := []core.Option{
		core.WithLogger(o.logger),
		core.WithClock(o.clock),
		core.WithEventBuffer(o.eventBuffer),
	}
	if o.weights != nil {
		svcOpts = append(svcOpts, core.WithWeights(*o.weights))
	}
	service := core.NewService(repo, svcOpts...)

	if o.skipLoad {
		return service, nil
	}
	if err := service.Load(context.Background()); err != nil {
		_ = service.Close()
		return nil, err
	}
	return service, nil
}

// Init builds the repository selected by the options and initializes it.
func Init(root string, opts ...Option) (core.Repository, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return initRepository(root, o)
}

func initRepository(root string, o *options) (core.Repository, error) {
	if o.repository != nil {
		return o.repository, nil
	}

	var sealer *seal.Sealer
	if o.passphrase != "" {
		var err error
		sealer, err = seal.New(o.passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare sealer: %w", err)
		}
	}

	root = resolveRoot(root, o)

	var repo core.Repository
	switch o.adapter {
	case AdapterVault:
		repo = fs.NewRepository(fs.Config{
			Path:         root,
			SystemDir:    o.systemDir,
			MustExist:    o.mustExist,
			ReadOnly:     o.readOnly,
			Logger:       o.logger,
			ErrorHandler: o.errorHandler,
			Sealer:       sealer,
		})
	case AdapterSnapshot:
		repo = snapshot.NewRepository(snapshot.Config{
			Path:     storagePath(root, o, SnapshotFile),
			ReadOnly: o.readOnly,
			Logger:   o.logger,
			Sealer:   sealer,
		})
	case AdapterSQLite:
		repo = sqlite.NewRepository(sqlite.Config{
			Path:     storagePath(root, o, SQLiteFile),
			ReadOnly: o.readOnly,
			Logger:   o.logger,
		})
	case AdapterPostgres:
		repo = postgres.NewRepository(postgres.Config{
			DSN:      o.dsn,
			ReadOnly: o.readOnly,
			Logger:   o.logger,
		})
	case AdapterS3:
		cfg := o.s3
		cfg.ReadOnly = o.readOnly
		cfg.Logger = o.logger
		cfg.Sealer = sealer
		repo = s3.NewRepository(cfg)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}

	if sealer != nil && (o.adapter == AdapterSQLite || o.adapter == AdapterPostgres) {
		o.log().Warn("passphrase ignored by database adapter", "adapter", o.adapter)
	}

	if err := repo.Initialize(context.Background()); err != nil {
		return nil, err
	}
	o.log().Debug("repository ready", "adapter", o.adapter, "root", root)
	return repo, nil
}

// KeepsBackup reports whether the named adapter keeps the previous save,
// so the service can fall back to it with LoadBackup.
func KeepsBackup(adapter string) bool {
	switch adapter {
	case AdapterSnapshot, AdapterS3:
		return true
	}
	return false
}

// resolveRoot applies the dev sandbox to the vault root.
func resolveRoot(root string, o *options) string {
	bypass := o.readOnly || !o.devSafety
	useTemp := o.forceTemp || (IsDevRun() && !bypass)
	resolved := ResolveVaultPath(root, useTemp)
	if useTemp && resolved != filepath.Clean(root) {
		o.log().Warn("running in SAFE MODE (dev sandbox)", "original_path", root, "resolved_path", resolved)
	}
	return resolved
}

func storagePath(root string, o *options, name string) string {
	path := o.storagePath
	if path == "" {
		dir := o.systemDir
		if dir == "" {
			dir = fs.DefaultSystemDir
		}
		path = filepath.Join(dir, name)
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// FromConfig translates a loaded configuration into options. Options passed
// after these override them.
func FromConfig(cfg config.Config) ([]Option, error) {
	weights, err := cfg.Weights()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithAdapter(cfg.Storage.Adapter),
		WithStoragePath(cfg.Storage.Path),
		WithDSN(cfg.Storage.DSN),
		WithS3(s3.Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Object:    cfg.S3.Object,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Secure:    cfg.S3.Secure,
		}),
		WithPassphrase(cfg.Security.Passphrase),
		WithWeights(weights),
	}, nil
}
