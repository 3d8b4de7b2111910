package meteora

import (
	"log/slog"
	"time"

	"github.com/aretw0/meteora/internal/config"
	"github.com/aretw0/meteora/internal/platform"
	"github.com/aretw0/meteora/pkg/adapters/fs"
	"github.com/aretw0/meteora/pkg/adapters/s3"
	"github.com/aretw0/meteora/pkg/core"
)

// --- Types ---

// Service is the note service returned by New.
type Service = core.Service

// Note is a ranked, filterable note.
type Note = core.Note

// Query selects the visible subset of notes.
type Query = core.Query

// Config is the file and environment configuration.
type Config = config.Config

// --- Configuration ---

// Option defines a functional option for configuring Meteora.
type Option = platform.Option

// Adapter names for WithAdapter.
const (
	AdapterVault    = platform.AdapterVault
	AdapterSnapshot = platform.AdapterSnapshot
	AdapterSQLite   = platform.AdapterSQLite
	AdapterPostgres = platform.AdapterPostgres
	AdapterS3       = platform.AdapterS3
)

// WithAdapter selects the storage adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithRepository allows injecting a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithSystemDir allows specifying the hidden directory name (e.g. ".meteora").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithStoragePath sets the snapshot or database file.
func WithStoragePath(path string) Option {
	return platform.WithStoragePath(path)
}

// WithDSN sets the postgres connection string.
func WithDSN(dsn string) Option {
	return platform.WithDSN(dsn)
}

// WithS3 configures the object storage adapter.
func WithS3(cfg s3.Config) Option {
	return platform.WithS3(cfg)
}

// WithPassphrase seals stored notes with a key derived from passphrase.
func WithPassphrase(passphrase string) Option {
	return platform.WithPassphrase(passphrase)
}

// WithMustExist ensures the vault directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithReadOnly opens the store without writing to it.
func WithReadOnly(readOnly bool) Option {
	return platform.WithReadOnly(readOnly)
}

// WithForceTemp forces the use of the dev sandbox directory.
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithoutLoad returns the service with an empty store instead of loading it.
func WithoutLoad() Option {
	return platform.WithoutLoad()
}

// WithWeights sets the ranking weights.
func WithWeights(w core.Weights) Option {
	return platform.WithWeights(w)
}

// WithClock injects the time source used for ranking.
func WithClock(clock func() time.Time) Option {
	return platform.WithClock(clock)
}

// WithEventBuffer allows specifying the size of the event broker buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithWatcherErrorHandler receives runtime failures of the vault watcher.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// New opens the store at root and loads it.
func New(root string, opts ...Option) (*Service, error) {
	return platform.New(root, opts...)
}

// Init builds and initializes the repository without a service.
func Init(root string, opts ...Option) (core.Repository, error) {
	return platform.Init(root, opts...)
}

// Open reads .meteora/config.toml (and METEORA_* variables) under root and
// opens the store it describes. opts override the configuration.
func Open(root string, opts ...Option) (*Service, error) {
	cfg, err := config.Load(config.Path(root, fs.DefaultSystemDir))
	if err != nil {
		return nil, err
	}
	base, err := platform.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return platform.New(root, append(base, opts...)...)
}

// --- Utils ---

// FindVaultRoot looks upwards for a directory holding .meteora or .git.
func FindVaultRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// ResolveVaultPath determines the actual path for the vault based on safety rules.
func ResolveVaultPath(userPath string, forceTemp bool) string {
	return platform.ResolveVaultPath(userPath, forceTemp)
}
