package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/meteora/pkg/adapters/s3"
	"github.com/aretw0/meteora/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterVault    = "vault"
	AdapterSnapshot = "snapshot"
	AdapterSQLite   = "sqlite"
	AdapterPostgres = "postgres"
	AdapterS3       = "s3"
)

// options holds the internal configuration for the Meteora service.
type options struct {
	repository core.Repository
	logger     *slog.Logger
	adapter    string

	// Storage
	systemDir   string
	storagePath string
	dsn         string
	s3          s3.Config
	passphrase  string
	mustExist   bool
	readOnly    bool
	forceTemp   bool
	devSafety   bool
	skipLoad    bool

	// Service
	weights      *core.Weights
	clock        func() time.Time
	eventBuffer  int
	errorHandler func(error)
}

// Option defines a functional option for configuring Meteora.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:   AdapterVault,
		devSafety: true,
	}
}

func (o *options) log() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// WithAdapter selects the storage adapter by name: vault, snapshot, sqlite,
// postgres or s3.
func WithAdapter(name string) Option {
	return func(o *options) {
		if name != "" {
			o.adapter = name
		}
	}
}

// WithRepository injects a custom storage adapter. It takes precedence over WithAdapter.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithLogger sets the logger for the service and its repository.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSystemDir sets the hidden directory of a vault (default ".meteora").
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithStoragePath sets the file used by the snapshot and sqlite adapters.
// Relative paths are resolved against the vault root.
func WithStoragePath(path string) Option {
	return func(o *options) {
		o.storagePath = path
	}
}

// WithDSN sets the connection string of the postgres adapter.
func WithDSN(dsn string) Option {
	return func(o *options) {
		o.dsn = dsn
	}
}

// WithS3 configures the s3 adapter. Logger, ReadOnly and Sealer are filled in
// from the other options.
func WithS3(cfg s3.Config) Option {
	return func(o *options) {
		o.s3 = cfg
	}
}

// WithPassphrase seals note bodies, snapshots and objects at rest.
// Adapters storing rows in a database ignore it.
func WithPassphrase(passphrase string) Option {
	return func(o *options) {
		o.passphrase = passphrase
	}
}

// WithMustExist ensures the vault directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithReadOnly opens the repository without ever writing to it.
// Read-only access also bypasses the dev sandbox.
func WithReadOnly(readOnly bool) Option {
	return func(o *options) {
		o.readOnly = readOnly
	}
}

// WithForceTemp forces the vault into the dev sandbox directory.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or `go test`.
// Enabled by default; paths already under the system temp dir are left alone.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithoutLoad skips the initial Load in New, leaving the store empty.
// The restore command uses it to recover from a corrupt save.
func WithoutLoad() Option {
	return func(o *options) {
		o.skipLoad = true
	}
}

// WithWeights sets the ranking weights.
func WithWeights(w core.Weights) Option {
	return func(o *options) {
		o.weights = &w
	}
}

// WithClock injects the time source used for ranking.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithEventBuffer sets the size of the watch broker buffer.
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithWatcherErrorHandler receives runtime failures of the vault watcher.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}
