// Package s3 stores the note snapshot as an object in S3 or MinIO.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/aretw0/meteora/pkg/codec"
	"github.com/aretw0/meteora/pkg/core"
	"github.com/aretw0/meteora/pkg/seal"
)

// DefaultObject is the key of the snapshot object.
const DefaultObject = "meteora.json"

// BackupSuffix is appended to the key of the previous save.
const BackupSuffix = ".bak"

// Repository implements core.Repository and core.BackupLoader on one bucket object.
type Repository struct {
	config Config
	client *minio.Client

	mu       sync.RWMutex
	lastSave *time.Time
}

var (
	_ core.Repository   = (*Repository)(nil)
	_ core.BackupLoader = (*Repository)(nil)
)

// Config holds the configuration for the S3 repository.
type Config struct {
	Endpoint  string // host[:port], without scheme
	Bucket    string
	Object    string
	AccessKey string
	SecretKey string
	Region    string
	Secure    bool
	ReadOnly  bool
	Logger    *slog.Logger
	// Sealer, when set, seals the whole document before upload.
	Sealer *seal.Sealer
}

// NewRepository creates an S3 repository. The client is created by Initialize.
func NewRepository(config Config) *Repository {
	if config.Object == "" {
		config.Object = DefaultObject
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Repository{config: config}
}

// Initialize connects and makes sure the bucket exists.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.Endpoint == "" || r.config.Bucket == "" {
		return errors.New("s3 endpoint and bucket are required")
	}
	if r.client != nil {
		return nil
	}
	client, err := minio.New(r.config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(r.config.AccessKey, r.config.SecretKey, ""),
		Secure: r.config.Secure,
		Region: r.config.Region,
	})
	if err != nil {
		return fmt.Errorf("failed to create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, r.config.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", r.config.Bucket, err)
	}
	if !exists {
		if r.config.ReadOnly {
			return fmt.Errorf("bucket %s does not exist", r.config.Bucket)
		}
		if err := client.MakeBucket(ctx, r.config.Bucket, minio.MakeBucketOptions{Region: r.config.Region}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", r.config.Bucket, err)
		}
		r.config.Logger.Info("created bucket", "bucket", r.config.Bucket)
	}
	r.client = client
	return nil
}

func (r *Repository) backupObject() string {
	return r.config.Object + BackupSuffix
}

// Load downloads the snapshot. A missing object is an empty store.
func (r *Repository) Load(ctx context.Context) (core.Snapshot, error) {
	snap, err := r.read(ctx, r.config.Object)
	if isNotFound(err) {
		r.config.Logger.Debug("no snapshot object yet", "bucket", r.config.Bucket, "object", r.config.Object)
		return core.Snapshot{}, nil
	}
	return snap, err
}

// LoadBackup downloads the previous save.
func (r *Repository) LoadBackup(ctx context.Context) (core.Snapshot, error) {
	snap, err := r.read(ctx, r.backupObject())
	if isNotFound(err) {
		return core.Snapshot{}, core.ErrNoBackup
	}
	return snap, err
}

func (r *Repository) read(ctx context.Context, object string) (core.Snapshot, error) {
	if r.client == nil {
		return core.Snapshot{}, errors.New("s3 client is not initialized")
	}
	obj, err := r.client.GetObject(ctx, r.config.Bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return core.Snapshot{}, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return core.Snapshot{}, err
	}
	snap, err := codec.Unmarshal(data, r.config.Sealer)
	if err != nil {
		return core.Snapshot{}, &core.LoadError{Source: r.config.Bucket + "/" + object, Err: err}
	}
	return snap, nil
}

// Save copies the current object to the backup key and uploads snap.
func (r *Repository) Save(ctx context.Context, snap core.Snapshot) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if r.client == nil {
		return errors.New("s3 client is not initialized")
	}

	now := time.Now()
	data, err := codec.Marshal(snap, now, r.config.Sealer)
	if err != nil {
		return err
	}

	_, err = r.client.StatObject(ctx, r.config.Bucket, r.config.Object, minio.StatObjectOptions{})
	switch {
	case err == nil:
		_, err = r.client.CopyObject(ctx,
			minio.CopyDestOptions{Bucket: r.config.Bucket, Object: r.backupObject()},
			minio.CopySrcOptions{Bucket: r.config.Bucket, Object: r.config.Object})
		if err != nil {
			return fmt.Errorf("failed to rotate backup: %w", err)
		}
	case !isNotFound(err):
		return fmt.Errorf("failed to stat snapshot: %w", err)
	}

	contentType := "application/json"
	if r.config.Sealer != nil {
		contentType = "text/plain"
	}
	_, err = r.client.PutObject(ctx, r.config.Bucket, r.config.Object,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}

	r.mu.Lock()
	r.lastSave = &now
	r.mu.Unlock()
	r.config.Logger.Debug("snapshot uploaded", "bucket", r.config.Bucket, "object", r.config.Object, "bytes", len(data))
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}

// RepositoryState exposes internal state for observability. Credentials are never exposed.
type RepositoryState struct {
	Endpoint  string     `json:"endpoint"`
	Bucket    string     `json:"bucket"`
	Object    string     `json:"object"`
	Connected bool       `json:"connected"`
	ReadOnly  bool       `json:"read_only"`
	Sealed    bool       `json:"sealed"`
	LastSave  *time.Time `json:"last_save,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RepositoryState{
		Endpoint:  r.config.Endpoint,
		Bucket:    r.config.Bucket,
		Object:    r.config.Object,
		Connected: r.client != nil,
		ReadOnly:  r.config.ReadOnly,
		Sealed:    r.config.Sealer != nil,
		LastSave:  r.lastSave,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "s3"
}
