package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("storage: object not found")

// Storage is the object store payout batches are exported to.
type Storage interface {
	// Put stores an object under key.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Exists reports whether key is already taken.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns the URL an operator downloads the object from.
	GetURL(key string) string
}

// Config selects and configures a backend.
type Config struct {
	Driver string // s3, r2 or local

	// S3 compatible
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string

	// R2
	AccountID string

	// Local
	LocalDir string
	LocalURL string
}

// New builds the backend named by cfg.Driver.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Storage(ctx, cfg)
	case "r2":
		r2 := cfg
		r2.Endpoint = "https://" + cfg.AccountID + ".r2.cloudflarestorage.com"
		r2.Region = "auto"
		return NewS3Storage(ctx, r2)
	case "", "local":
		return NewLocalStorage(cfg.LocalDir, cfg.LocalURL)
	}
	return nil, errors.New("storage: unknown driver " + cfg.Driver)
}
