package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage archives raw filing parser output for audit and reprocessing.
type Storage interface {
	// Upload stores an archive object and returns its storage path
	Upload(ctx context.Context, objectID uuid.UUID, filename string, data io.Reader) (string, error)

	// Download retrieves an archived object by storage path
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes an archived object by storage path
	Delete(ctx context.Context, storagePath string) error
}

// Backend identifies the archive backend type
type Backend string

const (
	BackendLocal Backend = "local"
	BackendS3    Backend = "s3"
)

// Config holds archive backend configuration
type Config struct {
	Backend      Backend
	LocalPath    string // for the local backend
	S3Bucket     string // for the S3 backend
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// New creates an archive backed by the configured store
func New(cfg Config) (Storage, error) {
	switch cfg.Backend {
	case BackendLocal:
		return NewLocalArchive(cfg.LocalPath)
	case BackendS3:
		return NewS3Archive(cfg)
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", cfg.Backend)
	}
}

// NewFromEnv creates an archive from environment variables
func NewFromEnv() (Storage, error) {
	backend := os.Getenv("ARCHIVE_BACKEND")
	if backend == "" {
		backend = "local" // default for development
	}

	switch Backend(backend) {
	case BackendLocal:
		localPath := os.Getenv("ARCHIVE_LOCAL_PATH")
		if localPath == "" {
			localPath = "./archive/filings"
		}
		return NewLocalArchive(localPath)

	case BackendS3:
		cfg := Config{
			Backend:      BackendS3,
			S3Bucket:     os.Getenv("ARCHIVE_S3_BUCKET"),
			S3Region:     os.Getenv("AWS_REGION"),
			AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		}
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		if cfg.S3Bucket == "" {
			return nil, errors.New("ARCHIVE_S3_BUCKET environment variable is required for the S3 backend")
		}
		return NewS3Archive(cfg)

	default:
		return nil, fmt.Errorf("unknown archive backend: %s", backend)
	}
}

// archivePath builds a unique storage path for an object. The two-char
// prefix spreads objects across directories.
func archivePath(objectID uuid.UUID, filename string) string {
	ext := filepath.Ext(filename)
	baseName := strings.TrimSuffix(filename, ext)
	baseName = strings.ReplaceAll(baseName, " ", "_")
	baseName = strings.ReplaceAll(baseName, "/", "_")
	baseName = strings.ReplaceAll(baseName, "\\", "_")

	return fmt.Sprintf("%s/%s_%s%s", objectID.String()[:2], objectID.String(), baseName, ext)
}
