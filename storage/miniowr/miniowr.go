// Package miniowr provides the MinIO variant of the S3-compatible storage
// provider. Self-hosted MinIO deployments address buckets by path, so the
// endpoint is used verbatim.
package miniowr

import (
	"github.com/code19m/errx"

	"github.com/deedvault/fileguard/storage/objstore"
)

// Config defines the configuration options for a MinIO backend.
type Config struct {
	// Endpoint is the MinIO server endpoint (e.g. "localhost:9000").
	Endpoint string `yaml:"endpoint" validate:"required"`

	// AccessKey is the access key for authentication.
	AccessKey string `yaml:"access_key" validate:"required"`

	// SecretKey is the secret key for authentication.
	SecretKey string `yaml:"secret_key" validate:"required" mask:"true"`

	// Bucket is the bucket holding all logical directories.
	Bucket string `yaml:"bucket" validate:"required"`

	// UseSSL enables HTTPS connections to the server.
	UseSSL bool `yaml:"use_ssl" default:"false"`

	// BaseURL optionally overrides the public URL base (e.g. a CDN host).
	BaseURL string `yaml:"base_url"`
}

// New creates a MinIO-backed storage provider.
func New(cfg Config) (*objstore.Provider, error) {
	p, err := objstore.New(objstore.Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		UseSSL:    cfg.UseSSL,
		BaseURL:   cfg.BaseURL,
	})
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return p, nil
}
