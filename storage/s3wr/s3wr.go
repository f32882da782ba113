// Package s3wr provides the AWS S3 variant of the S3-compatible storage
// provider. The regional endpoint is derived from the region, and public
// URLs default to the virtual-hosted bucket address.
package s3wr

import (
	"fmt"

	"github.com/code19m/errx"

	"github.com/deedvault/fileguard/storage/objstore"
)

// Config defines the configuration options for an AWS S3 backend.
type Config struct {
	// Region is the AWS region hosting the bucket (e.g. "eu-central-1").
	Region string `yaml:"region" validate:"required"`

	// AccessKey is the IAM access key ID.
	AccessKey string `yaml:"access_key" validate:"required"`

	// SecretKey is the IAM secret access key.
	SecretKey string `yaml:"secret_key" validate:"required" mask:"true"`

	// Bucket is the bucket holding all logical directories.
	Bucket string `yaml:"bucket" validate:"required"`

	// BaseURL optionally overrides the public URL base (e.g. a CloudFront
	// distribution).
	BaseURL string `yaml:"base_url"`
}

// New creates an S3-backed storage provider.
func New(cfg Config) (*objstore.Provider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	p, err := objstore.New(objstore.Config{
		Endpoint:  fmt.Sprintf("s3.%s.amazonaws.com", cfg.Region),
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    true,
		BaseURL:   baseURL,
	})
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return p, nil
}
