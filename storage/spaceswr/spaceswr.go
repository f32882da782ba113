// Package spaceswr provides the DigitalOcean Spaces variant of the
// S3-compatible storage provider. Spaces exposes the S3 API under regional
// digitaloceanspaces.com endpoints and serves public objects through an
// optional CDN subdomain.
package spaceswr

import (
	"fmt"

	"github.com/code19m/errx"

	"github.com/deedvault/fileguard/storage/objstore"
)

// Config defines the configuration options for a DigitalOcean Spaces backend.
type Config struct {
	// Region is the Spaces region (e.g. "fra1", "nyc3").
	Region string `yaml:"region" validate:"required"`

	// AccessKey is the Spaces access key.
	AccessKey string `yaml:"access_key" validate:"required"`

	// SecretKey is the Spaces secret key.
	SecretKey string `yaml:"secret_key" validate:"required" mask:"true"`

	// Bucket is the Space holding all logical directories.
	Bucket string `yaml:"bucket" validate:"required"`

	// UseCDN serves public URLs from the Spaces CDN subdomain.
	UseCDN bool `yaml:"use_cdn" default:"true"`
}

// New creates a Spaces-backed storage provider.
func New(cfg Config) (*objstore.Provider, error) {
	host := "digitaloceanspaces.com"
	baseURL := fmt.Sprintf("https://%s.%s.%s", cfg.Bucket, cfg.Region, host)
	if cfg.UseCDN {
		baseURL = fmt.Sprintf("https://%s.%s.cdn.%s", cfg.Bucket, cfg.Region, host)
	}

	p, err := objstore.New(objstore.Config{
		Endpoint:  fmt.Sprintf("%s.%s", cfg.Region, host),
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
