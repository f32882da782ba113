package config

import (
	"github.com/deedvault/fileguard/events/kafkawr"
	"github.com/deedvault/fileguard/logger"
	"github.com/deedvault/fileguard/pg"
	"github.com/deedvault/fileguard/storage/localwr"
	"github.com/deedvault/fileguard/storage/miniowr"
	"github.com/deedvault/fileguard/storage/s3wr"
	"github.com/deedvault/fileguard/storage/spaceswr"
	"github.com/deedvault/fileguard/upload"
)

// Config is the full service configuration.
type Config struct {
	Logger logger.Config `yaml:"logger"`

	Storage    StorageConfig    `yaml:"storage"`
	Quarantine QuarantineConfig `yaml:"quarantine"`

	// Channels overrides or extends the built-in channel table.
	// An empty map keeps the built-ins untouched.
	Channels map[string]upload.ChannelConfig `yaml:"channels"`

	// BlockedHashes is the known-malicious content digest set shared by
	// every channel (lowercase hex).
	BlockedHashes []string `yaml:"blocked_hashes"`

	// Registry configures the file-record database. Optional: without
	// it the pipeline runs with no post-persist hook.
	Registry *pg.Config `yaml:"registry"`

	// Events configures the Kafka audit-event publisher. Optional:
	// without it events stay on the in-process bus.
	Events *kafkawr.Config `yaml:"events"`
}

// StorageConfig declares the available storage backends. Every non-nil
// entry is constructed at startup and registered under its key; channels
// select backends by that key.
type StorageConfig struct {
	Local  *localwr.Config  `yaml:"local"`
	Minio  *miniowr.Config  `yaml:"minio"`
	S3     *s3wr.Config     `yaml:"s3"`
	Spaces *spaceswr.Config `yaml:"spaces"`
}

// QuarantineConfig locates the rejected-bytes vault.
type QuarantineConfig struct {
	Root string `yaml:"root" default:"./quarantine"`
}

// ChannelTable merges the configured channel overrides over the built-in
// table.
func (c Config) ChannelTable() map[string]upload.ChannelConfig {
	table := upload.BuiltinChannels()
	for name, cfg := range c.Channels {
		table[name] = cfg
	}
	return table
}
