package upload

import (
	"github.com/deedvault/fileguard/hasher"
	"github.com/deedvault/fileguard/storage"
	"github.com/deedvault/fileguard/upload/strategy"
)

// ChannelConfig defines one upload channel. A config is immutable after
// manager construction; the only runtime mutation is SwitchStrategy, which
// replaces the whole channel entry atomically.
type ChannelConfig struct {
	// MaxFileSize is the per-file byte ceiling. Zero disables the check.
	MaxFileSize int64 `yaml:"max_file_size"      default:"10485760"`

	// AllowedMIMETypes restricts declared types, exact or "image/*"
	// wildcard. Empty allows any.
	AllowedMIMETypes []string `yaml:"allowed_mime_types"`

	// BlockedExtensions aborts extraction for matching files. Leading
	// dot required.
	BlockedExtensions []string `yaml:"blocked_extensions"`

	// CheckMagicNumber toggles magic-number / declared-type consistency
	// checking in the security validator.
	CheckMagicNumber bool `yaml:"check_magic_number" default:"true"`

	// ValidateContent toggles dangerous-content analysis and structural
	// validation (image decode, document header checks).
	ValidateContent bool `yaml:"validate_content"   default:"true"`

	// GenerateThumbnails derives downscaled copies for accepted images.
	GenerateThumbnails bool  `yaml:"generate_thumbnails"`
	ThumbnailWidths    []int `yaml:"thumbnail_widths"`

	// MaxImageWidth re-encodes wider images down to this width.
	// Zero keeps originals untouched.
	MaxImageWidth int `yaml:"max_image_width"`

	// StorageBackend selects the provider by registry key.
	StorageBackend string `yaml:"storage_backend"    default:"local" validate:"required"`

	// Strategy selects the request parser.
	Strategy strategy.Kind `yaml:"strategy"           default:"stdform"`

	// HashAlgorithm selects the content digest.
	HashAlgorithm hasher.Algorithm `yaml:"hash_algorithm"`

	// DefaultDirectory overrides the directory fallback chain's last
	// step for this channel.
	DefaultDirectory string `yaml:"default_directory"`

	// VirusScan is an optional scan hook. Not configurable from YAML.
	VirusScan VirusScanHook `yaml:"-"`
}

func (c ChannelConfig) rules() strategy.Rules {
	return strategy.Rules{
		BlockedExtensions: c.BlockedExtensions,
		AllowedMIMETypes:  c.AllowedMIMETypes,
		MaxFileSize:       c.MaxFileSize,
	}
}

// DefaultBlockedExtensions is the baseline executable/script denylist
// applied by the built-in channels.
var DefaultBlockedExtensions = []string{
	".exe", ".dll", ".com", ".scr", ".msi",
	".bat", ".cmd", ".ps1", ".sh", ".cgi",
	".php", ".phtml", ".pl", ".py", ".vbs", ".jar",
}

// BuiltinChannels returns the standard channel set. Callers may override
// or extend the map before handing it to New.
func BuiltinChannels() map[string]ChannelConfig {
	return map[string]ChannelConfig{
		"general": {
			MaxFileSize:       10 << 20,
			BlockedExtensions: DefaultBlockedExtensions,
			CheckMagicNumber:  true,
			ValidateContent:   true,
			StorageBackend:    "local",
			Strategy:          strategy.KindStdForm,
		},
		"image": {
			MaxFileSize:        5 << 20,
			AllowedMIMETypes:   []string{"image/*"},
			BlockedExtensions:  DefaultBlockedExtensions,
			CheckMagicNumber:   true,
			ValidateContent:    true,
			GenerateThumbnails: true,
			ThumbnailWidths:    []int{150, 400},
			MaxImageWidth:      1920,
			StorageBackend:     "local",
			Strategy:           strategy.KindStdForm,
			DefaultDirectory:   storage.DirImages,
		},
		"document": {
			MaxFileSize: 20 << 20,
			AllowedMIMETypes: []string{
				"application/pdf",
				"application/msword",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
				"application/vnd.ms-excel",
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				"text/plain", "text/csv",
			},
			BlockedExtensions: DefaultBlockedExtensions,
			CheckMagicNumber:  true,
			ValidateContent:   true,
			StorageBackend:    "local",
			Strategy:          strategy.KindStreamForm,
			DefaultDirectory:  storage.DirDocuments,
		},
		"property": {
			MaxFileSize:        10 << 20,
			AllowedMIMETypes:   []string{"image/*", "application/pdf"},
			BlockedExtensions:  DefaultBlockedExtensions,
			CheckMagicNumber:   true,
			ValidateContent:    true,
			GenerateThumbnails: true,
			ThumbnailWidths:    []int{400},
			MaxImageWidth:      2560,
			StorageBackend:     "local",
			Strategy:           strategy.KindStdForm,
			DefaultDirectory:   storage.DirProperties,
		},
		"profile": {
			MaxFileSize:        2 << 20,
			AllowedMIMETypes:   []string{"image/*"},
			BlockedExtensions:  DefaultBlockedExtensions,
			CheckMagicNumber:   true,
			ValidateContent:    true,
			GenerateThumbnails: true,
			ThumbnailWidths:    []int{150},
			MaxImageWidth:      1024,
			StorageBackend:     "local",
			Strategy:           strategy.KindStdForm,
			DefaultDirectory:   storage.DirProfiles,
		},
	}
}
