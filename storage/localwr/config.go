package localwr

// Config defines the local-disk provider's configuration.
type Config struct {
	// RootDir is the upload root. First-level logical directories, the
	// temp staging folder and the .trash mirror are created under it.
	RootDir string `yaml:"root_dir" validate:"required"`

	// BaseURL is prepended to "<directory>/<filename>" to form the
	// publicly addressable URL of stored objects.
	BaseURL string `yaml:"base_url" default:"/uploads"`
}
