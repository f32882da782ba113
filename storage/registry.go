package storage

import (
	"sync"

	"github.com/code19m/errx"
)

// Factory constructs a Provider from an opaque backend configuration.
type Factory func() (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register binds a backend key (e.g. "local", "minio", "s3", "spaces") to a
// provider factory. Implementations register themselves from the wiring
// code, not from init, so the set of available backends is explicit.
func Register(key string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[key] = f
}

// Open constructs the provider registered under key.
func Open(key string) (Provider, error) {
	registryMu.RLock()
	f, ok := registry[key]
	registryMu.RUnlock()

	if !ok {
		return nil, errx.New(
			"no storage backend registered for key: "+key,
			errx.WithCode(CodeUnknownBackend),
			errx.WithType(errx.T_Internal),
		)
	}
	return f()
}
