package localwr

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/code19m/errx"
	"github.com/spf13/afero"

	"github.com/deedvault/fileguard/storage"
)

// Cleanup purges stale temp files and trashed objects older than the
// retention window. Sidecar records go with their objects. Returns the
// number of purged objects (sidecars not counted).
func (p *Provider) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	purged := 0

	// Temp staging: anything older than the retention window is an
	// abandoned partial write.
	tempPath := filepath.Join(p.root, storage.DirTemp)
	entries, err := afero.ReadDir(p.fs, tempPath)
	if err != nil && !os.IsNotExist(err) {
		return 0, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return purged, errx.Wrap(err)
		}
		if e.IsDir() || e.ModTime().After(cutoff) {
			continue
		}
		if err := p.fs.Remove(filepath.Join(tempPath, e.Name())); err == nil {
			purged++
		}
	}

	// Trash mirror: purge entries whose deletion timestamp has aged out.
	trashRoot := filepath.Join(p.root, trashDir)
	walkErr := afero.Walk(p.fs, trashRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !strings.HasSuffix(info.Name(), trashedSuffix) {
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := p.fs.Remove(path); err == nil {
			purged++
			_ = p.fs.Remove(path + sidecarSuffix)
		}
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		return purged, errx.Wrap(walkErr)
	}

	return purged, nil
}
