package localwr

import (
	"context"
	"path/filepath"

	"github.com/code19m/errx"
	"github.com/spf13/afero"

	"github.com/deedvault/fileguard/storage"
)

// Stats walks the fixed logical directories and aggregates counts and byte
// totals. The .trash mirror is excluded: trashed objects are no longer part
// of the served inventory.
func (p *Provider) Stats(ctx context.Context) (*storage.Stats, error) {
	stats := &storage.Stats{Directories: map[string]storage.DirStats{}}

	for _, dir := range storage.KnownDirs {
		if err := ctx.Err(); err != nil {
			return nil, errx.Wrap(err)
		}

		entries, err := afero.ReadDir(p.fs, filepath.Join(p.root, dir))
		if err != nil {
			continue // directory may not exist yet
		}

		var ds storage.DirStats
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ds.Objects++
			ds.Bytes += e.Size()
		}
		stats.Directories[dir] = ds
		stats.TotalObjects += ds.Objects
		stats.TotalBytes += ds.Bytes
	}

	return stats, nil
}
