package localwr

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/code19m/errx"
	"github.com/spf13/afero"

	"github.com/deedvault/fileguard/storage"
)

const (
	trashedSuffix = ".trashed"
	sidecarSuffix = ".meta.json"
)

// trashSidecar records where a soft-deleted object came from so it can be
// inspected or restored later.
type trashSidecar struct {
	OriginalDirectory string    `json:"original_directory"`
	OriginalFilename  string    `json:"original_filename"`
	DeletedAt         time.Time `json:"deleted_at"`
}

// trash moves an object into the .trash mirror and writes its sidecar.
func (p *Provider) trash(filename, directory, fullPath string) error {
	now := time.Now()
	trashName := fmt.Sprintf("%s.%d%s", filename, now.Unix(), trashedSuffix)
	trashDirPath := filepath.Join(p.root, trashDir, directory)

	if err := p.fs.MkdirAll(trashDirPath, dirMode); err != nil {
		return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	trashPath := filepath.Join(trashDirPath, trashName)
	if err := p.fs.Rename(fullPath, trashPath); err != nil {
		return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	sidecar, err := json.Marshal(trashSidecar{
		OriginalDirectory: directory,
		OriginalFilename:  filename,
		DeletedAt:         now,
	})
	if err != nil {
		return errx.Wrap(err)
	}
	if err := afero.WriteFile(p.fs, trashPath+sidecarSuffix, sidecar, fileMode); err != nil {
		return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}
	return nil
}

// Restore moves a trashed object back to its original location.
// The trashName is the name inside the .trash mirror, including suffix.
func (p *Provider) Restore(trashName, directory string) error {
	trashPath := filepath.Join(p.root, trashDir, directory, trashName)

	raw, err := afero.ReadFile(p.fs, trashPath+sidecarSuffix)
	if err != nil {
		return notFound(trashName, filepath.Join(trashDir, directory))
	}

	var sidecar trashSidecar
	if err := json.Unmarshal(raw, &sidecar); err != nil {
		return errx.Wrap(err)
	}

	originalPath := filepath.Join(p.root, sidecar.OriginalDirectory, sidecar.OriginalFilename)
	if err := p.fs.Rename(trashPath, originalPath); err != nil {
		return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}
	_ = p.fs.Remove(trashPath + sidecarSuffix)
	return nil
}
