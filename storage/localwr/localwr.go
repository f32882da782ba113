// Package localwr provides the local-filesystem implementation of the
// storage.Provider interface. It is the reference backend: fixed first-level
// logical directories, atomic writes through a temp file, and a .trash
// mirror for soft-deleted objects.
//
// All filesystem access goes through afero, so tests run against an
// in-memory filesystem.
package localwr

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/code19m/errx"
	"github.com/spf13/afero"

	"github.com/deedvault/fileguard/storage"
)

const (
	dirMode  = os.FileMode(0o750)
	fileMode = os.FileMode(0o640)

	trashDir = ".trash"
)

// Provider implements storage.Provider on a local filesystem.
type Provider struct {
	fs      afero.Fs
	root    string
	baseURL string
}

// New creates a local provider on the OS filesystem.
func New(cfg Config) (*Provider, error) {
	return NewWithFs(cfg, afero.NewOsFs())
}

// NewWithFs creates a local provider on an explicit filesystem.
// Directory creation is idempotent, so concurrent first-use is safe.
func NewWithFs(cfg Config, fs afero.Fs) (*Provider, error) {
	p := &Provider{
		fs:      fs,
		root:    cfg.RootDir,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}

	for _, dir := range storage.KnownDirs {
		if err := fs.MkdirAll(filepath.Join(cfg.RootDir, dir), dirMode); err != nil {
			return nil, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
		}
	}
	if err := fs.MkdirAll(filepath.Join(cfg.RootDir, trashDir), dirMode); err != nil {
		return nil, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	return p, nil
}

// Put writes data atomically: temp file first, then rename into place.
func (p *Provider) Put(ctx context.Context, data []byte, meta storage.PutMeta) (*storage.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, errx.Wrap(err)
	}

	dir := storage.ResolveDir(meta)
	filename := storage.GenerateStorageName(meta.OriginalName, meta.ContentHash)

	if err := p.fs.MkdirAll(filepath.Join(p.root, dir), dirMode); err != nil {
		return nil, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	finalPath := filepath.Join(p.root, dir, filename)
	tmpPath := filepath.Join(p.root, storage.DirTemp, filename+".part")

	if err := afero.WriteFile(p.fs, tmpPath, data, fileMode); err != nil {
		return nil, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}
	if err := p.fs.Rename(tmpPath, finalPath); err != nil {
		_ = p.fs.Remove(tmpPath)
		return nil, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	return &storage.Object{
		Filename:  filename,
		Directory: dir,
		URL:       p.objectURL(dir, filename),
		Size:      int64(len(data)),
	}, nil
}

func (p *Provider) Get(ctx context.Context, filename, directory string) ([]byte, error) {
	fullPath, err := p.objectPath(filename, directory)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	data, err := afero.ReadFile(p.fs, fullPath)
	if os.IsNotExist(err) {
		return nil, notFound(filename, directory)
	}
	if err != nil {
		return nil, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}
	return data, nil
}

func (p *Provider) Delete(ctx context.Context, filename, directory string, opts storage.DeleteOptions) error {
	fullPath, err := p.objectPath(filename, directory)
	if err != nil {
		return errx.Wrap(err)
	}

	exists, err := afero.Exists(p.fs, fullPath)
	if err != nil {
		return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	if opts.Hard {
		if !exists {
			return notFound(filename, directory)
		}
		if err := p.fs.Remove(fullPath); err != nil {
			return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
		}
		return nil
	}

	// Already-absent is an accepted terminal state for soft delete: the
	// physical object is eventually consistent with metadata.
	if !exists {
		return nil
	}
	return p.trash(filename, directory, fullPath)
}

func (p *Provider) List(ctx context.Context, directory string) ([]storage.ObjectInfo, error) {
	dirPath, err := p.dirPath(directory)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	entries, err := afero.ReadDir(p.fs, dirPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	infos := make([]storage.ObjectInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		infos = append(infos, storage.ObjectInfo{
			Filename:    e.Name(),
			Directory:   directory,
			Size:        e.Size(),
			ContentType: guessMIME(e.Name()),
			ModifiedAt:  e.ModTime(),
		})
	}
	return infos, nil
}

func (p *Provider) Exists(ctx context.Context, filename, directory string) (bool, error) {
	fullPath, err := p.objectPath(filename, directory)
	if err != nil {
		return false, errx.Wrap(err)
	}
	exists, err := afero.Exists(p.fs, fullPath)
	if err != nil {
		return false, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}
	return exists, nil
}

func (p *Provider) Stat(ctx context.Context, filename, directory string) (*storage.ObjectInfo, error) {
	fullPath, err := p.objectPath(filename, directory)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	fi, err := p.fs.Stat(fullPath)
	if os.IsNotExist(err) {
		return nil, notFound(filename, directory)
	}
	if err != nil {
		return nil, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	return &storage.ObjectInfo{
		Filename:    filename,
		Directory:   directory,
		Size:        fi.Size(),
		ContentType: guessMIME(filename),
		ModifiedAt:  fi.ModTime(),
	}, nil
}

func (p *Provider) Move(ctx context.Context, filename, fromDir, toDir string) error {
	src, err := p.objectPath(filename, fromDir)
	if err != nil {
		return errx.Wrap(err)
	}
	dstDir, err := p.dirPath(toDir)
	if err != nil {
		return errx.Wrap(err)
	}

	if err := p.fs.MkdirAll(dstDir, dirMode); err != nil {
		return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}
	err = p.fs.Rename(src, filepath.Join(dstDir, filename))
	if os.IsNotExist(err) {
		return notFound(filename, fromDir)
	}
	if err != nil {
		return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}
	return nil
}

func (p *Provider) Copy(ctx context.Context, filename, fromDir, toDir string) error {
	data, err := p.Get(ctx, filename, fromDir)
	if err != nil {
		return errx.Wrap(err)
	}

	dstDir, err := p.dirPath(toDir)
	if err != nil {
		return errx.Wrap(err)
	}
	if err := p.fs.MkdirAll(dstDir, dirMode); err != nil {
		return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}
	if err := afero.WriteFile(p.fs, filepath.Join(dstDir, filename), data, fileMode); err != nil {
		return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}
	return nil
}

func (p *Provider) objectURL(dir, filename string) string {
	return p.baseURL + "/" + path.Join(dir, filename)
}

func (p *Provider) dirPath(directory string) (string, error) {
	directory = strings.Trim(directory, "/")
	if directory == "" || strings.Contains(directory, "..") {
		return "", errx.New(
			"invalid logical directory: "+directory,
			errx.WithCode(storage.CodeInvalidDirectory),
			errx.WithType(errx.T_Validation),
		)
	}
	return filepath.Join(p.root, directory), nil
}

func (p *Provider) objectPath(filename, directory string) (string, error) {
	dir, err := p.dirPath(directory)
	if err != nil {
		return "", err
	}
	if filename == "" || filename != filepath.Base(filename) {
		return "", errx.New(
			"invalid object filename: "+filename,
			errx.WithCode(storage.CodeInvalidDirectory),
			errx.WithType(errx.T_Validation),
		)
	}
	return filepath.Join(dir, filename), nil
}

func notFound(filename, directory string) error {
	return errx.New(
		"object not found: "+path.Join(directory, filename),
		errx.WithCode(storage.CodeObjectNotFound),
		errx.WithType(errx.T_NotFound),
	)
}

// guessMIME maps an extension to a MIME type for listings, where reading
// every file head would be wasteful.
func guessMIME(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
