// Package objstore implements storage.Provider on any S3-compatible object
// store through the MinIO client. The miniowr, s3wr and spaceswr packages
// are thin constructors over this core with backend-appropriate defaults.
//
// Logical directories map to key prefixes; the soft-delete trash mirror
// lives under the ".trash/" prefix with JSON sidecar objects, matching the
// local provider's layout so descriptors stay portable.
package objstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/code19m/errx"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/deedvault/fileguard/storage"
)

const (
	trashPrefix   = ".trash/"
	trashedSuffix = ".trashed"
	sidecarSuffix = ".meta.json"

	codeNoSuchKey = "NoSuchKey"
	codeNotFound  = "NotFound"

	bucketEnsureAttempts = 3
)

// Config is the backend-agnostic S3-API configuration. The wrapper packages
// fill in endpoint and addressing defaults.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool

	// BaseURL overrides the public URL base. When empty, URLs are formed
	// from the endpoint and bucket.
	BaseURL string
}

// Provider implements storage.Provider over an S3-compatible API.
type Provider struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// New connects to the store and ensures the bucket exists.
// Bucket creation is retried: object stores routinely throw transient
// errors right after credential rotation or endpoint failover.
func New(cfg Config) (*Provider, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	err = retry.Do(
		func() error { return ensureBucket(client, cfg) },
		retry.Attempts(bucketEnsureAttempts),
		retry.Delay(time.Second),
	)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Provider{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func ensureBucket(client *minio.Client, cfg Config) error {
	exists, err := client.BucketExists(context.Background(), cfg.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.MakeBucket(context.Background(), cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region})
}

func (p *Provider) Put(ctx context.Context, data []byte, meta storage.PutMeta) (*storage.Object, error) {
	dir := storage.ResolveDir(meta)
	filename := storage.GenerateStorageName(meta.OriginalName, meta.ContentHash)
	key := path.Join(dir, filename)

	_, err := p.client.PutObject(ctx, p.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: meta.ContentType})
	if err != nil {
		return nil, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	return &storage.Object{
		Filename:  filename,
		Directory: dir,
		URL:       p.baseURL + "/" + key,
		Size:      int64(len(data)),
	}, nil
}

func (p *Provider) Get(ctx context.Context, filename, directory string) ([]byte, error) {
	key := path.Join(directory, filename)

	obj, err := p.client.GetObject(ctx, p.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, p.wrapErr(err, key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, p.wrapErr(err, key)
	}
	return data, nil
}

func (p *Provider) Delete(ctx context.Context, filename, directory string, opts storage.DeleteOptions) error {
	key := path.Join(directory, filename)

	_, err := p.client.StatObject(ctx, p.bucket, key, minio.StatObjectOptions{})
	absent := isNoSuchKey(err)
	if err != nil && !absent {
		return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	if opts.Hard {
		if absent {
			return notFound(key)
		}
		err := p.client.RemoveObject(ctx, p.bucket, key, minio.RemoveObjectOptions{})
		return errx.Wrap(err)
	}

	if absent {
		return nil // accepted terminal state for soft delete
	}
	return p.trash(ctx, filename, directory, key)
}

func (p *Provider) trash(ctx context.Context, filename, directory, key string) error {
	now := time.Now()
	trashKey := fmt.Sprintf("%s%s/%s.%d%s", trashPrefix, directory, filename, now.Unix(), trashedSuffix)

	_, err := p.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: p.bucket, Object: trashKey},
		minio.CopySrcOptions{Bucket: p.bucket, Object: key},
	)
	if err != nil {
		return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	sidecar, err := json.Marshal(map[string]any{
		"original_directory": directory,
		"original_filename":  filename,
		"deleted_at":         now,
	})
	if err != nil {
		return errx.Wrap(err)
	}
	_, err = p.client.PutObject(ctx, p.bucket, trashKey+sidecarSuffix,
		bytes.NewReader(sidecar), int64(len(sidecar)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}

	err = p.client.RemoveObject(ctx, p.bucket, key, minio.RemoveObjectOptions{})
	return errx.Wrap(err)
}

func (p *Provider) List(ctx context.Context, directory string) ([]storage.ObjectInfo, error) {
	prefix := strings.Trim(directory, "/") + "/"

	var infos []storage.ObjectInfo
	for obj := range p.client.ListObjects(ctx, p.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, errx.Wrap(obj.Err, errx.WithCode(storage.CodeStorageIO))
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		infos = append(infos, storage.ObjectInfo{
			Filename:    path.Base(obj.Key),
			Directory:   directory,
			Size:        obj.Size,
			ContentType: obj.ContentType,
			ModifiedAt:  obj.LastModified,
		})
	}
	return infos, nil
}

func (p *Provider) Exists(ctx context.Context, filename, directory string) (bool, error) {
	key := path.Join(directory, filename)
	_, err := p.client.StatObject(ctx, p.bucket, key, minio.StatObjectOptions{})
	if isNoSuchKey(err) {
		return false, nil
	}
	if err != nil {
		return false, errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
	}
	return true, nil
}

func (p *Provider) Stat(ctx context.Context, filename, directory string) (*storage.ObjectInfo, error) {
	key := path.Join(directory, filename)
	stat, err := p.client.StatObject(ctx, p.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, p.wrapErr(err, key)
	}
	return &storage.ObjectInfo{
		Filename:    filename,
		Directory:   directory,
		Size:        stat.Size,
		ContentType: stat.ContentType,
		ModifiedAt:  stat.LastModified,
	}, nil
}

func (p *Provider) Move(ctx context.Context, filename, fromDir, toDir string) error {
	if err := p.Copy(ctx, filename, fromDir, toDir); err != nil {
		return errx.Wrap(err)
	}
	err := p.client.RemoveObject(ctx, p.bucket, path.Join(fromDir, filename), minio.RemoveObjectOptions{})
	return errx.Wrap(err)
}

func (p *Provider) Copy(ctx context.Context, filename, fromDir, toDir string) error {
	_, err := p.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: p.bucket, Object: path.Join(toDir, filename)},
		minio.CopySrcOptions{Bucket: p.bucket, Object: path.Join(fromDir, filename)},
	)
	if err != nil {
		return p.wrapErr(err, path.Join(fromDir, filename))
	}
	return nil
}

func (p *Provider) Stats(ctx context.Context) (*storage.Stats, error) {
	stats := &storage.Stats{Directories: map[string]storage.DirStats{}}

	for _, dir := range storage.KnownDirs {
		infos, err := p.List(ctx, dir)
		if err != nil {
			return nil, errx.Wrap(err)
		}
		var ds storage.DirStats
		for _, info := range infos {
			ds.Objects++
			ds.Bytes += info.Size
		}
		stats.Directories[dir] = ds
		stats.TotalObjects += ds.Objects
		stats.TotalBytes += ds.Bytes
	}
	return stats, nil
}

func (p *Provider) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	purged := 0

	for _, prefix := range []string{storage.DirTemp + "/", trashPrefix} {
		opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
		for obj := range p.client.ListObjects(ctx, p.bucket, opts) {
			if obj.Err != nil {
				return purged, errx.Wrap(obj.Err, errx.WithCode(storage.CodeStorageIO))
			}
			if strings.HasSuffix(obj.Key, sidecarSuffix) || obj.LastModified.After(cutoff) {
				continue
			}
			if err := p.client.RemoveObject(ctx, p.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
				continue
			}
			purged++
			_ = p.client.RemoveObject(ctx, p.bucket, obj.Key+sidecarSuffix, minio.RemoveObjectOptions{})
		}
	}
	return purged, nil
}

func (p *Provider) wrapErr(err error, key string) error {
	if isNoSuchKey(err) {
		return notFound(key)
	}
	return errx.Wrap(err, errx.WithCode(storage.CodeStorageIO))
}

func isNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	code := minio.ToErrorResponse(err).Code
	return code == codeNoSuchKey || code == codeNotFound
}

func notFound(key string) error {
	return errx.New(
		"object not found: "+key,
		errx.WithCode(storage.CodeObjectNotFound),
		errx.WithType(errx.T_NotFound),
	)
}
