package localwr_test

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code19m/errx"

	"github.com/deedvault/fileguard/hasher"
	"github.com/deedvault/fileguard/storage"
	"github.com/deedvault/fileguard/storage/localwr"
)

func newProvider(t *testing.T) (*localwr.Provider, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	p, err := localwr.NewWithFs(localwr.Config{RootDir: "/uploads", BaseURL: "/files"}, fs)
	require.NoError(t, err)
	return p, fs
}

func putFixture(t *testing.T, p *localwr.Provider, data []byte) *storage.Object {
	t.Helper()
	obj, err := p.Put(context.Background(), data, storage.PutMeta{
		OriginalName: "deed-scan.pdf",
		ContentType:  "application/pdf",
		ContentHash:  hasher.MustSum(hasher.SHA256, data),
	})
	require.NoError(t, err)
	return obj
}

func TestPutGet_RoundTrip(t *testing.T) {
	p, _ := newProvider(t)
	data := []byte("%PDF-1.7 fake deed content %%EOF")

	obj := putFixture(t, p, data)
	assert.Equal(t, storage.DirDocuments, obj.Directory)
	assert.Equal(t, int64(len(data)), obj.Size)
	assert.Contains(t, obj.URL, "/files/documents/")
	assert.NotContains(t, obj.Filename, "deed-scan.pdf") // name is regenerated

	got, err := p.Get(context.Background(), obj.Filename, obj.Directory)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Byte-identical content hashes identically after the round trip.
	assert.Equal(t,
		hasher.MustSum(hasher.SHA256, data),
		hasher.MustSum(hasher.SHA256, got),
	)
}

func TestGet_NotFound(t *testing.T) {
	p, _ := newProvider(t)

	_, err := p.Get(context.Background(), "missing.pdf", storage.DirDocuments)
	require.Error(t, err)
	assert.Equal(t, storage.CodeObjectNotFound, errx.AsErrorX(err).Code())
}

func TestDelete_SoftIsIdempotent(t *testing.T) {
	p, fs := newProvider(t)
	obj := putFixture(t, p, []byte("soft delete me"))

	require.NoError(t, p.Delete(context.Background(), obj.Filename, obj.Directory, storage.DeleteOptions{}))

	// Object is gone from the live tree...
	exists, err := p.Exists(context.Background(), obj.Filename, obj.Directory)
	require.NoError(t, err)
	assert.False(t, exists)

	// ...but preserved under the trash mirror with a sidecar.
	matches, err := afero.Glob(fs, "/uploads/.trash/documents/*.trashed")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	sidecars, err := afero.Glob(fs, "/uploads/.trash/documents/*.meta.json")
	require.NoError(t, err)
	assert.Len(t, sidecars, 1)

	// Second soft delete of the now-absent object is not an error.
	assert.NoError(t, p.Delete(context.Background(), obj.Filename, obj.Directory, storage.DeleteOptions{}))
}

func TestDelete_HardOnAbsentIsNotFound(t *testing.T) {
	p, _ := newProvider(t)
	obj := putFixture(t, p, []byte("hard delete me"))

	require.NoError(t, p.Delete(context.Background(), obj.Filename, obj.Directory, storage.DeleteOptions{Hard: true}))

	err := p.Delete(context.Background(), obj.Filename, obj.Directory, storage.DeleteOptions{Hard: true})
	require.Error(t, err)
	assert.Equal(t, storage.CodeObjectNotFound, errx.AsErrorX(err).Code())
}

func TestMoveAndCopy(t *testing.T) {
	p, _ := newProvider(t)
	obj := putFixture(t, p, []byte("movable"))

	require.NoError(t, p.Move(context.Background(), obj.Filename, obj.Directory, storage.DirGeneral))

	exists, err := p.Exists(context.Background(), obj.Filename, obj.Directory)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, p.Copy(context.Background(), obj.Filename, storage.DirGeneral, storage.DirProperties))

	for _, dir := range []string{storage.DirGeneral, storage.DirProperties} {
		exists, err := p.Exists(context.Background(), obj.Filename, dir)
		require.NoError(t, err)
		assert.True(t, exists, dir)
	}
}

func TestListAndStats(t *testing.T) {
	p, _ := newProvider(t)
	putFixture(t, p, []byte("first document"))
	putFixture(t, p, []byte("second, longer document"))

	infos, err := p.List(context.Background(), storage.DirDocuments)
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	stats, err := p.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalObjects)
	assert.Equal(t, int64(2), stats.Directories[storage.DirDocuments].Objects)
	assert.Positive(t, stats.TotalBytes)
}

func TestCleanup_PurgesOldTrash(t *testing.T) {
	p, fs := newProvider(t)
	obj := putFixture(t, p, []byte("to be trashed"))
	require.NoError(t, p.Delete(context.Background(), obj.Filename, obj.Directory, storage.DeleteOptions{}))

	// Backdate the trashed object past the retention window.
	matches, err := afero.Glob(fs, "/uploads/.trash/documents/*.trashed")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	old := time.Now().Add(-31 * 24 * time.Hour)
	require.NoError(t, fs.Chtimes(matches[0], old, old))

	purged, err := p.Cleanup(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	remaining, err := afero.Glob(fs, "/uploads/.trash/documents/*")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestCleanup_KeepsFreshTrash(t *testing.T) {
	p, _ := newProvider(t)
	obj := putFixture(t, p, []byte("fresh trash"))
	require.NoError(t, p.Delete(context.Background(), obj.Filename, obj.Directory, storage.DeleteOptions{}))

	purged, err := p.Cleanup(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestRestore(t *testing.T) {
	p, fs := newProvider(t)
	obj := putFixture(t, p, []byte("restore me"))
	require.NoError(t, p.Delete(context.Background(), obj.Filename, obj.Directory, storage.DeleteOptions{}))

	matches, err := afero.Glob(fs, "/uploads/.trash/documents/*.trashed")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	trashName := matches[0][len("/uploads/.trash/documents/"):]
	require.NoError(t, p.Restore(trashName, storage.DirDocuments))

	got, err := p.Get(context.Background(), obj.Filename, obj.Directory)
	require.NoError(t, err)
	assert.Equal(t, []byte("restore me"), got)
}

func TestInvalidDirectoryRejected(t *testing.T) {
	p, _ := newProvider(t)

	_, err := p.Get(context.Background(), "x.pdf", "../outside")
	require.Error(t, err)
	assert.Equal(t, storage.CodeInvalidDirectory, errx.AsErrorX(err).Code())
}
