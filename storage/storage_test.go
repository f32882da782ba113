package storage_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deedvault/fileguard/storage"
)

func TestResolveDir(t *testing.T) {
	tests := []struct {
		name string
		meta storage.PutMeta
		want string
	}{
		{
			name: "explicit directory wins",
			meta: storage.PutMeta{Directory: "properties", ContentType: "image/jpeg"},
			want: "properties",
		},
		{
			name: "image mime category",
			meta: storage.PutMeta{ContentType: "image/png"},
			want: "images",
		},
		{
			name: "pdf mime category",
			meta: storage.PutMeta{ContentType: "application/pdf"},
			want: "documents",
		},
		{
			name: "entity type fallback",
			meta: storage.PutMeta{ContentType: "application/octet-stream", RelatedEntityType: "property"},
			want: "properties",
		},
		{
			name: "default bucket",
			meta: storage.PutMeta{ContentType: "application/octet-stream"},
			want: "general",
		},
		{
			name: "traversal in explicit directory is discarded",
			meta: storage.PutMeta{Directory: "../secrets", ContentType: "image/jpeg"},
			want: "images",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.ResolveDir(tt.meta))
		})
	}
}

func TestResolveDirFromURL(t *testing.T) {
	assert.Equal(t, "documents",
		storage.ResolveDirFromURL("https://cdn.deedvault.com/uploads/documents/deed_ab12cd34_99.pdf"))
	assert.Equal(t, "", storage.ResolveDirFromURL("not-a-url-at-all"))
	assert.Equal(t, "", storage.ResolveDirFromURL("https://cdn.deedvault.com/file.pdf"))
}

func TestGenerateStorageName(t *testing.T) {
	name := storage.GenerateStorageName("../..//Villa Front (1).JPG", "3a91bc04deadbeef")

	assert.True(t, strings.HasSuffix(name, ".jpg"))
	assert.Contains(t, name, "3a91bc04")
	assert.NotContains(t, name, "..")
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, " ")

	// Collision resistance: same inputs still differ by timestamp.
	other := storage.GenerateStorageName("../..//Villa Front (1).JPG", "3a91bc04deadbeef")
	assert.NotEqual(t, name, other)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := storage.Open("definitely-not-registered")
	assert.Error(t, err)
}
