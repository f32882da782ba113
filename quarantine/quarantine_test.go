package quarantine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deedvault/fileguard/quarantine"
)

func newStore(t *testing.T) (*quarantine.Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := quarantine.NewWithFs("/uploads/quarantine", fs)
	require.NoError(t, err)
	return s, fs
}

func TestConfine(t *testing.T) {
	s, fs := newStore(t)

	rec, err := s.Confine(context.Background(),
		"../evil.pdf.exe", "application/pdf", 1234,
		[]byte("MZ payload"), "disguised executable")
	require.NoError(t, err)

	assert.Equal(t, "../evil.pdf.exe", rec.OriginalName)
	assert.Equal(t, "disguised executable", rec.Reason)
	assert.NotContains(t, rec.StoredPath, "..")

	// Bytes preserved for forensics.
	data, err := afero.ReadFile(fs, rec.StoredPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("MZ payload"), data)

	// Exactly one record in the log.
	records, err := s.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.Reason, records[0].Reason)
}

func TestConfine_EmptyReasonRejected(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.Confine(context.Background(), "x.txt", "text/plain", 1, []byte("x"), "")
	assert.Error(t, err)
}

func TestRecords_EmptyLog(t *testing.T) {
	s, _ := newStore(t)

	records, err := s.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestConfine_ConcurrentAppends(t *testing.T) {
	s, _ := newStore(t)

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := s.Confine(context.Background(), "bad.txt", "text/plain", 3, []byte("bad"), "test reason")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := s.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, n)
}
