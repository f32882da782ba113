// Package quarantine isolates rejected uploads for forensic review.
//
// Rejected bytes are written into a dedicated directory that no storage
// provider ever serves from, and every confinement appends one record to an
// append-only JSONL log. Domain objects never reference quarantined files.
package quarantine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/code19m/errx"
	"github.com/spf13/afero"
)

const (
	logFileName = "quarantine.log"

	dirMode  = os.FileMode(0o750)
	fileMode = os.FileMode(0o640)
)

// Record is one entry in the quarantine log.
type Record struct {
	OriginalName string    `json:"original_name"`
	Reason       string    `json:"reason"`
	DeclaredSize int64     `json:"declared_size"`
	DeclaredMIME string    `json:"declared_mime"`
	StoredPath   string    `json:"stored_path"`
	ConfinedAt   time.Time `json:"confined_at"`
}

// Store writes rejected files and their records under a quarantine root.
// Safe for concurrent use; log appends are serialized by a mutex.
type Store struct {
	fs   afero.Fs
	root string

	logMu sync.Mutex
}

// New creates a quarantine store on the OS filesystem.
func New(root string) (*Store, error) {
	return NewWithFs(root, afero.NewOsFs())
}

// NewWithFs creates a quarantine store on an explicit filesystem.
func NewWithFs(root string, fs afero.Fs) (*Store, error) {
	if err := fs.MkdirAll(root, dirMode); err != nil {
		return nil, errx.Wrap(err)
	}
	return &Store{fs: fs, root: root}, nil
}

// Confine preserves the rejected bytes and appends exactly one Record.
// The stored name is regenerated: quarantined content must never land under
// an attacker-controlled path.
func (s *Store) Confine(ctx context.Context, originalName, declaredMIME string, declaredSize int64, data []byte, reason string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, errx.Wrap(err)
	}
	if reason == "" {
		return nil, errx.New("quarantine confinement requires a non-empty reason")
	}

	now := time.Now()
	storedName := fmt.Sprintf("%d_%s", now.UnixNano(), sanitizeName(originalName))
	storedPath := filepath.Join(s.root, storedName)

	if err := afero.WriteFile(s.fs, storedPath, data, fileMode); err != nil {
		return nil, errx.Wrap(err)
	}

	rec := &Record{
		OriginalName: originalName,
		Reason:       reason,
		DeclaredSize: declaredSize,
		DeclaredMIME: declaredMIME,
		StoredPath:   storedPath,
		ConfinedAt:   now,
	}
	if err := s.appendRecord(rec); err != nil {
		return nil, errx.Wrap(err)
	}
	return rec, nil
}

// Records reads the full quarantine log back, oldest first.
func (s *Store) Records(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, errx.Wrap(err)
	}

	f, err := s.fs.Open(filepath.Join(s.root, logFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errx.Wrap(err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// A torn write must not make the whole log unreadable.
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errx.Wrap(err)
	}
	return records, nil
}

func (s *Store) appendRecord(rec *Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return errx.Wrap(err)
	}
	line = append(line, '\n')

	s.logMu.Lock()
	defer s.logMu.Unlock()

	f, err := s.fs.OpenFile(filepath.Join(s.root, logFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode)
	if err != nil {
		return errx.Wrap(err)
	}
	defer f.Close()

	_, err = f.Write(line)
	return errx.Wrap(err)
}

// sanitizeName strips anything that could confuse the quarantine directory
// while keeping the name recognizable for review.
func sanitizeName(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := b.String()
	if out == "" || out == "." {
		out = "unnamed"
	}
	return out
}
