// Package store persists the whole application state as one JSON document.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/matheus3301/groupweaver/internal/apperror"
	"github.com/matheus3301/groupweaver/internal/model"
)

// FileStore reads and writes the storage document at a fixed path.
// Mutations go through whole-document load -> modify -> save cycles;
// Update serializes those cycles within the process.
type FileStore struct {
	path string
	mu   sync.Mutex

	digestMu sync.RWMutex
	digest   [sha256.Size]byte
}

// Open returns a store for path, creating the file with the empty document if absent.
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if err := s.EnsureExists(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the storage file path.
func (s *FileStore) Path() string {
	return s.path
}

// EnsureExists creates the storage file with the empty document if it does not
// exist. An existing file is never overwritten.
func (s *FileStore) EnsureExists() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return unavailable("create storage dir", err)
	}
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return unavailable("stat storage file", err)
	}
	return s.write(model.EmptyDocument())
}

// Load reads the current document, seeding the file first if needed.
func (s *FileStore) Load() (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save overwrites the whole document.
func (s *FileStore) Save(doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.EnsureExists(); err != nil {
		return err
	}
	return s.write(doc)
}

// Update loads the document, applies fn and saves the result while holding
// the store lock. If fn returns an error nothing is written.
func (s *FileStore) Update(fn func(doc *model.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(doc)
}

// Reset replaces the document with the empty one.
func (s *FileStore) Reset() error {
	return s.Save(model.EmptyDocument())
}

// Lists returns the stored broadcast lists.
func (s *FileStore) Lists() ([]model.BroadcastList, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return doc.Lists, nil
}

// IsOwnContent reports whether data matches the bytes this store last wrote.
// Reads never change the digest, so a foreign edit stays foreign until the
// store itself writes again.
func (s *FileStore) IsOwnContent(data []byte) bool {
	sum := sha256.Sum256(data)
	s.digestMu.RLock()
	defer s.digestMu.RUnlock()
	return sum == s.digest
}

func (s *FileStore) load() (*model.Document, error) {
	if err := s.EnsureExists(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, unavailable("read storage file", err)
	}

	doc := model.EmptyDocument()
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, unavailable("decode storage file", err)
		}
	}
	doc.Normalize()
	return doc, nil
}

// write marshals doc to a temp file next to the target and renames it into place.
func (s *FileStore) write(doc *model.Document) error {
	doc.Normalize()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return unavailable("encode storage document", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".storage-*.json")
	if err != nil {
		return unavailable("create temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return unavailable("write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return unavailable("close temp file", err)
	}
	// Record the digest before the rename so the watcher never sees our own
	// write as foreign.
	s.remember(data)
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return unavailable("replace storage file", err)
	}
	return nil
}

func (s *FileStore) remember(data []byte) {
	sum := sha256.Sum256(data)
	s.digestMu.Lock()
	s.digest = sum
	s.digestMu.Unlock()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperror.ErrStorageUnavailable, op, err)
}
