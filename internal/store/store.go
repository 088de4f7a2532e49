// Package store is a file-backed destination store: one iCalendar file per
// item id plus a JSON index of sync metadata. It implements the storage
// collaborator consumed by the reconciler.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gcalsync/internal/ics"
	appLog "gcalsync/internal/log"
	"gcalsync/internal/model"
)

const indexFile = "index.json"

// indexEntry records per-item sync metadata alongside the payload file.
type indexEntry struct {
	ETag      string    `json:"etag,omitempty"`
	Path      string    `json:"path"`
	Kind      string    `json:"kind"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStore persists items under a single directory. All mutating calls
// are serialized; readers of the returned items must treat them as
// snapshots.
type FileStore struct {
	dir string

	mu    sync.Mutex
	index map[string]indexEntry
}

// Open prepares the store directory and loads the existing index, if any.
func Open(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("store: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	s := &FileStore{dir: dir, index: make(map[string]indexEntry)}

	data, err := os.ReadFile(filepath.Join(dir, indexFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run.
	case err != nil:
		return nil, err
	default:
		if jerr := json.Unmarshal(data, &s.index); jerr != nil {
			// A corrupt index is rebuilt over time by subsequent upserts.
			appLog.Error("store: discarding unreadable index", jerr, "dir", dir)
			s.index = make(map[string]indexEntry)
		}
	}
	return s, nil
}

// Upsert writes the item's iCalendar payload and index entry. Last write
// for an id wins.
func (s *FileStore) Upsert(ctx context.Context, item *model.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := ics.Encode(item)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := fileName(item.ID)
	if err := writeAtomic(filepath.Join(s.dir, name), body); err != nil {
		return err
	}
	s.index[item.ID] = indexEntry{
		ETag:      item.Meta.ETag,
		Path:      name,
		Kind:      string(item.Kind),
		UpdatedAt: time.Now().UTC(),
	}
	return s.saveIndexLocked()
}

// Remove deletes the item's payload and index entry. Removing an id that
// was never stored is not an error.
func (s *FileStore) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[id]
	name := entry.Path
	if name == "" {
		name = fileName(id)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if !ok {
		return nil
	}
	delete(s.index, id)
	return s.saveIndexLocked()
}

// Load reads one stored item back.
func (s *FileStore) Load(id string) (*model.Item, error) {
	s.mu.Lock()
	entry, ok := s.index[id]
	s.mu.Unlock()
	if !ok {
		return nil, fs.ErrNotExist
	}

	body, err := os.ReadFile(filepath.Join(s.dir, entry.Path))
	if err != nil {
		return nil, err
	}
	items, err := ics.Decode(body)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("store: payload holds no items")
	}
	item := items[0]
	item.Meta.ETag = entry.ETag
	return item, nil
}

// Len reports the number of indexed items.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

func (s *FileStore) saveIndexLocked() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir, indexFile), data)
}

// writeAtomic writes via a temp file in the same directory, syncs, fixes
// permissions to 0600 and renames over the target.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".gcalsync-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// fileName derives a safe payload file name from an item id.
func fileName(id string) string {
	repl := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return repl.Replace(id) + ".ics"
}
