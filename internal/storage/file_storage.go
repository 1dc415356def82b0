// Path: internal/storage/file_storage.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gate-scraper/internal/cache"
	"gate-scraper/internal/domain"
)

const entryExt = ".json"

// FileStore keeps one JSON document per cache key in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(s.dir, key+entryExt), nil
}

// Get implements the cache.Backend interface.
func (s *FileStore) Get(_ context.Context, key string) (*domain.CacheEntry, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	return readEntry(path)
}

func readEntry(path string) (*domain.CacheEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return &entry, nil
}

// Put implements the cache.Backend interface. The entry is written to a
// temporary file and renamed into place so readers never see a partial write.
func (s *FileStore) Put(_ context.Context, entry domain.CacheEntry) error {
	path, err := s.path(entry.Key)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

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
	return os.Rename(tmp.Name(), path)
}

// Delete implements the cache.Backend interface.
func (s *FileStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear implements the cache.Backend interface.
func (s *FileStore) Clear(_ context.Context) error {
	paths, err := s.entries()
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Latest implements the cache.Backend interface.
func (s *FileStore) Latest(_ context.Context) (*domain.CacheEntry, error) {
	paths, err := s.entries()
	if err != nil {
		return nil, err
	}

	var latest *domain.CacheEntry
	for _, path := range paths {
		entry, err := readEntry(path)
		if err != nil {
			if errors.Is(err, cache.ErrNotFound) {
				continue // removed concurrently
			}
			return nil, err
		}
		if latest == nil || entry.StoredAt.After(latest.StoredAt) {
			latest = entry
		}
	}
	if latest == nil {
		return nil, cache.ErrNotFound
	}
	return latest, nil
}

// Count implements the cache.Backend interface.
func (s *FileStore) Count(_ context.Context) (int64, error) {
	paths, err := s.entries()
	if err != nil {
		return 0, err
	}
	return int64(len(paths)), nil
}

func (s *FileStore) entries() ([]string, error) {
	return filepath.Glob(filepath.Join(s.dir, "*"+entryExt))
}
