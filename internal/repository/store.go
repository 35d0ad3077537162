package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/etenda/etenda/internal/fileutil"
)

// Store is a second-level cache shared between processes. Values are
// serialized views; keys already carry the network id.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// cacheFilePerm is the permission mode for the view cache file.
const cacheFilePerm = 0o600

// ErrCorruptCache indicates the cache file is malformed JSON.
var ErrCorruptCache = errors.New("cache file is corrupted")

type fileEntry struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type fileContents struct {
	Entries map[string]fileEntry `json:"entries"`
}

// FileStore keeps views in one JSON file so separate CLI invocations share
// reads. It is safe for concurrent use within a process.
type FileStore struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the cache file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) load() (*fileContents, error) {
	c := &fileContents{Entries: make(map[string]fileEntry)}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		corrupt := fmt.Sprintf("%s.corrupt.%d", s.path, s.now().UTC().UnixNano())
		if renameErr := os.Rename(s.path, corrupt); renameErr != nil {
			return nil, fmt.Errorf("%w: %w (also failed to move file: %w)", ErrCorruptCache, err, renameErr)
		}
		return nil, fmt.Errorf("%w: %w (moved to %s)", ErrCorruptCache, err, corrupt)
	}
	if c.Entries == nil {
		c.Entries = make(map[string]fileEntry)
	}
	return c, nil
}

func (s *FileStore) save(c *fileContents) error {
	now := s.now()
	for k, e := range c.Entries {
		if !now.Before(e.ExpiresAt) {
			delete(c.Entries, k)
		}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	return fileutil.WriteAtomic(s.path, data, cacheFilePerm)
}

// Get returns the unexpired value for key.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load()
	if err != nil {
		return nil, false, err
	}
	e, ok := c.Entries[key]
	if !ok || !s.now().Before(e.ExpiresAt) {
		return nil, false, nil
	}
	return e.Data, true, nil
}

// Set stores data under key for ttl. Expired entries are pruned.
func (s *FileStore) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	if !json.Valid(data) {
		return fmt.Errorf("cache value for %s is not JSON", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load()
	if err != nil && !errors.Is(err, ErrCorruptCache) {
		return err
	}
	if c == nil {
		c = &fileContents{Entries: make(map[string]fileEntry)}
	}
	c.Entries[key] = fileEntry{Data: data, ExpiresAt: s.now().Add(ttl)}
	return s.save(c)
}

// Delete removes keys.
func (s *FileStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := c.Entries[k]; ok {
			delete(c.Entries, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(c)
}

// Clear removes the cache file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}
