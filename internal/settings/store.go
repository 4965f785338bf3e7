// Package settings persists client configuration as a flat JSON object of
// string keys and string values.
//
// The file is shared across process instances without locking: every write is
// a full read-modify-write and the last writer wins. Treat settings as
// low-frequency configuration, never as a coordination primitive.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrNotFound indicates the requested key is absent from the store.
var ErrNotFound = errors.New("key not found")

// ErrCorrupt indicates the backing file does not hold a valid JSON object.
var ErrCorrupt = errors.New("settings file corrupt")

// Store is a key/value settings store backed by one JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open prepares the store at path, creating the containing directory and an
// empty object file when absent.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("settings: create directory for %s: %w", path, err)
	}

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("settings: stat %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
			return nil, fmt.Errorf("settings: initialise %s: %w", path, err)
		}
	}

	return &Store{path: path}, nil
}

// Get returns the value stored under key. Absent keys report ErrNotFound,
// never an empty string.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}

	value, ok := values[key]
	if !ok {
		return "", fmt.Errorf("settings: get %q: %w", key, ErrNotFound)
	}
	return value, nil
}

// Set stores value under key, rewriting the whole persisted object.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}

	values[key] = value
	return s.save(values)
}

// Remove deletes key from the store. Removing an absent key is a no-op.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

// Keys returns all stored keys in sorted order.
func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("settings: read %s: %w", s.path, err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("settings: parse %s (%v): %w", s.path, err, ErrCorrupt)
	}
	return values, nil
}

func (s *Store) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("settings: write %s: %w", s.path, err)
	}
	return nil
}
