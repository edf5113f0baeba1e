package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Sentinel errors returned by backends.
var (
	// ErrQuotaExceeded is returned when a write would grow the store past its quota.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	// ErrUnavailable is returned by backends that cannot be used at all.
	ErrUnavailable = errors.New("storage: unavailable")
)

// Backend is a raw string key/value store.
type Backend interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Keys() ([]string, error)
	Clear() error
}

// MemoryBackend keeps values for the lifetime of the process.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

func (m *MemoryBackend) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryBackend) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryBackend) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryBackend) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
	return nil
}

var _ Backend = (*MemoryBackend)(nil)

// FileBackend stores each key as a small JSON file in a directory.
// Quota caps the total size of stored values in bytes; zero disables it.
type FileBackend struct {
	dir   string
	quota int64
}

// fileEntry is the on-disk envelope; the key is kept so Keys can list it.
type fileEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewFileBackend creates dir if needed.
func NewFileBackend(dir string, quota int64) (*FileBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("file backend: %w: empty directory", ErrUnavailable)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("file backend: %w", err)
	}
	return &FileBackend{dir: dir, quota: quota}, nil
}

// Dir returns the backing directory.
func (f *FileBackend) Dir() string { return f.dir }

func (f *FileBackend) Get(key string) (string, bool, error) {
	e, err := f.read(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (f *FileBackend) Set(key, value string) error {
	path := f.path(key)
	if f.quota > 0 {
		used, err := f.usage()
		if err != nil {
			return err
		}
		if old, err := f.read(path); err == nil {
			used -= int64(len(old.Value))
		}
		if used+int64(len(value)) > f.quota {
			return ErrQuotaExceeded
		}
	}
	data, err := json.Marshal(fileEntry{Key: key, Value: value})
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (f *FileBackend) Remove(key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *FileBackend) Keys() ([]string, error) {
	entries, err := f.entries()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *FileBackend) Clear() error {
	files, err := f.files()
	if err != nil {
		return err
	}
	for _, p := range files {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (f *FileBackend) usage() (int64, error) {
	entries, err := f.entries()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += int64(len(e.Value))
	}
	return total, nil
}

func (f *FileBackend) entries() ([]fileEntry, error) {
	files, err := f.files()
	if err != nil {
		return nil, err
	}
	out := make([]fileEntry, 0, len(files))
	for _, p := range files {
		e, err := f.read(p)
		if err != nil {
			// Unreadable envelope - ignore it.
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *FileBackend) files() ([]string, error) {
	dirEntries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		out = append(out, filepath.Join(f.dir, de.Name()))
	}
	return out, nil
}

func (f *FileBackend) read(path string) (fileEntry, error) {
	var e fileEntry
	data, err := os.ReadFile(path)
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("file backend: decode %s: %w", filepath.Base(path), err)
	}
	return e, nil
}

// path maps a key to a file name that is safe on every filesystem.
func (f *FileBackend) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:16])+".json")
}

var _ Backend = (*FileBackend)(nil)
