// Package storage is the key/value persistence layer.
//
// A Storage wraps a persistent Backend (normally a FileBackend in the user's
// config directory) and transparently routes every operation to a
// process-lifetime memory map when the backend is unusable or full. Values
// are JSON encoded on write and decoded on read; a value that fails to
// decode is handed back as its verbatim text.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// DefaultMaxAge is the age past which timestamped entries are dropped by the
// quota cleanup pass.
const DefaultMaxAge = 30 * 24 * time.Hour

const probeKeyPrefix = "__mosaic_probe__:"

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger used for absorbed failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Storage) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used by the cleanup pass.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxAge sets the cleanup horizon.
func WithMaxAge(d time.Duration) Option {
	return func(s *Storage) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithPrefix scopes every key under prefix (see OriginPrefix).
func WithPrefix(prefix string) Option {
	return func(s *Storage) { s.prefix = prefix }
}

// WithNotifier registers a callback invoked once when the storage degrades
// to memory.
func WithNotifier(fn func(reason string)) Option {
	return func(s *Storage) { s.notify = fn }
}

// Storage is the fail-soft key/value store. It is meant to be used from a
// single goroutine.
type Storage struct {
	primary  Backend
	memory   *MemoryBackend
	degraded bool
	prefix   string
	maxAge   time.Duration
	now      func() time.Time
	notify   func(reason string)
	logger   *log.Logger
}

// New probes primary and returns a Storage. A nil or failing primary makes
// the storage memory-only from the start.
func New(primary Backend, opts ...Option) *Storage {
	s := &Storage{
		primary: primary,
		memory:  NewMemoryBackend(),
		maxAge:  DefaultMaxAge,
		now:     time.Now,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.probe(); err != nil {
		s.degrade("persistent storage unavailable", err)
	}
	return s
}

// OriginPrefix derives a key prefix from the location of the document a
// layout belongs to, so two collections never share state.
func OriginPrefix(location string) string {
	sum := sha256.Sum256([]byte(location))
	return "origin:" + hex.EncodeToString(sum[:6]) + ":"
}

// Persistent reports whether values currently survive a restart.
func (s *Storage) Persistent() bool { return !s.degraded }

func (s *Storage) probe() error {
	if s.primary == nil {
		return ErrUnavailable
	}
	key := probeKeyPrefix + uuid.NewString()
	if err := s.primary.Set(key, "1"); err != nil {
		return err
	}
	return s.primary.Remove(key)
}

func (s *Storage) backend() Backend {
	if s.degraded {
		return s.memory
	}
	return s.primary
}

func (s *Storage) key(k string) string { return s.prefix + k }

// Get returns the decoded value stored under key, the raw text when it does
// not decode, or def when the key is missing.
func (s *Storage) Get(key string, def any) any {
	raw, ok := s.raw(key)
	if !ok {
		return def
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// Decode unmarshals the value under key into dst. It reports false when the
// key is missing or the value does not decode.
func (s *Storage) Decode(key string, dst any) bool {
	raw, ok := s.raw(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("stored value does not decode", "key", key, "err", err)
		return false
	}
	return true
}

func (s *Storage) raw(key string) (string, bool) {
	raw, ok, err := s.backend().Get(s.key(key))
	if err != nil {
		s.logger.Warn("storage read failed", "key", key, "err", err)
		return "", false
	}
	return raw, ok
}

// Has reports whether key holds a value.
func (s *Storage) Has(key string) bool {
	_, ok := s.raw(key)
	return ok
}

// Set stores value under key. A full backend triggers a cleanup pass and one
// retry before the storage degrades to memory. It reports false only when
// value cannot be encoded.
func (s *Storage) Set(key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("storage value does not encode", "key", key, "err", err)
		return false
	}
	k := s.key(key)
	if s.degraded {
		_ = s.memory.Set(k, string(data))
		return true
	}

	err = s.primary.Set(k, string(data))
	if err == nil {
		return true
	}
	if errors.Is(err, ErrQuotaExceeded) {
		removed := s.Cleanup()
		s.logger.Warn("storage quota exceeded", "key", key, "removed", removed)
		if err = s.primary.Set(k, string(data)); err == nil {
			return true
		}
	}
	s.degrade("persistent storage write failed", err)
	_ = s.memory.Set(k, string(data))
	return true
}

// Remove deletes key.
func (s *Storage) Remove(key string) {
	if err := s.backend().Remove(s.key(key)); err != nil {
		s.logger.Warn("storage remove failed", "key", key, "err", err)
	}
}

// Clear removes every key in this storage's scope.
func (s *Storage) Clear() {
	b := s.backend()
	if s.prefix == "" {
		if err := b.Clear(); err != nil {
			s.logger.Warn("storage clear failed", "err", err)
		}
		return
	}
	keys, err := b.Keys()
	if err != nil {
		s.logger.Warn("storage clear failed", "err", err)
		return
	}
	for _, k := range keys {
		if strings.HasPrefix(k, s.prefix) {
			_ = b.Remove(k)
		}
	}
}

// degrade switches to memory for the rest of the process, carrying over what
// the primary still holds for this scope.
func (s *Storage) degrade(reason string, err error) {
	if s.degraded {
		return
	}
	s.logger.Warn("falling back to in-memory storage", "reason", reason, "err", err)
	if s.primary != nil {
		if keys, kerr := s.primary.Keys(); kerr == nil {
			for _, k := range keys {
				if !strings.HasPrefix(k, s.prefix) || strings.HasPrefix(k, probeKeyPrefix) {
					continue
				}
				if v, ok, gerr := s.primary.Get(k); gerr == nil && ok {
					_ = s.memory.Set(k, v)
				}
			}
		}
	}
	s.degraded = true
	if s.notify != nil {
		s.notify(reason)
	}
}
