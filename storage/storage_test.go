package storage

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func quietLogger() *log.Logger { return log.New(io.Discard) }

// brokenBackend fails every call.
type brokenBackend struct{}

func (brokenBackend) Get(string) (string, bool, error) { return "", false, ErrUnavailable }
func (brokenBackend) Set(string, string) error         { return ErrUnavailable }
func (brokenBackend) Remove(string) error              { return ErrUnavailable }
func (brokenBackend) Keys() ([]string, error)          { return nil, ErrUnavailable }
func (brokenBackend) Clear() error                     { return ErrUnavailable }

func TestFileBackendRoundTrip(t *testing.T) {
	fb, err := NewFileBackend(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	if err := fb.Set("a/b:c", "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := fb.Get("a/b:c")
	if err != nil || !ok || v != "value" {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}
	keys, _ := fb.Keys()
	if len(keys) != 1 || keys[0] != "a/b:c" {
		t.Fatalf("Keys = %v", keys)
	}
	if err := fb.Remove("a/b:c"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := fb.Get("a/b:c"); ok {
		t.Fatalf("expected key to be gone")
	}
	if err := fb.Remove("missing"); err != nil {
		t.Fatalf("removing a missing key should not fail: %v", err)
	}
}

func TestFileBackendQuota(t *testing.T) {
	fb, err := NewFileBackend(t.TempDir(), 10)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	if err := fb.Set("a", "12345"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := fb.Set("b", "123456"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	// Overwriting a key only counts the new value.
	if err := fb.Set("a", "1234567890"); err != nil {
		t.Fatalf("overwrite within quota: %v", err)
	}
}

func TestStorageGet(t *testing.T) {
	mem := NewMemoryBackend()
	_ = mem.Set("raw", "not json {")
	s := New(mem, WithLogger(quietLogger()))

	s.Set("num", 42)
	s.Set("obj", map[string]any{"k": "v"})

	cases := []struct {
		name string
		key  string
		def  any
		want any
	}{
		{"missing_returns_default", "nope", "fallback", "fallback"},
		{"number", "num", nil, float64(42)},
		{"verbatim_on_parse_failure", "raw", nil, "not json {"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := s.Get(c.key, c.def); got != c.want {
				t.Fatalf("Get(%q) = %#v, want %#v", c.key, got, c.want)
			}
		})
	}

	obj, ok := s.Get("obj", nil).(map[string]any)
	if !ok || obj["k"] != "v" {
		t.Fatalf("Get(obj) = %#v", s.Get("obj", nil))
	}
}

func TestStorageDecodeAndRemove(t *testing.T) {
	s := New(NewMemoryBackend(), WithLogger(quietLogger()))
	type point struct{ X, Y int }
	if !s.Set("p", point{1, 2}) {
		t.Fatalf("Set failed")
	}
	var p point
	if !s.Decode("p", &p) || p != (point{1, 2}) {
		t.Fatalf("Decode = %+v", p)
	}
	s.Remove("p")
	if s.Has("p") {
		t.Fatalf("expected p to be removed")
	}
	if s.Set("bad", func() {}) {
		t.Fatalf("unencodable values must be refused")
	}
}

func TestStorageFallsBackWhenProbeFails(t *testing.T) {
	var reasons []string
	s := New(brokenBackend{}, WithLogger(quietLogger()), WithNotifier(func(r string) { reasons = append(reasons, r) }))
	if s.Persistent() {
		t.Fatalf("expected memory-only storage")
	}
	if len(reasons) != 1 {
		t.Fatalf("expected one degrade notification, got %v", reasons)
	}
	if !s.Set("k", "v") || s.Get("k", nil) != "v" {
		t.Fatalf("memory fallback should behave like storage")
	}

	nilStore := New(nil, WithLogger(quietLogger()))
	if nilStore.Persistent() {
		t.Fatalf("nil backend must not be persistent")
	}
}

func TestStorageQuotaCleanupThenRetry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour).UnixMilli()

	fb, err := NewFileBackend(t.TempDir(), 220)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	s := New(fb, WithLogger(quietLogger()), WithClock(func() time.Time { return now }))

	s.Set("stale", map[string]any{"timestamp": old, "pad": strings.Repeat("x", 60)})
	s.Set("mixed", map[string]any{
		"gone": map[string]any{"timestamp": old, "pad": strings.Repeat("y", 20)},
		"kept": map[string]any{"timestamp": now.UnixMilli()},
	})
	if !s.Persistent() {
		t.Fatalf("setup writes should fit")
	}

	if !s.Set("new", strings.Repeat("z", 90)) {
		t.Fatalf("Set should succeed after cleanup")
	}
	if !s.Persistent() {
		t.Fatalf("cleanup should have made room without falling back")
	}
	if s.Has("stale") {
		t.Fatalf("stale entry should have been cleaned up")
	}
	mixed, _ := s.Get("mixed", nil).(map[string]any)
	if _, ok := mixed["gone"]; ok {
		t.Fatalf("stale member should have been pruned: %v", mixed)
	}
	if _, ok := mixed["kept"]; !ok {
		t.Fatalf("fresh member should be kept: %v", mixed)
	}
}

func TestStorageQuotaFallsBackToMemory(t *testing.T) {
	fb, err := NewFileBackend(t.TempDir(), 20)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	degraded := false
	s := New(fb, WithLogger(quietLogger()), WithNotifier(func(string) { degraded = true }))
	s.Set("small", "abc")

	if !s.Set("big", strings.Repeat("x", 100)) {
		t.Fatalf("Set must report success after falling back")
	}
	if s.Persistent() || !degraded {
		t.Fatalf("expected fallback to memory")
	}
	if s.Get("big", nil) != strings.Repeat("x", 100) {
		t.Fatalf("value should be readable from memory")
	}
	if s.Get("small", nil) != "abc" {
		t.Fatalf("earlier values should carry over to memory")
	}
}

func TestStorageScopedClear(t *testing.T) {
	mem := NewMemoryBackend()
	a := New(mem, WithLogger(quietLogger()), WithPrefix(OriginPrefix("/docs/a.json")))
	b := New(mem, WithLogger(quietLogger()), WithPrefix(OriginPrefix("/docs/b.json")))

	a.Set("placements", 1)
	b.Set("placements", 2)
	if a.Get("placements", nil) != float64(1) || b.Get("placements", nil) != float64(2) {
		t.Fatalf("origins must not share keys")
	}
	a.Clear()
	if a.Has("placements") {
		t.Fatalf("a should be empty after Clear")
	}
	if !b.Has("placements") {
		t.Fatalf("Clear must not touch other origins")
	}
}
