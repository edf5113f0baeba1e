package state

import (
	"io"
	"math"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/milk9111/mosaic/events"
	"github.com/milk9111/mosaic/layout"
	"github.com/milk9111/mosaic/storage"
)

type fixture struct {
	backend *storage.MemoryBackend
	bus     *events.Bus
	now     time.Time
}

func newFixture() *fixture {
	return &fixture{
		backend: storage.NewMemoryBackend(),
		bus:     events.NewBus(log.New(io.Discard)),
		now:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) open() *Store {
	st := storage.New(f.backend, storage.WithLogger(log.New(io.Discard)))
	return New(st, f.bus, WithLogger(log.New(io.Discard)), WithClock(func() time.Time { return f.now }))
}

func placement(x, y, w, h float64) Placement {
	return Placement{Position: layout.Point{X: x, Y: y}, Size: layout.Size{Width: w, Height: h}}
}

func TestSetImageStateValidation(t *testing.T) {
	cases := []struct {
		name string
		p    Placement
		ok   bool
	}{
		{"valid", placement(10, 20, 100, 50), true},
		{"negative_position_ok", placement(-5, -5, 100, 50), true},
		{"zero_width", placement(10, 20, 0, 50), false},
		{"negative_height", placement(10, 20, 100, -1), false},
		{"nan_x", placement(math.NaN(), 20, 100, 50), false},
		{"inf_height", placement(10, 20, 100, math.Inf(1)), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture()
			s := f.open()
			prior := placement(1, 1, 10, 10)
			s.SetImageState("img.png", prior)

			saved := 0
			events.On(f.bus, func(events.StateSaved) { saved++ })

			if got := s.SetImageState("img.png", c.p); got != c.ok {
				t.Fatalf("SetImageState = %v, want %v", got, c.ok)
			}
			got, _ := s.GetImageState("img.png")
			if c.ok {
				if saved != 1 || got.Position != c.p.Position || got.Size != c.p.Size {
					t.Fatalf("expected update and one StateSaved, got %+v saved=%d", got, saved)
				}
				return
			}
			if saved != 0 || got.Position != prior.Position || got.Size != prior.Size {
				t.Fatalf("invalid input must leave prior state untouched: %+v saved=%d", got, saved)
			}
		})
	}
}

func TestStateRoundTripsThroughReload(t *testing.T) {
	f := newFixture()
	s := f.open()
	s.SetImageState("a.png", placement(10, 10, 250, 250))
	s.SetImageState("b.png", placement(280, 10, 50, 50))
	s.SetTheme(ThemeDark)
	s.Close()

	reloaded := f.open()
	if got := reloaded.GetTheme(); got != ThemeDark {
		t.Fatalf("theme = %q", got)
	}
	b, ok := reloaded.GetImageState("b.png")
	if !ok || b.Position != (layout.Point{X: 280, Y: 10}) || b.Size != (layout.Size{Width: 50, Height: 50}) {
		t.Fatalf("b.png = %+v %v", b, ok)
	}
	if b.Timestamp != f.now.UnixMilli() {
		t.Fatalf("timestamp = %d", b.Timestamp)
	}
	if len(reloaded.AllImageStates()) != 2 {
		t.Fatalf("expected 2 placements")
	}
}

func TestLoadDropsExpiredAndMalformed(t *testing.T) {
	f := newFixture()
	s := f.open()
	s.SetImageState("old.png", placement(10, 10, 20, 20))
	s.Close()

	f.now = f.now.Add(10 * 24 * time.Hour)
	s = f.open()
	s.SetImageState("fresh.png", placement(100, 10, 20, 20))
	s.Close()

	_ = f.backend.Set("placements", mustRaw(t, f, func(m map[string]any) {
		size := map[string]any{"width": 20, "height": 20}
		m["broken.png"] = map[string]any{"position": map[string]any{"x": 1, "y": 1}, "size": map[string]any{"width": 0, "height": 5}}
		m["nullx.png"] = map[string]any{"position": map[string]any{"x": nil, "y": 5}, "size": size}
		m["nopos.png"] = map[string]any{"size": size}
		m["noy.png"] = map[string]any{"position": map[string]any{"x": 300}, "size": size}
		m["noheight.png"] = map[string]any{"position": map[string]any{"x": 300, "y": 300}, "size": map[string]any{"width": 20}}
		m["zero.png"] = map[string]any{"position": map[string]any{"x": 0, "y": 0}, "size": size, "timestamp": f.now.UnixMilli()}
	}))

	f.now = f.now.Add(25 * 24 * time.Hour)
	s = f.open()
	if _, ok := s.GetImageState("old.png"); ok {
		t.Fatalf("old.png is older than 30 days and should be gone")
	}
	for _, name := range []string{"broken.png", "nullx.png", "nopos.png", "noy.png", "noheight.png"} {
		if p, ok := s.GetImageState(name); ok {
			t.Fatalf("malformed record %s should be dropped, loaded %+v", name, p)
		}
	}
	if p, ok := s.GetImageState("zero.png"); !ok || p.Position != (layout.Point{}) {
		t.Fatalf("an explicit origin is a valid position, got %+v %v", p, ok)
	}
	if _, ok := s.GetImageState("fresh.png"); !ok {
		t.Fatalf("fresh.png should survive")
	}
}

func TestCorruptStoreResets(t *testing.T) {
	f := newFixture()
	_ = f.backend.Set("placements", `"just a string"`)
	_ = f.backend.Set("theme", `"purple"`)
	s := f.open()
	if s.HasAnyState() {
		t.Fatalf("corrupt store should load empty")
	}
	if s.GetTheme() != ThemeLight {
		t.Fatalf("unknown theme should normalize to light")
	}
	if _, ok, _ := f.backend.Get("placements"); ok {
		t.Fatalf("corrupt key should be removed")
	}
}

func TestSetThemeEmitsOncePerChange(t *testing.T) {
	f := newFixture()
	s := f.open()
	var got []string
	events.On(f.bus, func(e events.ThemeUpdated) { got = append(got, e.Theme) })

	s.SetTheme(ThemeDark)
	s.SetTheme(ThemeDark)
	s.SetTheme("bogus")
	if len(got) != 2 || got[0] != "dark" || got[1] != "light" {
		t.Fatalf("ThemeUpdated events = %v", got)
	}
}

func TestBusDrivesStore(t *testing.T) {
	f := newFixture()
	s := f.open()

	f.bus.Publish(events.DragEnded{Filename: "a.png", Position: layout.Point{X: 40, Y: 50}, Size: layout.Size{Width: 10, Height: 10}})
	if p, ok := s.GetImageState("a.png"); !ok || p.Position.X != 40 {
		t.Fatalf("DragEnded should persist, got %+v", p)
	}
	f.bus.Publish(events.ResizeEnded{Filename: "a.png", Position: layout.Point{X: 40, Y: 50}, Size: layout.Size{Width: 30, Height: 30}})
	if p, _ := s.GetImageState("a.png"); p.Size.Width != 30 {
		t.Fatalf("ResizeEnded should persist, got %+v", p)
	}

	f.bus.Publish(events.ThemeToggleRequested{})
	if s.GetTheme() != ThemeDark {
		t.Fatalf("toggle should switch to dark")
	}

	reset := 0
	events.On(f.bus, func(events.StateReset) { reset++ })
	f.bus.Publish(events.ResetRequested{})
	if s.HasAnyState() || reset != 1 {
		t.Fatalf("reset should clear state and publish StateReset")
	}
	if s.GetTheme() != ThemeDark {
		t.Fatalf("reset keeps the theme")
	}

	s.Close()
	f.bus.Publish(events.DragEnded{Filename: "b.png", Position: layout.Point{}, Size: layout.Size{Width: 1, Height: 1}})
	if _, ok := s.GetImageState("b.png"); ok {
		t.Fatalf("closed store must not react to events")
	}
}

// mustRaw returns the current placements JSON after applying edit.
func mustRaw(t *testing.T, f *fixture, edit func(map[string]any)) string {
	t.Helper()
	st := storage.New(f.backend, storage.WithLogger(log.New(io.Discard)))
	m := map[string]any{}
	if !st.Decode("placements", &m) {
		t.Fatalf("placements missing")
	}
	edit(m)
	st.Set("placements", m)
	raw, _, _ := f.backend.Get("placements")
	return raw
}
