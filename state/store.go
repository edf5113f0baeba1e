// Package state owns the canonical placement map and the theme preference.
//
// The Store validates every write, persists through storage.Storage and
// announces changes on the event bus. Controllers never write here directly;
// they publish DragEnded/ResizeEnded and the store picks those up.
package state

import (
	"encoding/json"
	"errors"
	"maps"
	"time"

	"github.com/charmbracelet/log"

	"github.com/milk9111/mosaic/events"
	"github.com/milk9111/mosaic/layout"
	"github.com/milk9111/mosaic/storage"
)

// Storage keys.
const (
	KeyPlacements = "placements"
	KeyTheme      = "theme"
)

// DefaultExpiry is how long an untouched placement survives.
const DefaultExpiry = 30 * 24 * time.Hour

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Normalize maps anything that is not a known theme to light.
func (t Theme) Normalize() Theme {
	if t == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// Toggled returns the other theme.
func (t Theme) Toggled() Theme {
	if t.Normalize() == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Placement is the persisted geometry of one tile. Timestamp is unix
// milliseconds of the last write.
type Placement struct {
	Position  layout.Point `json:"position"`
	Size      layout.Size  `json:"size"`
	Timestamp int64        `json:"timestamp"`
}

var errIncomplete = errors.New("state: placement needs x, y, width and height")

// UnmarshalJSON requires every coordinate to be present and numeric; a
// missing or null field would otherwise decode as zero.
func (p *Placement) UnmarshalJSON(data []byte) error {
	var raw struct {
		Position *struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		} `json:"position"`
		Size *struct {
			Width  *float64 `json:"width"`
			Height *float64 `json:"height"`
		} `json:"size"`
		Timestamp int64 `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pos, size := raw.Position, raw.Size
	if pos == nil || size == nil || pos.X == nil || pos.Y == nil || size.Width == nil || size.Height == nil {
		return errIncomplete
	}
	*p = Placement{
		Position:  layout.Point{X: *pos.X, Y: *pos.Y},
		Size:      layout.Size{Width: *size.Width, Height: *size.Height},
		Timestamp: raw.Timestamp,
	}
	return nil
}

// Valid reports whether the position is finite and the size positive.
func (p Placement) Valid() bool {
	return p.Position.Finite() && p.Size.Valid()
}

func (p Placement) Rect() layout.Rect { return layout.RectAt(p.Position, p.Size) }

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithExpiry sets the age past which placements are dropped on load.
func WithExpiry(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.expiry = d
		}
	}
}

type Store struct {
	storage    *storage.Storage
	bus        *events.Bus
	placements map[string]Placement
	theme      Theme
	expiry     time.Duration
	now        func() time.Time
	logger     *log.Logger
	subs       []events.Subscription
}

// New loads persisted state and subscribes the store to the bus.
func New(st *storage.Storage, bus *events.Bus, opts ...Option) *Store {
	s := &Store{
		storage:    st,
		bus:        bus,
		placements: make(map[string]Placement),
		theme:      ThemeLight,
		expiry:     DefaultExpiry,
		now:        time.Now,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Load()
	s.subscribe()
	return s
}

func (s *Store) subscribe() {
	if s.bus == nil {
		return
	}
	s.subs = append(s.subs,
		events.On(s.bus, func(e events.DragEnded) {
			s.SetImageState(e.Filename, Placement{Position: e.Position, Size: e.Size})
		}),
		events.On(s.bus, func(e events.ResizeEnded) {
			s.SetImageState(e.Filename, Placement{Position: e.Position, Size: e.Size})
		}),
		events.On(s.bus, func(events.ResetRequested) { s.ResetAllStates() }),
		events.On(s.bus, func(events.ThemeToggleRequested) { s.ToggleTheme() }),
	)
}

// Close detaches the store from the bus.
func (s *Store) Close() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
}

// Load replaces the in-memory state with what storage holds. Malformed and
// expired records are dropped; a store that cannot be decoded at all is
// reset to empty.
func (s *Store) Load() {
	s.placements = make(map[string]Placement)
	s.theme = ThemeLight
	if s.storage == nil {
		return
	}

	var theme string
	if s.storage.Decode(KeyTheme, &theme) {
		s.theme = Theme(theme).Normalize()
	}

	if !s.storage.Has(KeyPlacements) {
		return
	}
	var raw map[string]json.RawMessage
	if !s.storage.Decode(KeyPlacements, &raw) {
		s.logger.Warn("placement store is corrupt, resetting")
		s.storage.Remove(KeyPlacements)
		return
	}

	cutoff := s.now().Add(-s.expiry).UnixMilli()
	dropped := 0
	for name, msg := range raw {
		var p Placement
		if err := json.Unmarshal(msg, &p); err != nil || !p.Valid() {
			s.logger.Warn("dropping malformed placement", "file", name)
			dropped++
			continue
		}
		if p.Timestamp > 0 && p.Timestamp < cutoff {
			s.logger.Debug("dropping expired placement", "file", name)
			dropped++
			continue
		}
		s.placements[name] = p
	}
	if dropped > 0 {
		s.persist()
	}
}

// GetImageState returns the placement for filename.
func (s *Store) GetImageState(filename string) (Placement, bool) {
	p, ok := s.placements[filename]
	return p, ok
}

// SetImageState validates p, stamps it, persists the whole map and
// publishes StateSaved. Invalid placements are rejected and leave the prior
// state untouched.
func (s *Store) SetImageState(filename string, p Placement) bool {
	if filename == "" || !p.Valid() {
		s.logger.Warn("rejecting invalid placement", "file", filename, "position", p.Position, "size", p.Size)
		return false
	}
	p.Timestamp = s.now().UnixMilli()
	s.placements[filename] = p
	s.persist()
	s.bus.Publish(events.StateSaved{Filename: filename})
	return true
}

// AllImageStates returns a copy of every placement.
func (s *Store) AllImageStates() map[string]Placement {
	return maps.Clone(s.placements)
}

// Rects returns the saved rect of every placement.
func (s *Store) Rects() map[string]layout.Rect {
	out := make(map[string]layout.Rect, len(s.placements))
	for k, p := range s.placements {
		out[k] = p.Rect()
	}
	return out
}

func (s *Store) HasAnyState() bool { return len(s.placements) > 0 }

func (s *Store) GetTheme() Theme { return s.theme }

// SetTheme stores t and publishes ThemeUpdated when it changes.
func (s *Store) SetTheme(t Theme) {
	t = t.Normalize()
	if t == s.theme {
		return
	}
	s.theme = t
	if s.storage != nil {
		s.storage.Set(KeyTheme, string(t))
	}
	s.bus.Publish(events.ThemeUpdated{Theme: string(t)})
}

func (s *Store) ToggleTheme() { s.SetTheme(s.theme.Toggled()) }

// ResetAllStates forgets every placement and publishes StateReset. The theme
// is kept.
func (s *Store) ResetAllStates() {
	s.placements = make(map[string]Placement)
	if s.storage != nil {
		s.storage.Remove(KeyPlacements)
	}
	s.bus.Publish(events.StateReset{})
}

func (s *Store) persist() {
	if s.storage == nil {
		return
	}
	s.storage.Set(KeyPlacements, s.placements)
}
