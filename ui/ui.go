// Package ui is the ebitenui chrome drawn over the canvas: the toolbar, the
// reset confirmation, toasts, the fatal error panel and the links panel.
package ui

import (
	"bytes"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitenui/ebitenui"
	ebuiinput "github.com/ebitenui/ebitenui/input"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/milk9111/mosaic/events"
	"github.com/milk9111/mosaic/links"
	"github.com/milk9111/mosaic/state"
	"github.com/milk9111/mosaic/tile"
)

const fontSize = 14

type Option func(*UI)

func WithLogger(l *log.Logger) Option {
	return func(u *UI) {
		if l != nil {
			u.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *UI) {
		if now != nil {
			u.now = now
		}
	}
}

// WithRetry adds a Retry button to the error panel.
func WithRetry(fn func()) Option {
	return func(u *UI) { u.retry = fn }
}

// UI owns the widget tree and the state it is rebuilt from. Changes that
// alter the tree's shape mark it dirty; it is rebuilt on the next Update so
// a click handler never swaps the tree it is running in.
type UI struct {
	bus    *events.Bus
	root   *ebitenui.UI
	face   text.Face
	theme  state.Theme
	now    func() time.Time
	logger *log.Logger
	retry  func()
	subs   []events.Subscription

	toast      toast
	shownToast string
	confirming bool
	showLinks  bool
	errTitle   string
	errDetail  string
	status     string
	previews   []links.Preview
	quit       bool
	dirty      bool

	w widgets
}

// New builds the chrome for theme and subscribes it to bus.
func New(bus *events.Bus, theme state.Theme, opts ...Option) (*UI, error) {
	src, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, fmt.Errorf("ui: load font: %w", err)
	}
	u := &UI{
		bus:    bus,
		face:   &text.GoTextFace{Source: src, Size: fontSize},
		theme:  theme.Normalize(),
		now:    time.Now,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.build()
	u.subscribe()
	return u, nil
}

func (u *UI) subscribe() {
	if u.bus == nil {
		return
	}
	u.subs = []events.Subscription{
		events.On(u.bus, func(e events.ThemeUpdated) { u.SetTheme(state.Theme(e.Theme)) }),
		events.On(u.bus, func(events.StateSaved) { u.Toast("Layout saved", Info) }),
		events.On(u.bus, func(events.StateReset) { u.Toast("Layout reset", Info) }),
		events.On(u.bus, func(events.StorageDegraded) {
			u.Toast("Storage unavailable, changes last until exit", Error)
		}),
		events.On(u.bus, func(e events.ImageFailed) { u.Toast("Could not load "+e.Filename, Error) }),
		events.On(u.bus, func(e events.DragCancelled) {
			if e.Reason == events.ReasonOverlap {
				u.Toast("Tiles can't overlap, move reverted", Error)
			}
		}),
		events.On(u.bus, func(e events.ResizeCancelled) {
			if e.Reason == events.ReasonOverlap {
				u.Toast("Tiles can't overlap, resize reverted", Error)
			}
		}),
		events.On(u.bus, func(e events.LayoutReloaded) { u.Toast("Reloaded: "+e.Reason, Info) }),
		events.On(u.bus, func(e events.LinkPreviewReady) {
			u.AddPreview(links.Preview{URL: e.URL, Title: e.Title, Description: e.Description, Provider: e.Provider})
		}),
	}
}

// Close drops the bus subscriptions.
func (u *UI) Close() {
	for _, s := range u.subs {
		s.Unsubscribe()
	}
	u.subs = nil
}

func (u *UI) Theme() state.Theme { return u.theme }

func (u *UI) Palette() Palette { return PaletteFor(u.theme) }

// TileStyle is what tiles are drawn with under the current theme.
func (u *UI) TileStyle() tile.Style { return u.Palette().TileStyle(u.face) }

// SetTheme switches palettes.
func (u *UI) SetTheme(t state.Theme) {
	t = t.Normalize()
	if t == u.theme {
		return
	}
	u.theme = t
	u.dirty = true
}

// Toast shows msg for DefaultToastDuration.
func (u *UI) Toast(msg string, kind Kind) {
	u.toast.show(msg, kind, u.now())
	u.sync()
}

// ShowError opens the error panel. It stays up until Retry or Quit.
func (u *UI) ShowError(title string, err error) {
	u.errTitle = title
	u.errDetail = ""
	if err != nil {
		u.errDetail = err.Error()
	}
	u.confirming = false
	u.dirty = true
}

// ClearError closes the error panel.
func (u *UI) ClearError() {
	if u.errTitle == "" {
		return
	}
	u.errTitle, u.errDetail = "", ""
	u.sync()
}

// ConfirmReset opens the reset confirmation dialog.
func (u *UI) ConfirmReset() {
	if u.errTitle != "" {
		return
	}
	u.confirming = true
	u.sync()
}

// Dismiss closes the confirmation dialog, or the links panel when no dialog
// is open. It reports whether anything closed.
func (u *UI) Dismiss() bool {
	switch {
	case u.confirming:
		u.confirming = false
	case u.showLinks:
		u.showLinks = false
	default:
		return false
	}
	u.sync()
	return true
}

func (u *UI) ToggleLinks() {
	u.showLinks = !u.showLinks
	u.sync()
}

func (u *UI) LinksVisible() bool { return u.showLinks }

// SetPreviews replaces the links panel contents.
func (u *UI) SetPreviews(p []links.Preview) {
	u.previews = append(u.previews[:0], p...)
	u.dirty = true
}

// AddPreview adds or replaces the preview for its URL.
func (u *UI) AddPreview(p links.Preview) {
	for i := range u.previews {
		if u.previews[i].URL == p.URL {
			u.previews[i] = p
			u.dirty = true
			return
		}
	}
	u.previews = append(u.previews, p)
	u.dirty = true
}

// SetStatus sets the toolbar status text.
func (u *UI) SetStatus(s string) {
	if s == u.status {
		return
	}
	u.status = s
	if u.w.status != nil {
		u.w.status.Label = s
	}
}

// Modal reports whether a dialog or the error panel takes all input.
func (u *UI) Modal() bool { return u.confirming || u.errTitle != "" }

// Hovered reports whether the pointer is over a widget.
func (u *UI) Hovered() bool { return ebuiinput.UIHovered }

// QuitRequested is set by the error panel's Quit button.
func (u *UI) QuitRequested() bool { return u.quit }

func (u *UI) Update() {
	if u.dirty {
		u.dirty = false
		u.build()
	}
	if u.toast.expire(u.now()) {
		u.sync()
	}
	u.root.Update()
}

func (u *UI) Draw(screen *ebiten.Image) {
	u.root.Draw(screen)
}
