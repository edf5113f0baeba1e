// Package tile is the per-image model and its rendering.
package tile

import (
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/milk9111/mosaic/interact"
	"github.com/milk9111/mosaic/layout"
)

// HandleSize is the side of the square resize handle in the bottom-right
// corner of every tile.
const HandleSize = 16

// Tile is one image on the canvas. Filename is its identity; Index is its
// position in the session working order.
type Tile struct {
	Filename string
	Index    int
	// NaturalWidth/NaturalHeight come from the metadata document until the
	// image decodes, then from the decoded pixels.
	NaturalWidth  int
	NaturalHeight int

	Loading bool
	Failed  bool
	Err     error
	Flags   interact.Flags

	rect layout.Rect
	anim *Animation
}

func New(filename string, index int, w, h int, rect layout.Rect) *Tile {
	return &Tile{
		Filename:      filename,
		Index:         index,
		NaturalWidth:  w,
		NaturalHeight: h,
		Loading:       true,
		rect:          rect,
	}
}

func (t *Tile) Rect() layout.Rect { return t.rect }

func (t *Tile) SetRect(r layout.Rect) { t.rect = r }

// Animated reports whether the tile shows a GIF badge.
func (t *Tile) Animated() bool {
	return strings.EqualFold(filepath.Ext(t.Filename), ".gif")
}

// HandleRect is the hit area of the resize handle.
func (t *Tile) HandleRect() layout.Rect {
	return layout.Rect{
		X:      t.rect.Right() - HandleSize,
		Y:      t.rect.Bottom() - HandleSize,
		Width:  HandleSize,
		Height: HandleSize,
	}
}

// HitHandle reports whether p is on the resize handle.
func (t *Tile) HitHandle(p layout.Point) bool {
	return t.HandleRect().Contains(p)
}

// HitBody reports whether p is on the tile but not on its handle.
func (t *Tile) HitBody(p layout.Point) bool {
	return t.rect.Contains(p) && !t.HitHandle(p)
}

// SetFrames attaches decoded frames and clears the loading state.
func (t *Tile) SetFrames(a *Animation, w, h int) {
	t.anim = a
	t.NaturalWidth = w
	t.NaturalHeight = h
	t.Loading = false
	t.Failed = false
	t.Err = nil
}

// Fail marks the tile broken. It stays on the canvas and stays draggable.
func (t *Tile) Fail(err error) {
	t.Loading = false
	t.Failed = true
	t.Err = err
}

// Image returns the frame to draw, or nil while loading or after a failure.
func (t *Tile) Image() *ebiten.Image {
	if t.anim == nil {
		return nil
	}
	return t.anim.Frame()
}

// Update advances GIF playback.
func (t *Tile) Update() {
	if t.anim != nil {
		t.anim.Update()
	}
}

// Dispose releases GPU images.
func (t *Tile) Dispose() {
	if t.anim != nil {
		t.anim.Dispose()
		t.anim = nil
	}
}
