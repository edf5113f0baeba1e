package tile

import (
	"github.com/milk9111/mosaic/interact"
	"github.com/milk9111/mosaic/layout"
)

// Set holds the tiles in draw order; the last tile is on top.
type Set struct {
	order  []*Tile
	byName map[string]*Tile
	canvas func() layout.Size
}

// NewSet builds an empty set. canvas reports the current canvas size.
func NewSet(canvas func() layout.Size) *Set {
	return &Set{byName: make(map[string]*Tile), canvas: canvas}
}

func (s *Set) Add(t *Tile) {
	if t == nil {
		return
	}
	if old, ok := s.byName[t.Filename]; ok {
		s.remove(old)
	}
	s.order = append(s.order, t)
	s.byName[t.Filename] = t
}

func (s *Set) remove(t *Tile) {
	for i, o := range s.order {
		if o == t {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	delete(s.byName, t.Filename)
}

// Clear disposes every tile.
func (s *Set) Clear() {
	for _, t := range s.order {
		t.Dispose()
	}
	s.order = nil
	s.byName = make(map[string]*Tile)
}

func (s *Set) Get(filename string) (*Tile, bool) {
	t, ok := s.byName[filename]
	return t, ok
}

func (s *Set) Len() int { return len(s.order) }

// Tiles returns the tiles bottom to top.
func (s *Set) Tiles() []*Tile { return s.order }

// Raise moves filename to the top of the draw order.
func (s *Set) Raise(filename string) {
	t, ok := s.byName[filename]
	if !ok {
		return
	}
	for i, o := range s.order {
		if o == t {
			s.order = append(append(s.order[:i:i], s.order[i+1:]...), t)
			return
		}
	}
}

// Hit is the outcome of a pointer hit test.
type Hit struct {
	Tile   *Tile
	Handle bool
}

// At returns the topmost tile under p.
func (s *Set) At(p layout.Point) (Hit, bool) {
	for i := len(s.order) - 1; i >= 0; i-- {
		t := s.order[i]
		if t.HitHandle(p) {
			return Hit{Tile: t, Handle: true}, true
		}
		if t.HitBody(p) {
			return Hit{Tile: t}, true
		}
	}
	return Hit{}, false
}

// Extent is the bounding size of every tile plus margin, used as the
// scrollable canvas height.
func (s *Set) Extent(margin float64) layout.Size {
	var size layout.Size
	for _, t := range s.order {
		r := t.Rect()
		size.Width = max(size.Width, r.Right()+margin)
		size.Height = max(size.Height, r.Bottom()+margin)
	}
	return size
}

// Update advances GIF playback on every tile.
func (s *Set) Update() {
	for _, t := range s.order {
		t.Update()
	}
}

func (s *Set) Rect(filename string) (layout.Rect, bool) {
	t, ok := s.byName[filename]
	if !ok {
		return layout.Rect{}, false
	}
	return t.Rect(), true
}

func (s *Set) Obstacles(filename string) []layout.Rect {
	out := make([]layout.Rect, 0, len(s.order))
	for _, t := range s.order {
		if t.Filename != filename {
			out = append(out, t.Rect())
		}
	}
	return out
}

func (s *Set) Move(filename string, p layout.Point) {
	if t, ok := s.byName[filename]; ok {
		t.SetRect(t.Rect().Moved(p))
	}
}

func (s *Set) Resize(filename string, size layout.Size) {
	if t, ok := s.byName[filename]; ok {
		t.SetRect(t.Rect().Resized(size))
	}
}

func (s *Set) SetFlags(filename string, f interact.Flags) {
	if t, ok := s.byName[filename]; ok {
		t.Flags = f
	}
}

func (s *Set) Canvas() layout.Size {
	if s.canvas == nil {
		return layout.Size{}
	}
	return s.canvas()
}

var _ interact.Surface = (*Set)(nil)
