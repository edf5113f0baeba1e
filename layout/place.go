package layout

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"
)

// Source is an image to lay out: its stable key and natural pixel size.
type Source struct {
	Key    string
	Width  int
	Height int
}

// Placed is the outcome for one image.
type Placed struct {
	Key  string
	Rect Rect
	// Fresh is true when the rect was computed now rather than restored.
	Fresh bool
}

// maxExpansions caps how many times the search area doubles before the
// placer drops the tile below everything else.
const maxExpansions = 24

// Engine computes initial positions for images without saved state.
type Engine struct {
	opts Options
	rng  *rand.Rand
}

// NewEngine builds an engine. A zero seed picks a per-session seed.
func NewEngine(opts Options, seed uint64) *Engine {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Engine{
		opts: opts,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Options returns the engine constants.
func (e *Engine) Options() Options { return e.opts }

// Order returns the session working order. With no saved state at all the
// sources are shuffled; otherwise their order is kept.
func (e *Engine) Order(src []Source, anySaved bool) []Source {
	out := append([]Source(nil), src...)
	if !anySaved {
		e.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out
}

// Arrange orders src and returns one placement per source, in working order.
// Sources with a saved rect keep it; the rest are scaled and placed so that
// no two rects overlap within the spacing buffer.
func (e *Engine) Arrange(src []Source, saved map[string]Rect, availableWidth, viewHeight float64) []Placed {
	present := make(map[string]bool, len(src))
	for _, s := range src {
		present[s.Key] = true
	}
	anySaved := false
	occupied := make([]Rect, 0, len(src))
	for key, r := range saved {
		if present[key] {
			anySaved = true
			occupied = append(occupied, r)
		}
	}

	ordered := e.Order(src, anySaved)
	out := make([]Placed, 0, len(ordered))
	for i, s := range ordered {
		if r, ok := saved[s.Key]; ok {
			out = append(out, Placed{Key: s.Key, Rect: r})
			continue
		}
		size := e.opts.Scale(s.Width, s.Height, availableWidth)
		if !size.Valid() {
			size = Size{Width: 1, Height: 1}
		}
		pos := e.Place(i, size, occupied, availableWidth, viewHeight)
		r := RectAt(pos, size)
		occupied = append(occupied, r)
		out = append(out, Placed{Key: s.Key, Rect: r, Fresh: true})
	}
	return out
}

// GridPosition is the row-major cell for index i, sized by the tile itself.
func (e *Engine) GridPosition(i int, size Size, availableWidth float64) Point {
	step := size.Width + e.opts.Spacing
	cols := 1
	if step > 0 {
		cols = max(1, int(math.Floor(availableWidth/step)))
	}
	col := i % cols
	row := i / cols
	return Point{
		X: float64(col)*(size.Width+e.opts.Spacing) + e.opts.Margin,
		Y: float64(row)*(size.Height+e.opts.Spacing) + e.opts.Margin,
	}
}

// Place finds a position for a tile of the given size that does not overlap
// occupied. The grid cell for index i is tried first.
func (e *Engine) Place(i int, size Size, occupied []Rect, availableWidth, viewHeight float64) Point {
	if p := e.GridPosition(i, size, availableWidth); e.fits(p, size, occupied, availableWidth) {
		return p
	}

	bound := viewHeight
	if bound <= 0 {
		bound = 1000
	}
	for range maxExpansions {
		if p, ok := e.scan(size, occupied, availableWidth, bound); ok {
			return p
		}
		if p, ok := e.random(size, occupied, availableWidth, bound); ok {
			return p
		}
		bound *= 2
	}
	return e.below(occupied)
}

// scan tries corners next to already placed rects, top to bottom then left
// to right, keeping inside the vertical search bound.
func (e *Engine) scan(size Size, occupied []Rect, availableWidth, bound float64) (Point, bool) {
	cands := e.candidates(occupied)
	for _, c := range cands {
		if c.Y+size.Height > bound {
			break
		}
		if e.fits(c, size, occupied, availableWidth) {
			return c, true
		}
	}
	return Point{}, false
}

func (e *Engine) candidates(occupied []Rect) []Point {
	s, m := e.opts.Spacing, e.opts.Margin
	cands := make([]Point, 0, 1+3*len(occupied))
	cands = append(cands, Point{X: m, Y: m})
	for _, o := range occupied {
		cands = append(cands,
			Point{X: o.Right() + s, Y: o.Y},
			Point{X: o.X, Y: o.Bottom() + s},
			Point{X: m, Y: o.Bottom() + s},
		)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Y != cands[j].Y {
			return cands[i].Y < cands[j].Y
		}
		return cands[i].X < cands[j].X
	})
	return cands
}

func (e *Engine) random(size Size, occupied []Rect, availableWidth, bound float64) (Point, bool) {
	m := e.opts.Margin
	spanX := math.Max(0, availableWidth-size.Width-2*m)
	spanY := math.Max(0, bound-size.Height-m)
	for range e.opts.RandomAttempts {
		p := Point{
			X: m + e.rng.Float64()*spanX,
			Y: m + e.rng.Float64()*spanY,
		}
		if e.fits(p, size, occupied, availableWidth) {
			return p, true
		}
	}
	return Point{}, false
}

// below returns the left-margin position under every occupied rect.
func (e *Engine) below(occupied []Rect) Point {
	y := e.opts.Margin
	for _, o := range occupied {
		y = math.Max(y, o.Bottom()+e.opts.Spacing)
	}
	return Point{X: e.opts.Margin, Y: y}
}

func (e *Engine) fits(p Point, size Size, occupied []Rect, availableWidth float64) bool {
	if p.X < 0 || p.Y < 0 {
		return false
	}
	// A tile wider than the canvas may still sit at the left margin.
	if p.X+size.Width > availableWidth && p.X > e.opts.Margin {
		return false
	}
	return !RectAt(p, size).OverlapsAny(occupied, e.opts.Spacing)
}
