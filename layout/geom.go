package layout

import "math"

// Point is a position in canvas pixels, relative to the canvas top-left.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point { return Point{X: p.X + d.X, Y: p.Y + d.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool { return finite(p.X) && finite(p.Y) }

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are finite and strictly positive.
func (s Size) Valid() bool {
	return finite(s.Width) && finite(s.Height) && s.Width > 0 && s.Height > 0
}

// Aspect returns width/height, or 1 for a degenerate size.
func (s Size) Aspect() float64 {
	if s.Height == 0 {
		return 1
	}
	return s.Width / s.Height
}

// Rect is an axis-aligned box.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// RectAt builds a rect from a position and a size.
func RectAt(p Point, s Size) Rect {
	return Rect{X: p.X, Y: p.Y, Width: s.Width, Height: s.Height}
}

func (r Rect) Position() Point { return Point{X: r.X, Y: r.Y} }
func (r Rect) Size() Size      { return Size{Width: r.Width, Height: r.Height} }
func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Moved returns r with its top-left corner at p.
func (r Rect) Moved(p Point) Rect {
	r.X, r.Y = p.X, p.Y
	return r
}

// Resized returns r with size s, keeping its top-left corner.
func (r Rect) Resized(s Size) Rect {
	r.Width, r.Height = s.Width, s.Height
	return r
}

// Contains reports whether p lies inside r (edges inclusive on the top-left).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// Overlaps reports whether r and other intersect once the spacing buffer is
// applied. Boxes exactly spacing apart do not overlap.
func (r Rect) Overlaps(other Rect, spacing float64) bool {
	return r.X < other.X+other.Width+spacing &&
		r.X+r.Width+spacing > other.X &&
		r.Y < other.Y+other.Height+spacing &&
		r.Y+r.Height+spacing > other.Y
}

// OverlapsAny reports whether r overlaps any of others.
func (r Rect) OverlapsAny(others []Rect, spacing float64) bool {
	for _, o := range others {
		if r.Overlaps(o, spacing) {
			return true
		}
	}
	return false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
