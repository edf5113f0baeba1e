package layout

import "math"

// Edge is the policy for one side of the canvas.
type Edge struct {
	Clamp   bool    `yaml:"clamp"`
	Padding float64 `yaml:"padding"`
}

// Bounds describes how a dragged tile is kept on the canvas, per edge.
type Bounds struct {
	Left   Edge `yaml:"left"`
	Top    Edge `yaml:"top"`
	Right  Edge `yaml:"right"`
	Bottom Edge `yaml:"bottom"`
}

// DefaultBounds clamps the left, top and right edges with padding and leaves
// the bottom open so the canvas can grow downwards.
func DefaultBounds(padding float64) Bounds {
	return Bounds{
		Left:   Edge{Clamp: true, Padding: padding},
		Top:    Edge{Clamp: true, Padding: padding},
		Right:  Edge{Clamp: true, Padding: padding},
		Bottom: Edge{Clamp: false},
	}
}

// Clamp returns the position of r adjusted to the policy on a canvas of the
// given size. When both opposing edges clamp and the tile does not fit, the
// left and top edges win.
func (b Bounds) Clamp(r Rect, canvas Size) Point {
	x, y := r.X, r.Y
	if b.Right.Clamp {
		x = math.Min(x, canvas.Width-r.Width-b.Right.Padding)
	}
	if b.Left.Clamp {
		x = math.Max(x, b.Left.Padding)
	}
	if b.Bottom.Clamp {
		y = math.Min(y, canvas.Height-r.Height-b.Bottom.Padding)
	}
	if b.Top.Clamp {
		y = math.Max(y, b.Top.Padding)
	}
	return Point{X: x, Y: y}
}
