// Package interact holds the drag and resize state machines.
//
// Controllers know nothing about rendering or input devices. They read and
// write tile geometry through a Surface and announce progress on the event
// bus; the caller feeds them pointer positions in canvas coordinates.
package interact

import "github.com/milk9111/mosaic/layout"

// Flags are the presentational states a controller toggles on a tile.
type Flags struct {
	Dragging bool
	Resizing bool
	Overlap  bool
}

// Surface is the set of tiles the controllers manipulate.
type Surface interface {
	// Rect returns the current rect of the named tile.
	Rect(filename string) (layout.Rect, bool)
	// Obstacles returns the rects of every tile except the named one.
	Obstacles(filename string) []layout.Rect
	Move(filename string, p layout.Point)
	Resize(filename string, s layout.Size)
	SetFlags(filename string, f Flags)
	// Canvas is the current canvas size used for edge clamping.
	Canvas() layout.Size
}

// Gate allows one manipulation at a time across all controllers.
type Gate struct {
	owner string
	busy  bool
}

// Acquire claims the gate for owner and reports whether it was free.
func (g *Gate) Acquire(owner string) bool {
	if g.busy {
		return false
	}
	g.busy = true
	g.owner = owner
	return true
}

func (g *Gate) Release() {
	g.busy = false
	g.owner = ""
}

func (g *Gate) Busy() bool { return g.busy }

// Owner names the current holder, or "" when free.
func (g *Gate) Owner() string { return g.owner }

// Outcome is how an interaction ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCommitted
	OutcomeReverted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeReverted:
		return "reverted"
	default:
		return "none"
	}
}
