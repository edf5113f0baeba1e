package main

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/milk9111/mosaic/layout"
)

// dragDeadZone is how far a pressed pointer moves before a press becomes a
// drag rather than a click.
const dragDeadZone = 4.0

const wheelStep = 48.0

type gestureKind int

const (
	gestureNone gestureKind = iota
	gestureDragStart
	gestureDrag
	gestureDragEnd
	gestureClick
)

// gesture is what one pointer did this frame, in screen coordinates.
type gesture struct {
	Kind  gestureKind
	Pos   layout.Point
	Start layout.Point
}

// pointer is the press/drag/release state machine for a single pointer.
type pointer struct {
	down     bool
	dragging bool
	start    layout.Point
	last     layout.Point
}

func (p *pointer) step(pos layout.Point, pressed bool) gesture {
	switch {
	case pressed && !p.down:
		p.down = true
		p.dragging = false
		p.start = pos
		p.last = pos
		return gesture{}
	case !pressed && p.down:
		p.down = false
		p.last = pos
		if p.dragging {
			p.dragging = false
			return gesture{Kind: gestureDragEnd, Pos: pos, Start: p.start}
		}
		return gesture{Kind: gestureClick, Pos: pos, Start: p.start}
	case pressed && p.down:
		if pos == p.last {
			return gesture{}
		}
		p.last = pos
		if !p.dragging {
			d := pos.Sub(p.start)
			if math.Hypot(d.X, d.Y) <= dragDeadZone {
				return gesture{}
			}
			p.dragging = true
			return gesture{Kind: gestureDragStart, Pos: pos, Start: p.start}
		}
		return gesture{Kind: gestureDrag, Pos: pos, Start: p.start}
	}
	p.last = pos
	return gesture{}
}

func (p *pointer) reset() { *p = pointer{last: p.last} }

// Input polls ebiten once per frame. The mouse is the primary pointer; a
// single touch takes over while a finger is down.
type Input struct {
	Gesture gesture
	Cursor  layout.Point
	Wheel   layout.Point
	Pan     layout.Point

	ToggleTheme bool
	ResetLayout bool
	ToggleLinks bool
	Copy        bool
	Cancel      bool
	Quit        bool

	mouse    pointer
	touch    pointer
	touchID  ebiten.TouchID
	touching bool
	touchBuf []ebiten.TouchID

	panning bool
	panLast layout.Point
}

func NewInput() *Input {
	return &Input{}
}

func (i *Input) Update() {
	mx, my := ebiten.CursorPosition()
	i.Cursor = layout.Point{X: float64(mx), Y: float64(my)}

	if g, ok := i.updateTouch(); ok {
		i.Gesture = g
	} else {
		i.Gesture = i.mouse.step(i.Cursor, ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
	}

	wx, wy := ebiten.Wheel()
	i.Wheel = layout.Point{X: wx * wheelStep, Y: wy * wheelStep}

	// Middle-button drag pans the canvas.
	i.Pan = layout.Point{}
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle) {
		if i.panning {
			i.Pan = i.Cursor.Sub(i.panLast)
		}
		i.panning = true
		i.panLast = i.Cursor
	} else {
		i.panning = false
	}

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
	i.Copy = ctrl && inpututil.IsKeyJustPressed(ebiten.KeyC)
	i.ToggleTheme = !ctrl && inpututil.IsKeyJustPressed(ebiten.KeyT)
	i.ResetLayout = !ctrl && inpututil.IsKeyJustPressed(ebiten.KeyR)
	i.ToggleLinks = !ctrl && inpututil.IsKeyJustPressed(ebiten.KeyL)
	i.Cancel = inpututil.IsKeyJustPressed(ebiten.KeyEscape)
	i.Quit = inpututil.IsKeyJustPressed(ebiten.KeyF12)
}

// updateTouch drives the touch pointer. It reports false when no touch is
// being tracked, leaving the frame to the mouse.
func (i *Input) updateTouch() (gesture, bool) {
	i.touchBuf = ebiten.AppendTouchIDs(i.touchBuf[:0])
	if !i.touching {
		if len(i.touchBuf) == 0 {
			return gesture{}, false
		}
		i.touchID = i.touchBuf[0]
		i.touching = true
		i.mouse.reset()
	}
	for _, id := range i.touchBuf {
		if id == i.touchID {
			x, y := ebiten.TouchPosition(id)
			i.Cursor = layout.Point{X: float64(x), Y: float64(y)}
			return i.touch.step(i.Cursor, true), true
		}
	}
	i.touching = false
	i.Cursor = i.touch.last
	return i.touch.step(i.touch.last, false), true
}

// Reset forgets any press in progress, e.g. after the window loses focus.
func (i *Input) Reset() {
	i.mouse.reset()
	i.touch.reset()
	i.touching = false
	i.panning = false
}
