package interact

import (
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/milk9111/mosaic/events"
	"github.com/milk9111/mosaic/layout"
)

type fakeSurface struct {
	rects  map[string]layout.Rect
	flags  map[string]Flags
	canvas layout.Size
}

func newFakeSurface(rects map[string]layout.Rect) *fakeSurface {
	return &fakeSurface{rects: rects, flags: map[string]Flags{}, canvas: layout.Size{Width: 800, Height: 600}}
}

func (f *fakeSurface) Rect(name string) (layout.Rect, bool) {
	r, ok := f.rects[name]
	return r, ok
}

func (f *fakeSurface) Obstacles(name string) []layout.Rect {
	var out []layout.Rect
	for k, r := range f.rects {
		if k != name {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeSurface) Move(name string, p layout.Point) { f.rects[name] = f.rects[name].Moved(p) }
func (f *fakeSurface) Resize(name string, s layout.Size) {
	f.rects[name] = f.rects[name].Resized(s)
}
func (f *fakeSurface) SetFlags(name string, fl Flags) { f.flags[name] = fl }
func (f *fakeSurface) Canvas() layout.Size            { return f.canvas }

func quiet() *log.Logger { return log.New(io.Discard) }

func twoTiles() *fakeSurface {
	return newFakeSurface(map[string]layout.Rect{
		"a": {X: 10, Y: 10, Width: 100, Height: 100},
		"b": {X: 300, Y: 10, Width: 100, Height: 100},
	})
}

func TestDragCommit(t *testing.T) {
	s := twoTiles()
	bus := events.NewBus(quiet())
	var ended []events.DragEnded
	events.On(bus, func(e events.DragEnded) { ended = append(ended, e) })

	d := NewDragController(bus, &Gate{}, s, DragConfig{Bounds: layout.DefaultBounds(10), Spacing: 20}, quiet())
	if !d.Begin("a", layout.Point{X: 50, Y: 50}) {
		t.Fatalf("Begin refused")
	}
	d.Move(layout.Point{X: 60, Y: 250})
	if out := d.End(layout.Point{X: 60, Y: 250}); out != OutcomeCommitted {
		t.Fatalf("outcome = %v", out)
	}
	want := layout.Point{X: 20, Y: 210}
	if len(ended) != 1 || ended[0].Position != want {
		t.Fatalf("DragEnded = %+v", ended)
	}
	if s.rects["a"].Position() != want {
		t.Fatalf("tile not moved: %+v", s.rects["a"])
	}
	if s.flags["a"] != (Flags{}) {
		t.Fatalf("flags should be cleared after drop: %+v", s.flags["a"])
	}
}

func TestDragRevertsOnOverlap(t *testing.T) {
	s := twoTiles()
	bus := events.NewBus(quiet())
	var moved []events.DragMoved
	var cancelled []events.DragCancelled
	committed := 0
	events.On(bus, func(e events.DragMoved) { moved = append(moved, e) })
	events.On(bus, func(e events.DragCancelled) { cancelled = append(cancelled, e) })
	events.On(bus, func(events.DragEnded) { committed++ })

	gate := &Gate{}
	d := NewDragController(bus, gate, s, DragConfig{Bounds: layout.DefaultBounds(10), Spacing: 20}, quiet())
	d.Begin("a", layout.Point{X: 0, Y: 0})
	d.Move(layout.Point{X: 200, Y: 0})
	if !moved[len(moved)-1].Overlap {
		t.Fatalf("moving next to b should flag overlap")
	}
	if !s.flags["a"].Overlap {
		t.Fatalf("surface should show the overlap warning")
	}
	if out := d.End(layout.Point{X: 200, Y: 0}); out != OutcomeReverted {
		t.Fatalf("outcome = %v", out)
	}
	if s.rects["a"].Position() != (layout.Point{X: 10, Y: 10}) {
		t.Fatalf("tile should be back at its origin, got %+v", s.rects["a"])
	}
	if committed != 0 || len(cancelled) != 1 || cancelled[0].Reason != events.ReasonOverlap {
		t.Fatalf("expected one overlap cancel and no commit, got %+v", cancelled)
	}
	if gate.Busy() {
		t.Fatalf("gate should be released")
	}
}

func TestDragClampsToBounds(t *testing.T) {
	cases := []struct {
		name    string
		pointer layout.Point
		want    layout.Point
	}{
		{"past_left_top", layout.Point{X: -500, Y: -500}, layout.Point{X: 10, Y: 10}},
		{"past_right", layout.Point{X: 5000, Y: 0}, layout.Point{X: 690, Y: 10}},
		{"bottom_is_open", layout.Point{X: 0, Y: 5000}, layout.Point{X: 10, Y: 5010}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := newFakeSurface(map[string]layout.Rect{"a": {X: 10, Y: 10, Width: 100, Height: 100}})
			d := NewDragController(events.NewBus(quiet()), &Gate{}, s, DragConfig{Bounds: layout.DefaultBounds(10), Spacing: 20}, quiet())
			d.Begin("a", layout.Point{})
			d.End(c.pointer)
			if got := s.rects["a"].Position(); got != c.want {
				t.Fatalf("position = %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestDragCancel(t *testing.T) {
	s := twoTiles()
	bus := events.NewBus(quiet())
	var reason events.CancelReason
	events.On(bus, func(e events.DragCancelled) { reason = e.Reason })

	d := NewDragController(bus, &Gate{}, s, DragConfig{Bounds: layout.DefaultBounds(10), Spacing: 20}, quiet())
	d.Begin("a", layout.Point{})
	d.Move(layout.Point{X: 0, Y: 300})
	d.Cancel()
	if s.rects["a"].Position() != (layout.Point{X: 10, Y: 10}) || reason != events.ReasonAborted || d.Active() {
		t.Fatalf("cancel should restore the origin: %+v %q", s.rects["a"], reason)
	}
}

func TestGateAllowsOneInteraction(t *testing.T) {
	s := twoTiles()
	bus := events.NewBus(quiet())
	gate := &Gate{}
	d := NewDragController(bus, gate, s, DragConfig{Bounds: layout.DefaultBounds(10), Spacing: 20}, quiet())
	r := NewResizeController(bus, gate, s, DefaultResizeConfig(), quiet())

	if !d.Begin("a", layout.Point{}) {
		t.Fatalf("drag should start")
	}
	if r.Begin("b", layout.Point{}) {
		t.Fatalf("resize must be refused while dragging")
	}
	d.End(layout.Point{})
	if !r.Begin("b", layout.Point{}) {
		t.Fatalf("resize should start once the drag is over")
	}
	if d.Begin("a", layout.Point{}) {
		t.Fatalf("drag must be refused while resizing")
	}
	if d.Begin("missing", layout.Point{}) || gate.Owner() != "resize" {
		t.Fatalf("unknown tiles never take the gate")
	}
}

func TestConstrain(t *testing.T) {
	cfg := ResizeConfig{MinSize: 50, MaxSize: 500, PreserveAspect: true}
	start := layout.Size{Width: 200, Height: 100}
	cases := []struct {
		name  string
		cfg   ResizeConfig
		delta layout.Point
		want  layout.Size
	}{
		{"grow", cfg, layout.Point{X: 100}, layout.Size{Width: 300, Height: 150}},
		{"shrink_hits_min_height", cfg, layout.Point{X: -180}, layout.Size{Width: 100, Height: 50}},
		{"grow_hits_max_width", cfg, layout.Point{X: 1000}, layout.Size{Width: 500, Height: 250}},
		{"free_axes", ResizeConfig{MinSize: 50, MaxSize: 500}, layout.Point{X: 10, Y: -80}, layout.Size{Width: 210, Height: 50}},
		{"snap_then_derive", ResizeConfig{MinSize: 50, MaxSize: 500, PreserveAspect: true, Snap: 25}, layout.Point{X: 13}, layout.Size{Width: 225, Height: 112.5}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := c.cfg.Constrain(start, start.Aspect(), c.delta)
			if math.Abs(got.Width-c.want.Width) > 1e-9 || math.Abs(got.Height-c.want.Height) > 1e-9 {
				t.Fatalf("Constrain = %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestResizeKeepsAspectAndRange(t *testing.T) {
	for _, aspect := range []float64{0.25, 0.75, 1, 1.6, 4} {
		s := newFakeSurface(map[string]layout.Rect{"a": {X: 10, Y: 10, Width: 100 * aspect, Height: 100}})
		bus := events.NewBus(quiet())
		cfg := DefaultResizeConfig()
		var moves []events.ResizeMoved
		var end events.ResizeEnded
		events.On(bus, func(e events.ResizeMoved) { moves = append(moves, e) })
		events.On(bus, func(e events.ResizeEnded) { end = e })

		r := NewResizeController(bus, &Gate{}, s, cfg, quiet())
		r.Begin("a", layout.Point{})
		for dx := -3000.0; dx <= 3000; dx += 125 {
			r.Move(layout.Point{X: dx, Y: dx / 3})
		}
		r.End(layout.Point{X: -3000})

		for _, m := range moves {
			if math.Abs(m.Size.Aspect()-aspect) > 1e-6 {
				t.Fatalf("aspect %v drifted to %v at %+v", aspect, m.Size.Aspect(), m.Size)
			}
		}
		for _, v := range []float64{end.Size.Width, end.Size.Height} {
			if v < cfg.MinSize || v > cfg.MaxSize {
				t.Fatalf("committed size %+v outside [%v, %v]", end.Size, cfg.MinSize, cfg.MaxSize)
			}
		}
	}
}

func TestResizeOverlapPolicy(t *testing.T) {
	cases := []struct {
		name         string
		allowOverlap bool
		want         Outcome
	}{
		{"allowed_by_default", true, OutcomeCommitted},
		{"reverted_when_disallowed", false, OutcomeReverted},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := twoTiles()
			bus := events.NewBus(quiet())
			sawOverlap := false
			events.On(bus, func(e events.ResizeMoved) { sawOverlap = sawOverlap || e.Overlap })

			cfg := DefaultResizeConfig()
			cfg.AllowOverlap = c.allowOverlap
			r := NewResizeController(bus, &Gate{}, s, cfg, quiet())
			r.Begin("a", layout.Point{})
			r.Move(layout.Point{X: 250})
			if got := r.End(layout.Point{X: 250}); got != c.want {
				t.Fatalf("outcome = %v, want %v", got, c.want)
			}
			if !sawOverlap {
				t.Fatalf("ResizeMoved should report the overlap")
			}
			wantWidth := 350.0
			if !c.allowOverlap {
				wantWidth = 100
			}
			if s.rects["a"].Width != wantWidth {
				t.Fatalf("width = %v, want %v", s.rects["a"].Width, wantWidth)
			}
		})
	}
}
