package interact

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/milk9111/mosaic/events"
	"github.com/milk9111/mosaic/layout"
)

type ResizeConfig struct {
	MinSize        float64
	MaxSize        float64
	PreserveAspect bool
	// Snap is the grid step the primary dimension rounds to; 0 disables it.
	Snap float64
	// AllowOverlap lets a resize end on top of other tiles. When false an
	// overlapping resize is reverted.
	AllowOverlap bool
	Spacing      float64
}

func DefaultResizeConfig() ResizeConfig {
	return ResizeConfig{
		MinSize:        50,
		MaxSize:        2000,
		PreserveAspect: true,
		AllowOverlap:   true,
		Spacing:        20,
	}
}

// ResizeController drags a tile's corner handle.
type ResizeController struct {
	bus     *events.Bus
	gate    *Gate
	surface Surface
	cfg     ResizeConfig
	logger  *log.Logger

	active       bool
	filename     string
	position     layout.Point
	start        layout.Size
	aspect       float64
	pointerStart layout.Point
	size         layout.Size
	overlap      bool
}

func NewResizeController(bus *events.Bus, gate *Gate, surface Surface, cfg ResizeConfig, logger *log.Logger) *ResizeController {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.MaxSize < cfg.MinSize {
		cfg.MaxSize = cfg.MinSize
	}
	return &ResizeController{bus: bus, gate: gate, surface: surface, cfg: cfg, logger: logger}
}

func (r *ResizeController) Active() bool     { return r.active }
func (r *ResizeController) Filename() string { return r.filename }

// Begin starts resizing filename from its handle.
func (r *ResizeController) Begin(filename string, pointer layout.Point) bool {
	if r.active {
		return false
	}
	rect, ok := r.surface.Rect(filename)
	if !ok || !rect.Size().Valid() {
		return false
	}
	if !r.gate.Acquire("resize") {
		return false
	}
	r.active = true
	r.filename = filename
	r.position = rect.Position()
	r.start = rect.Size()
	r.size = r.start
	r.aspect = r.start.Aspect()
	r.pointerStart = pointer
	r.overlap = false
	r.surface.SetFlags(filename, Flags{Resizing: true})
	r.bus.Publish(events.ResizeStarted{Filename: filename, Size: r.start})
	return true
}

func (r *ResizeController) Move(pointer layout.Point) {
	if !r.active {
		return
	}
	r.evaluate(pointer)
	r.surface.Resize(r.filename, r.size)
	r.surface.SetFlags(r.filename, Flags{Resizing: true, Overlap: r.overlap})
	r.bus.Publish(events.ResizeMoved{Filename: r.filename, Size: r.size, Overlap: r.overlap})
}

func (r *ResizeController) End(pointer layout.Point) Outcome {
	if !r.active {
		return OutcomeNone
	}
	r.evaluate(pointer)
	filename := r.filename
	defer r.finish()

	if r.overlap && !r.cfg.AllowOverlap {
		r.surface.Resize(filename, r.start)
		r.bus.Publish(events.ResizeCancelled{Filename: filename, Size: r.start, Reason: events.ReasonOverlap})
		return OutcomeReverted
	}
	r.surface.Resize(filename, r.size)
	r.bus.Publish(events.ResizeEnded{Filename: filename, Position: r.position, Size: r.size})
	return OutcomeCommitted
}

// Cancel restores the size the resize started from.
func (r *ResizeController) Cancel() {
	if !r.active {
		return
	}
	filename := r.filename
	r.surface.Resize(filename, r.start)
	r.finish()
	r.bus.Publish(events.ResizeCancelled{Filename: filename, Size: r.start, Reason: events.ReasonAborted})
}

func (r *ResizeController) evaluate(pointer layout.Point) {
	delta := pointer.Sub(r.pointerStart)
	r.size = r.cfg.Constrain(r.start, r.aspect, delta)
	r.overlap = layout.RectAt(r.position, r.size).OverlapsAny(r.surface.Obstacles(r.filename), r.cfg.Spacing)
}

func (r *ResizeController) finish() {
	r.surface.SetFlags(r.filename, Flags{})
	r.active = false
	r.filename = ""
	r.gate.Release()
}

// Constrain computes the size for a pointer delta applied to start.
//
// Width follows the pointer. With aspect preservation the height is derived
// from the width, otherwise it follows the pointer too. Both axes are then
// clamped to [MinSize, MaxSize]; when preserving, the height is rederived
// and, if it falls outside the range, the width is recomputed from the
// violated bound. A ratio too extreme to fit both axes in range gives up
// the ratio, never the range.
func (c ResizeConfig) Constrain(start layout.Size, aspect float64, delta layout.Point) layout.Size {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}
	w := c.snap(start.Width + delta.X)
	var h float64
	if c.PreserveAspect {
		h = w / aspect
	} else {
		h = c.snap(start.Height + delta.Y)
	}

	w = c.clamp(w)
	h = c.clamp(h)
	if c.PreserveAspect {
		h = w / aspect
		switch {
		case h < c.MinSize:
			h = c.MinSize
			w = h * aspect
		case h > c.MaxSize:
			h = c.MaxSize
			w = h * aspect
		}
		w = c.clamp(w)
	}
	return layout.Size{Width: w, Height: h}
}

func (c ResizeConfig) snap(v float64) float64 {
	if c.Snap <= 0 {
		return v
	}
	return math.Round(v/c.Snap) * c.Snap
}

func (c ResizeConfig) clamp(v float64) float64 {
	return math.Min(math.Max(v, c.MinSize), c.MaxSize)
}
