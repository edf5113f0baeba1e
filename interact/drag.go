package interact

import (
	"github.com/charmbracelet/log"

	"github.com/milk9111/mosaic/events"
	"github.com/milk9111/mosaic/layout"
)

type DragConfig struct {
	Bounds  layout.Bounds
	Spacing float64
}

// DragController moves one tile at a time. A drop that overlaps another
// tile is reverted to where the drag started.
type DragController struct {
	bus     *events.Bus
	gate    *Gate
	surface Surface
	cfg     DragConfig
	logger  *log.Logger

	active       bool
	filename     string
	size         layout.Size
	origin       layout.Point
	pointerStart layout.Point
	position     layout.Point
	overlap      bool
}

func NewDragController(bus *events.Bus, gate *Gate, surface Surface, cfg DragConfig, logger *log.Logger) *DragController {
	if logger == nil {
		logger = log.Default()
	}
	return &DragController{bus: bus, gate: gate, surface: surface, cfg: cfg, logger: logger}
}

func (d *DragController) Active() bool     { return d.active }
func (d *DragController) Filename() string { return d.filename }

// Overlap reports the live overlap flag of the current drag.
func (d *DragController) Overlap() bool { return d.active && d.overlap }

// Begin starts dragging filename from the given pointer position. It fails
// when another interaction holds the gate or the tile is unknown.
func (d *DragController) Begin(filename string, pointer layout.Point) bool {
	if d.active {
		return false
	}
	r, ok := d.surface.Rect(filename)
	if !ok {
		return false
	}
	if !d.gate.Acquire("drag") {
		return false
	}
	d.active = true
	d.filename = filename
	d.size = r.Size()
	d.origin = r.Position()
	d.position = d.origin
	d.pointerStart = pointer
	d.overlap = false
	d.surface.SetFlags(filename, Flags{Dragging: true})
	d.bus.Publish(events.DragStarted{Filename: filename, Origin: d.origin})
	return true
}

// Move previews the tile at the position implied by pointer.
func (d *DragController) Move(pointer layout.Point) {
	if !d.active {
		return
	}
	d.evaluate(pointer)
	d.surface.Move(d.filename, d.position)
	d.surface.SetFlags(d.filename, Flags{Dragging: true, Overlap: d.overlap})
	d.bus.Publish(events.DragMoved{Filename: d.filename, Position: d.position, Overlap: d.overlap})
}

// End drops the tile. An overlapping drop moves it back to its origin.
func (d *DragController) End(pointer layout.Point) Outcome {
	if !d.active {
		return OutcomeNone
	}
	d.evaluate(pointer)
	filename := d.filename
	defer d.finish()

	if d.overlap {
		d.surface.Move(filename, d.origin)
		d.logger.Debug("drop overlaps another tile, reverting", "file", filename)
		d.bus.Publish(events.DragCancelled{Filename: filename, Origin: d.origin, Reason: events.ReasonOverlap})
		return OutcomeReverted
	}
	d.surface.Move(filename, d.position)
	d.bus.Publish(events.DragEnded{Filename: filename, Position: d.position, Size: d.size})
	return OutcomeCommitted
}

// Cancel aborts the drag and restores the origin.
func (d *DragController) Cancel() {
	if !d.active {
		return
	}
	filename := d.filename
	d.surface.Move(filename, d.origin)
	d.finish()
	d.bus.Publish(events.DragCancelled{Filename: filename, Origin: d.origin, Reason: events.ReasonAborted})
}

func (d *DragController) evaluate(pointer layout.Point) {
	proposed := layout.RectAt(d.origin.Add(pointer.Sub(d.pointerStart)), d.size)
	d.position = d.cfg.Bounds.Clamp(proposed, d.surface.Canvas())
	d.overlap = layout.RectAt(d.position, d.size).OverlapsAny(d.surface.Obstacles(d.filename), d.cfg.Spacing)
}

func (d *DragController) finish() {
	d.surface.SetFlags(d.filename, Flags{})
	d.active = false
	d.filename = ""
	d.gate.Release()
}
