package events

import "github.com/milk9111/mosaic/layout"

// Name identifies an event kind on the bus.
type Name string

const (
	NameDragStarted          Name = "drag:start"
	NameDragMoved            Name = "drag:move"
	NameDragEnded            Name = "drag:end"
	NameDragCancelled        Name = "drag:cancel"
	NameResizeStarted        Name = "resize:start"
	NameResizeMoved          Name = "resize:move"
	NameResizeEnded          Name = "resize:end"
	NameResizeCancelled      Name = "resize:cancel"
	NameStateSaved           Name = "state:saved"
	NameStateReset           Name = "state:reset"
	NameResetRequested       Name = "state:reset-request"
	NameThemeUpdated         Name = "theme:updated"
	NameThemeToggleRequested Name = "theme:toggle-request"
	NameImageLoaded          Name = "image:loaded"
	NameImageFailed          Name = "image:error"
	NameStorageDegraded      Name = "storage:degraded"
	NameLayoutReloaded       Name = "layout:reloaded"
	NameLinkPreviewReady     Name = "links:preview"
)

// Event is implemented by every payload type that can travel on the bus.
// The set is closed: only types in this package implement it.
type Event interface {
	Name() Name
	event()
}

// CancelReason explains why an interaction was rolled back.
type CancelReason string

const (
	ReasonOverlap CancelReason = "overlap"
	ReasonAborted CancelReason = "aborted"
)

type DragStarted struct {
	Filename string
	Origin   layout.Point
}

type DragMoved struct {
	Filename string
	Position layout.Point
	// Overlap reports whether the proposed position collides with another tile.
	Overlap bool
}

type DragEnded struct {
	Filename string
	Position layout.Point
	Size     layout.Size
}

type DragCancelled struct {
	Filename string
	Origin   layout.Point
	Reason   CancelReason
}

type ResizeStarted struct {
	Filename string
	Size     layout.Size
}

type ResizeMoved struct {
	Filename string
	Size     layout.Size
	Overlap  bool
}

type ResizeEnded struct {
	Filename string
	Position layout.Point
	Size     layout.Size
}

type ResizeCancelled struct {
	Filename string
	Size     layout.Size
	Reason   CancelReason
}

type StateSaved struct {
	Filename string
}

type StateReset struct{}

type ResetRequested struct{}

type ThemeUpdated struct {
	Theme string
}

type ThemeToggleRequested struct{}

type ImageLoaded struct {
	Filename string
	Width    int
	Height   int
}

type ImageFailed struct {
	Filename string
	Err      error
}

type StorageDegraded struct {
	Reason string
}

type LayoutReloaded struct {
	Reason string
}

type LinkPreviewReady struct {
	URL         string
	Title       string
	Description string
	Provider    string
}

func (DragStarted) Name() Name          { return NameDragStarted }
func (DragMoved) Name() Name            { return NameDragMoved }
func (DragEnded) Name() Name            { return NameDragEnded }
func (DragCancelled) Name() Name        { return NameDragCancelled }
func (ResizeStarted) Name() Name        { return NameResizeStarted }
func (ResizeMoved) Name() Name          { return NameResizeMoved }
func (ResizeEnded) Name() Name          { return NameResizeEnded }
func (ResizeCancelled) Name() Name      { return NameResizeCancelled }
func (StateSaved) Name() Name           { return NameStateSaved }
func (StateReset) Name() Name           { return NameStateReset }
func (ResetRequested) Name() Name       { return NameResetRequested }
func (ThemeUpdated) Name() Name         { return NameThemeUpdated }
func (ThemeToggleRequested) Name() Name { return NameThemeToggleRequested }
func (ImageLoaded) Name() Name          { return NameImageLoaded }
func (ImageFailed) Name() Name          { return NameImageFailed }
func (StorageDegraded) Name() Name      { return NameStorageDegraded }
func (LayoutReloaded) Name() Name       { return NameLayoutReloaded }
func (LinkPreviewReady) Name() Name     { return NameLinkPreviewReady }

func (DragStarted) event()          {}
func (DragMoved) event()            {}
func (DragEnded) event()            {}
func (DragCancelled) event()        {}
func (ResizeStarted) event()        {}
func (ResizeMoved) event()          {}
func (ResizeEnded) event()          {}
func (ResizeCancelled) event()      {}
func (StateSaved) event()           {}
func (StateReset) event()           {}
func (ResetRequested) event()       {}
func (ThemeUpdated) event()         {}
func (ThemeToggleRequested) event() {}
func (ImageLoaded) event()          {}
func (ImageFailed) event()          {}
func (StorageDegraded) event()      {}
func (LayoutReloaded) event()       {}
func (LinkPreviewReady) event()     {}
