package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"
	"golang.design/x/clipboard"

	"github.com/milk9111/mosaic/config"
	"github.com/milk9111/mosaic/events"
	"github.com/milk9111/mosaic/interact"
	"github.com/milk9111/mosaic/layout"
	"github.com/milk9111/mosaic/links"
	"github.com/milk9111/mosaic/metadata"
	"github.com/milk9111/mosaic/state"
	"github.com/milk9111/mosaic/storage"
	"github.com/milk9111/mosaic/tile"
	"github.com/milk9111/mosaic/ui"
)

// toolbarHeight is the strip at the top of the window the canvas starts
// below.
const toolbarHeight = 44.0

type metaResult struct {
	records []metadata.Record
	err     error
	reason  string
}

// Game wires every component together and runs on ebiten's goroutine.
// Background work reports back over channels drained in Update.
type Game struct {
	cfg    config.Config
	logger *log.Logger
	ctx    context.Context
	cancel context.CancelFunc
	client *http.Client

	bus     *events.Bus
	storage *storage.Storage
	store   *state.Store
	engine  *layout.Engine
	tiles   *tile.Set
	gate    *interact.Gate
	drag    *interact.DragController
	resize  *interact.ResizeController
	loader  *tile.Loader
	ui      *ui.UI
	input   *Input
	watcher *metadata.Watcher
	links   *links.Service
	subs    []events.Subscription

	metaCh     chan metaResult
	fetching   bool
	refetch    string
	linksCh    chan []links.Preview
	linksBusy  bool
	linksAgain bool
	records    []metadata.Record
	loaded     bool
	fatal      error
	docPath    string
	linksPath  string
	view       layout.Size
	scroll     layout.Point
	hovered    string
	focused    bool
	clipInit   bool
	clipErr    error
}

// NewGame builds the component graph and starts loading the metadata
// document in the background.
func NewGame(ctx context.Context, cfg config.Config, logger *log.Logger) (*Game, error) {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	g := &Game{
		cfg:     cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		bus:     events.NewBus(logger),
		input:   NewInput(),
		gate:    &interact.Gate{},
		metaCh:  make(chan metaResult, 1),
		linksCh: make(chan []links.Preview, 1),
		view:    layout.Size{Width: float64(cfg.Window.Width), Height: float64(cfg.Window.Height)},
		focused: true,
	}

	chrome, err := ui.New(g.bus, state.ThemeLight, ui.WithLogger(logger), ui.WithRetry(func() { g.fetchMetadata("") }))
	if err != nil {
		cancel()
		return nil, err
	}
	g.ui = chrome

	backend := openBackend(cfg, logger)
	g.storage = newStorage(backend, cfg, logger, func(reason string) {
		g.bus.Publish(events.StorageDegraded{Reason: reason})
	})
	if n := g.storage.Cleanup(); n > 0 {
		logger.Info("removed stale entries", "count", n)
	}
	g.store = state.New(g.storage, g.bus, state.WithLogger(logger), state.WithExpiry(cfg.Storage.Expiry))
	if cfg.Theme != "" && !g.storage.Has(state.KeyTheme) {
		g.store.SetTheme(state.Theme(cfg.Theme))
	}
	g.ui.SetTheme(g.store.GetTheme())

	g.engine = layout.NewEngine(cfg.LayoutOptions(), cfg.Layout.Seed)
	g.tiles = tile.NewSet(g.canvasSize)
	g.drag = interact.NewDragController(g.bus, g.gate, g.tiles, cfg.DragConfig(), logger)
	g.resize = interact.NewResizeController(g.bus, g.gate, g.tiles, cfg.ResizeConfig(), logger)

	fetch, err := g.imageFetcher()
	if err != nil {
		cancel()
		return nil, err
	}
	g.loader = tile.NewLoader(fetch, cfg.LoadDelay, logger)

	// The link cache gets its own Storage: it is only touched from the
	// preview goroutine.
	g.links = newLinkService(cfg, g.client, newStorage(backend, cfg, logger, nil), logger)

	g.subs = []events.Subscription{
		events.On(g.bus, func(events.StateReset) { g.rebuild() }),
		events.On(g.bus, func(e events.DragStarted) { g.tiles.Raise(e.Filename) }),
		events.On(g.bus, func(e events.ResizeStarted) { g.tiles.Raise(e.Filename) }),
	}

	if !metadata.IsURL(cfg.Document) {
		g.docPath, _ = filepath.Abs(cfg.Document)
	}
	if cfg.Links.Document != "" {
		g.linksPath, _ = filepath.Abs(cfg.Links.Document)
	}
	if cfg.Watch {
		g.startWatcher()
	}

	g.fetchMetadata("")
	g.fetchLinks()
	return g, nil
}

func (g *Game) imageFetcher() (tile.Fetcher, error) {
	if g.cfg.ImageDir == "" && metadata.IsURL(g.cfg.Document) {
		base, err := url.Parse(g.cfg.Document)
		if err != nil {
			return nil, fmt.Errorf("mosaic: document url: %w", err)
		}
		return tile.HTTPFetcher(g.client, base), nil
	}
	return tile.DirFetcher(g.cfg.ImageRoot()), nil
}

// Err is the fatal error left unresolved when the window closed.
func (g *Game) Err() error { return g.fatal }

func (g *Game) Close() {
	g.cancel()
	g.loader.Stop()
	if g.watcher != nil {
		_ = g.watcher.Close()
	}
	for _, s := range g.subs {
		s.Unsubscribe()
	}
	g.store.Close()
	g.ui.Close()
	g.tiles.Clear()
}

// fetchMetadata loads the document in the background. A request made while
// one is in flight runs once that one lands.
func (g *Game) fetchMetadata(reason string) {
	if g.fetching {
		g.refetch = reason
		if reason == "" {
			g.refetch = "metadata changed"
		}
		return
	}
	g.fetching = true
	g.ui.ClearError()
	go func() {
		ctx, cancel := context.WithTimeout(g.ctx, g.cfg.FetchTimeout)
		defer cancel()
		records, err := metadata.Fetch(ctx, g.cfg.Document, g.client, g.logger)
		select {
		case g.metaCh <- metaResult{records: records, err: err, reason: reason}:
		case <-g.ctx.Done():
		}
	}()
}

func (g *Game) drainMetadata() {
	select {
	case r := <-g.metaCh:
		g.fetching = false
		g.onMetadata(r)
		if g.refetch != "" {
			reason := g.refetch
			g.refetch = ""
			g.fetchMetadata(reason)
		}
	default:
	}
}

func (g *Game) onMetadata(r metaResult) {
	if r.err != nil {
		g.logger.Error("metadata unavailable", "document", g.cfg.Document, "err", r.err)
		if g.loaded {
			// Keep the current layout when a reload fails.
			g.ui.Toast("Reload failed, keeping the current layout", ui.Error)
			return
		}
		g.fatal = r.err
		g.ui.ShowError("Could not load image metadata", r.err)
		return
	}
	g.fatal = nil
	g.loaded = true
	g.records = r.records
	g.rebuild()
	if r.reason != "" {
		g.bus.Publish(events.LayoutReloaded{Reason: r.reason})
	}
}

// rebuild recreates every tile from the current records and saved state.
func (g *Game) rebuild() {
	g.drag.Cancel()
	g.resize.Cancel()
	g.loader.Stop()
	g.tiles.Clear()

	natural := make(map[string]metadata.Record, len(g.records))
	src := make([]layout.Source, 0, len(g.records))
	for _, r := range g.records {
		natural[r.Filename] = r
		src = append(src, layout.Source{Key: r.Filename, Width: r.Width, Height: r.Height})
	}

	placed := g.engine.Arrange(src, g.store.Rects(), g.view.Width, g.canvasView().Height)
	names := make([]string, 0, len(placed))
	fresh := 0
	for i, p := range placed {
		rec := natural[p.Key]
		g.tiles.Add(tile.New(p.Key, i, rec.Width, rec.Height, p.Rect))
		names = append(names, p.Key)
		if p.Fresh {
			fresh++
			g.store.SetImageState(p.Key, state.Placement{Position: p.Rect.Position(), Size: p.Rect.Size()})
		}
	}
	g.clampScroll()
	g.loader.Start(g.ctx, names)
	g.logger.Info("layout ready", "images", len(placed), "placed", fresh)
}

func (g *Game) drainLoader() {
	for _, r := range g.loader.Drain() {
		t, ok := g.tiles.Get(r.Filename)
		if !ok {
			continue
		}
		if r.Err != nil {
			t.Fail(r.Err)
			g.bus.Publish(events.ImageFailed{Filename: r.Filename, Err: r.Err})
			continue
		}
		t.SetFrames(tile.NewAnimation(r.Decoded), r.Decoded.Width, r.Decoded.Height)
		g.bus.Publish(events.ImageLoaded{Filename: r.Filename, Width: r.Decoded.Width, Height: r.Decoded.Height})
	}
}

// fetchLinks previews the links document in the background. Only one fetch
// runs at a time since the link cache is not shared between goroutines.
func (g *Game) fetchLinks() {
	if g.cfg.Links.Document == "" {
		return
	}
	if g.linksBusy {
		g.linksAgain = true
		return
	}
	g.linksBusy = true
	path := g.cfg.Links.Document
	go func() {
		var previews []links.Preview
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			g.logger.Debug("no links document", "path", path)
		case err != nil:
			g.logger.Warn("links document unreadable", "path", path, "err", err)
		default:
			previews = g.links.PreviewAll(g.ctx, links.Extract(string(data)))
		}
		select {
		case g.linksCh <- previews:
		case <-g.ctx.Done():
		}
	}()
}

func (g *Game) drainLinks() {
	select {
	case previews := <-g.linksCh:
		g.linksBusy = false
		g.ui.SetPreviews(previews)
		for _, p := range previews {
			g.bus.Publish(events.LinkPreviewReady{URL: p.URL, Title: p.Title, Description: p.Description, Provider: p.Provider})
		}
		if g.linksAgain {
			g.linksAgain = false
			g.fetchLinks()
		}
	default:
	}
}

func (g *Game) startWatcher() {
	var files []string
	if g.docPath != "" {
		files = append(files, g.docPath)
	}
	if g.linksPath != "" {
		files = append(files, g.linksPath)
	}
	if len(files) == 0 {
		return
	}
	w, err := metadata.NewWatcher(files...)
	if err != nil {
		g.logger.Warn("file watching disabled", "err", err)
		return
	}
	g.watcher = w
}

func (g *Game) drainWatcher() {
	if g.watcher == nil {
		return
	}
	for {
		select {
		case p, ok := <-g.watcher.Events:
			if !ok {
				g.watcher = nil
				return
			}
			g.logger.Debug("file changed", "path", p)
			switch p {
			case g.docPath:
				g.fetchMetadata("metadata changed")
			case g.linksPath:
				g.fetchLinks()
			}
		case err, ok := <-g.watcher.Errors:
			if !ok {
				g.watcher = nil
				return
			}
			g.logger.Warn("watch error", "err", err)
		default:
			return
		}
	}
}

func (g *Game) Update() error {
	g.input.Update()
	if g.input.Quit || g.ui.QuitRequested() {
		return ebiten.Termination
	}
	g.checkFocus()

	g.drainMetadata()
	g.drainLoader()
	g.drainLinks()
	g.drainWatcher()

	g.ui.Update()
	if g.ui.QuitRequested() {
		return ebiten.Termination
	}
	g.settleModal(g.ui.Modal())
	if !g.ui.Modal() {
		g.handleKeys()
		g.handlePointer()
		g.handleScroll()
	} else if g.input.Cancel {
		g.ui.Dismiss()
	}

	g.tiles.Update()
	g.ui.SetStatus(g.status())
	return nil
}

// settleModal abandons any drag or resize while a dialog owns the input.
// The release lands on the dialog, so the interaction would otherwise stay
// open and hold the gate.
func (g *Game) settleModal(modal bool) {
	if !modal {
		return
	}
	g.drag.Cancel()
	g.resize.Cancel()
}

// checkFocus abandons any interaction when the window loses focus; the
// release would never be seen.
func (g *Game) checkFocus() {
	focused := ebiten.IsFocused()
	if g.focused && !focused {
		g.drag.Cancel()
		g.resize.Cancel()
		g.input.Reset()
		g.input.Gesture = gesture{}
	}
	g.focused = focused
}

func (g *Game) handleKeys() {
	in := g.input
	switch {
	case in.Cancel:
		switch {
		case g.drag.Active():
			g.drag.Cancel()
		case g.resize.Active():
			g.resize.Cancel()
		default:
			g.ui.Dismiss()
		}
	case in.ToggleTheme:
		g.bus.Publish(events.ThemeToggleRequested{})
	case in.ResetLayout:
		g.ui.ConfirmReset()
	case in.ToggleLinks:
		g.ui.ToggleLinks()
	case in.Copy:
		g.copyHovered()
	}
}

func (g *Game) handlePointer() {
	in := g.input
	pos := g.toCanvas(in.Cursor)
	g.updateHover(pos)

	switch in.Gesture.Kind {
	case gestureDragStart:
		if g.ui.Hovered() {
			return
		}
		start := g.toCanvas(in.Gesture.Start)
		hit, ok := g.tiles.At(start)
		if !ok {
			return
		}
		if hit.Handle {
			if g.resize.Begin(hit.Tile.Filename, start) {
				g.resize.Move(pos)
			}
		} else if g.drag.Begin(hit.Tile.Filename, start) {
			g.drag.Move(pos)
		}
	case gestureDrag:
		switch {
		case g.drag.Active():
			g.drag.Move(pos)
		case g.resize.Active():
			g.resize.Move(pos)
		}
	case gestureDragEnd:
		switch {
		case g.drag.Active():
			g.logger.Debug("drag finished", "outcome", g.drag.End(pos))
		case g.resize.Active():
			g.logger.Debug("resize finished", "outcome", g.resize.End(pos))
		}
	case gestureClick:
		if g.ui.Hovered() {
			return
		}
		if hit, ok := g.tiles.At(pos); ok {
			g.tiles.Raise(hit.Tile.Filename)
		}
	}
}

func (g *Game) updateHover(pos layout.Point) {
	shape := ebiten.CursorShapeDefault
	switch {
	case g.drag.Active():
		shape = ebiten.CursorShapeMove
		if g.drag.Overlap() {
			shape = ebiten.CursorShapeNotAllowed
		}
	case g.resize.Active():
		shape = ebiten.CursorShapeNWSEResize
	case g.ui.Hovered():
		g.hovered = ""
	default:
		g.hovered = ""
		if hit, ok := g.tiles.At(pos); ok {
			g.hovered = hit.Tile.Filename
			shape = ebiten.CursorShapePointer
			if hit.Handle {
				shape = ebiten.CursorShapeNWSEResize
			}
		}
	}
	ebiten.SetCursorShape(shape)
}

func (g *Game) copyHovered() {
	if g.hovered == "" {
		return
	}
	if !g.clipInit {
		g.clipInit = true
		g.clipErr = clipboard.Init()
		if g.clipErr != nil {
			g.logger.Warn("clipboard unavailable", "err", g.clipErr)
		}
	}
	if g.clipErr != nil {
		g.ui.Toast("Clipboard unavailable", ui.Error)
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(g.hovered))
	g.ui.Toast("Copied "+g.hovered, ui.Info)
}

func (g *Game) handleScroll() {
	if g.input.Wheel == (layout.Point{}) && g.input.Pan == (layout.Point{}) {
		return
	}
	g.scroll = g.scroll.Sub(g.input.Wheel).Sub(g.input.Pan)
	g.clampScroll()
	// Keep an active interaction under the pointer while the canvas moves.
	pos := g.toCanvas(g.input.Cursor)
	switch {
	case g.drag.Active():
		g.drag.Move(pos)
	case g.resize.Active():
		g.resize.Move(pos)
	}
}

func (g *Game) clampScroll() {
	ext := g.tiles.Extent(g.cfg.Layout.Margin)
	v := g.canvasView()
	g.scroll.X = min(max(g.scroll.X, 0), max(0, ext.Width-v.Width))
	g.scroll.Y = min(max(g.scroll.Y, 0), max(0, ext.Height-v.Height))
}

// canvasView is the visible part of the canvas below the toolbar.
func (g *Game) canvasView() layout.Size {
	return layout.Size{Width: g.view.Width, Height: max(1, g.view.Height-toolbarHeight)}
}

// canvasSize is what drags are clamped against: the window width and at
// least the height of the content.
func (g *Game) canvasSize() layout.Size {
	v := g.canvasView()
	ext := g.tiles.Extent(g.cfg.Layout.Margin)
	return layout.Size{Width: v.Width, Height: max(v.Height, ext.Height)}
}

func (g *Game) toCanvas(screen layout.Point) layout.Point {
	return screen.Add(g.scroll).Sub(layout.Point{Y: toolbarHeight})
}

func (g *Game) status() string {
	n := g.tiles.Len()
	if n == 0 {
		if g.fetching {
			return "Loading metadata..."
		}
		return "No images"
	}
	loading := 0
	for _, t := range g.tiles.Tiles() {
		if t.Loading {
			loading++
		}
	}
	s := fmt.Sprintf("%d images", n)
	if loading > 0 {
		s += fmt.Sprintf(", %d loading", loading)
	}
	if !g.storage.Persistent() {
		s += ", not saving"
	}
	return s
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(g.ui.Palette().Background)

	style := g.ui.TileStyle()
	offset := g.scroll.Sub(layout.Point{Y: toolbarHeight})
	visible := layout.RectAt(g.scroll, g.canvasView())
	for _, t := range g.tiles.Tiles() {
		if !t.Rect().Overlaps(visible, 0) {
			continue
		}
		tile.Draw(screen, t, offset, style)
	}

	g.ui.Draw(screen)
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	g.view = layout.Size{Width: outsideWidth, Height: outsideHeight}
	return outsideWidth, outsideHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := g.LayoutF(float64(outsideWidth), float64(outsideHeight))
	return int(w), int(h)
}
