package ui

import (
	"image/color"

	"github.com/ebitenui/ebitenui"
	"github.com/ebitenui/ebitenui/widget"

	"github.com/milk9111/mosaic/events"
	"github.com/milk9111/mosaic/state"
)

const (
	maxPreviews  = 12
	previewWidth = 64
)

type widgets struct {
	status     *widget.Text
	toastInfo  *widget.Container
	infoText   *widget.Text
	toastError *widget.Container
	errorText  *widget.Text
	links      *widget.Container
	confirm    *widget.Container
	errPanel   *widget.Container
}

func show(c *widget.Container, visible bool) {
	if c == nil {
		return
	}
	if visible {
		c.GetWidget().Visibility = widget.Visibility_Show
	} else {
		c.GetWidget().Visibility = widget.Visibility_Hide
	}
}

// build recreates the whole tree from the UI's state.
func (u *UI) build() {
	p := u.Palette()
	u.w = widgets{}

	root := widget.NewContainer(widget.ContainerOpts.Layout(widget.NewAnchorLayout()))
	root.AddChild(u.buildToolbar(p))
	root.AddChild(u.buildLinksPanel(p))
	u.w.toastInfo, u.w.infoText = u.buildToast(p, p.ToastInfo)
	u.w.toastError, u.w.errorText = u.buildToast(p, p.ToastError)
	root.AddChild(u.w.toastInfo)
	root.AddChild(u.w.toastError)
	root.AddChild(u.buildConfirm(p))
	root.AddChild(u.buildErrorPanel(p))

	u.root = &ebitenui.UI{Container: root}
	u.shownToast = ""
	u.sync()
	u.logger.Debug("ui built", "theme", u.theme, "previews", len(u.previews))
}

// sync applies visibility and label state to the current tree.
func (u *UI) sync() {
	now := u.now()
	toastOn := u.toast.visible(now)
	show(u.w.toastInfo, toastOn && u.toast.kind == Info)
	show(u.w.toastError, toastOn && u.toast.kind == Error)
	if toastOn && u.toast.message != u.shownToast {
		u.w.infoText.Label = u.toast.message
		u.w.errorText.Label = u.toast.message
		u.shownToast = u.toast.message
		u.root.Container.RequestRelayout()
	}
	show(u.w.links, u.showLinks)
	show(u.w.confirm, u.confirming)
	show(u.w.errPanel, u.errTitle != "")
}

func (u *UI) label(s string, c color.Color) *widget.Text {
	return widget.NewText(
		widget.TextOpts.Text(s, &u.face, c),
		widget.TextOpts.WidgetOpts(widget.WidgetOpts.LayoutData(widget.RowLayoutData{Position: widget.RowLayoutPositionCenter})),
	)
}

func (u *UI) button(p Palette, label string, onClick func()) *widget.Button {
	return widget.NewButton(
		widget.ButtonOpts.Image(p.buttonImage()),
		widget.ButtonOpts.Text(label, &u.face, p.buttonText()),
		widget.ButtonOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(96, 28),
			widget.WidgetOpts.LayoutData(widget.RowLayoutData{Position: widget.RowLayoutPositionCenter}),
		),
		widget.ButtonOpts.ClickedHandler(func(args *widget.ButtonClickedEventArgs) {
			onClick()
		}),
	)
}

func row(spacing int) *widget.Container {
	return widget.NewContainer(
		widget.ContainerOpts.Layout(
			widget.NewRowLayout(
				widget.RowLayoutOpts.Direction(widget.DirectionHorizontal),
				widget.RowLayoutOpts.Spacing(spacing),
			),
		),
	)
}

func themeLabel(t state.Theme) string {
	if t == state.ThemeDark {
		return "Light mode"
	}
	return "Dark mode"
}

func (u *UI) buildToolbar(p Palette) *widget.Container {
	bar := widget.NewContainer(
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
				HorizontalPosition: widget.AnchorLayoutPositionStart,
				VerticalPosition:   widget.AnchorLayoutPositionStart,
				StretchHorizontal:  true,
			}),
		),
		widget.ContainerOpts.Layout(
			widget.NewRowLayout(
				widget.RowLayoutOpts.Direction(widget.DirectionHorizontal),
				widget.RowLayoutOpts.Spacing(8),
				widget.RowLayoutOpts.Padding(&widget.Insets{Top: 6, Bottom: 6, Left: 8, Right: 8}),
			),
		),
		widget.ContainerOpts.BackgroundImage(solidNineSlice(p.Bar)),
	)

	bar.AddChild(u.button(p, themeLabel(u.theme), func() {
		u.bus.Publish(events.ThemeToggleRequested{})
	}))
	bar.AddChild(u.button(p, "Reset", u.ConfirmReset))
	bar.AddChild(u.button(p, "Links", u.ToggleLinks))

	u.w.status = u.label(u.status, p.Muted)
	bar.AddChild(u.w.status)
	return bar
}

func (u *UI) buildToast(p Palette, bg color.Color) (*widget.Container, *widget.Text) {
	box := widget.NewContainer(
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
				HorizontalPosition: widget.AnchorLayoutPositionCenter,
				VerticalPosition:   widget.AnchorLayoutPositionEnd,
			}),
		),
		widget.ContainerOpts.Layout(
			widget.NewRowLayout(
				widget.RowLayoutOpts.Padding(&widget.Insets{Top: 8, Bottom: 8, Left: 16, Right: 16}),
			),
		),
		widget.ContainerOpts.BackgroundImage(solidNineSlice(bg)),
	)
	txt := u.label("", p.ToastText)
	box.AddChild(txt)
	box.GetWidget().Visibility = widget.Visibility_Hide
	return box, txt
}

// overlay is the full-window shade modal dialogs sit on.
func overlay(p Palette) *widget.Container {
	o := widget.NewContainer(
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
				HorizontalPosition: widget.AnchorLayoutPositionCenter,
				VerticalPosition:   widget.AnchorLayoutPositionCenter,
				StretchHorizontal:  true,
				StretchVertical:    true,
			}),
			widget.WidgetOpts.MinSize(1, 1),
		),
		widget.ContainerOpts.Layout(widget.NewAnchorLayout()),
		widget.ContainerOpts.BackgroundImage(solidNineSlice(p.Shade)),
	)
	o.GetWidget().Visibility = widget.Visibility_Hide
	return o
}

func dialog(p Palette, minW, minH int) *widget.Container {
	return widget.NewContainer(
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(minW, minH),
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
				HorizontalPosition: widget.AnchorLayoutPositionCenter,
				VerticalPosition:   widget.AnchorLayoutPositionCenter,
			}),
		),
		widget.ContainerOpts.BackgroundImage(solidNineSlice(p.Dialog)),
		widget.ContainerOpts.Layout(
			widget.NewRowLayout(
				widget.RowLayoutOpts.Direction(widget.DirectionVertical),
				widget.RowLayoutOpts.Spacing(10),
				widget.RowLayoutOpts.Padding(&widget.Insets{Top: 20, Bottom: 20, Left: 30, Right: 30}),
			),
		),
	)
}

func (u *UI) buildConfirm(p Palette) *widget.Container {
	o := overlay(p)
	d := dialog(p, 360, 140)
	d.AddChild(u.label("Reset layout?", p.DialogText))
	d.AddChild(u.label("Every saved position and size will be cleared.", p.Muted))

	buttons := row(8)
	buttons.GetWidget().LayoutData = widget.RowLayoutData{Position: widget.RowLayoutPositionCenter}
	buttons.AddChild(u.button(p, "Reset", func() {
		u.confirming = false
		u.sync()
		u.bus.Publish(events.ResetRequested{})
	}))
	buttons.AddChild(u.button(p, "Cancel", func() {
		u.confirming = false
		u.sync()
	}))
	d.AddChild(buttons)
	o.AddChild(d)
	u.w.confirm = o
	return o
}

func (u *UI) buildErrorPanel(p Palette) *widget.Container {
	o := overlay(p)
	d := dialog(p, 420, 160)
	d.AddChild(u.label(u.errTitle, p.ToastError))
	for _, line := range wrap(u.errDetail, previewWidth) {
		d.AddChild(u.label(line, p.DialogText))
	}

	buttons := row(8)
	buttons.GetWidget().LayoutData = widget.RowLayoutData{Position: widget.RowLayoutPositionCenter}
	if u.retry != nil {
		buttons.AddChild(u.button(p, "Retry", func() {
			u.ClearError()
			u.retry()
		}))
	}
	buttons.AddChild(u.button(p, "Quit", func() { u.quit = true }))
	d.AddChild(buttons)
	o.AddChild(d)
	u.w.errPanel = o
	return o
}

// buildLinksPanel returns the panel wrapped in a container that keeps it
// clear of the toolbar.
func (u *UI) buildLinksPanel(p Palette) *widget.Container {
	wrapper := widget.NewContainer(
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
				HorizontalPosition: widget.AnchorLayoutPositionEnd,
				VerticalPosition:   widget.AnchorLayoutPositionStart,
			}),
		),
		widget.ContainerOpts.Layout(
			widget.NewRowLayout(
				widget.RowLayoutOpts.Padding(&widget.Insets{Top: 52, Right: 12}),
			),
		),
	)
	panel := widget.NewContainer(
		widget.ContainerOpts.WidgetOpts(widget.WidgetOpts.MinSize(320, 80)),
		widget.ContainerOpts.BackgroundImage(solidNineSlice(p.Dialog)),
		widget.ContainerOpts.Layout(
			widget.NewRowLayout(
				widget.RowLayoutOpts.Direction(widget.DirectionVertical),
				widget.RowLayoutOpts.Spacing(4),
				widget.RowLayoutOpts.Padding(&widget.Insets{Top: 12, Bottom: 12, Left: 14, Right: 14}),
			),
		),
	)
	panel.AddChild(u.label("Links", p.DialogText))
	if len(u.previews) == 0 {
		panel.AddChild(u.label("No links found", p.Muted))
	}
	for i, pv := range u.previews {
		if i == maxPreviews {
			panel.AddChild(u.label(clip("and more...", previewWidth), p.Muted))
			break
		}
		panel.AddChild(u.label(clip(pv.Title, previewWidth), p.DialogText))
		if pv.Description != "" {
			panel.AddChild(u.label(clip(pv.Description, previewWidth), p.Muted))
		}
		panel.AddChild(u.label(clip(pv.URL, previewWidth), p.Muted))
	}
	wrapper.AddChild(panel)
	wrapper.GetWidget().Visibility = widget.Visibility_Hide
	u.w.links = wrapper
	return wrapper
}
