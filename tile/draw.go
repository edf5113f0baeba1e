package tile

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/milk9111/mosaic/layout"
)

// Style is the palette and font tiles are drawn with.
type Style struct {
	Placeholder color.Color
	Border      color.Color
	Overlap     color.Color
	Resizing    color.Color
	Handle      color.Color
	Failed      color.Color
	Badge       color.Color
	BadgeText   color.Color
	Text        color.Color
	Face        text.Face
}

// Draw renders t at its rect shifted by -scroll.
func Draw(screen *ebiten.Image, t *Tile, scroll layout.Point, st Style) {
	r := t.Rect()
	x := float32(r.X - scroll.X)
	y := float32(r.Y - scroll.Y)
	w := float32(r.Width)
	h := float32(r.Height)

	if img := t.Image(); img != nil {
		b := img.Bounds()
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(r.Width/float64(b.Dx()), r.Height/float64(b.Dy()))
		op.GeoM.Translate(float64(x), float64(y))
		op.Filter = ebiten.FilterLinear
		if t.Flags.Dragging {
			op.ColorScale.ScaleAlpha(0.85)
		}
		screen.DrawImage(img, op)
	} else {
		vector.FillRect(screen, x, y, w, h, st.Placeholder, false)
	}

	switch {
	case t.Failed:
		vector.StrokeRect(screen, x, y, w, h, 2, st.Failed, false)
		drawLabel(screen, "failed: "+t.Filename, x+6, y+6, st.Failed, st.Face)
	case t.Loading:
		drawLabel(screen, "loading...", x+6, y+6, st.Text, st.Face)
	}

	border := st.Border
	width := float32(1)
	if t.Flags.Resizing {
		border, width = st.Resizing, 2
	}
	if t.Flags.Overlap {
		border, width = st.Overlap, 3
	}
	vector.StrokeRect(screen, x, y, w, h, width, border, false)

	hr := t.HandleRect()
	vector.FillRect(screen, float32(hr.X-scroll.X), float32(hr.Y-scroll.Y), float32(hr.Width), float32(hr.Height), st.Handle, false)

	if t.Animated() {
		vector.FillRect(screen, x+w-36, y+4, 32, 16, st.Badge, false)
		drawLabel(screen, "GIF", x+w-32, y+5, st.BadgeText, st.Face)
	}
}

func drawLabel(screen *ebiten.Image, s string, x, y float32, c color.Color, face text.Face) {
	if face == nil {
		return
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(c)
	text.Draw(screen, s, face, op)
}
