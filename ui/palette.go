package ui

import (
	"image/color"

	"github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2/text/v2"

	"github.com/milk9111/mosaic/state"
	"github.com/milk9111/mosaic/tile"
)

// Palette holds every color for one theme, canvas and chrome alike.
type Palette struct {
	Background color.Color

	Bar           color.Color
	Button        color.Color
	ButtonHover   color.Color
	ButtonPressed color.Color
	ButtonText    color.Color

	Shade      color.Color
	Dialog     color.Color
	DialogText color.Color
	Muted      color.Color

	ToastInfo  color.Color
	ToastError color.Color
	ToastText  color.Color

	Tile tile.Style
}

var light = Palette{
	Background:    color.RGBA{244, 243, 239, 255},
	Bar:           color.RGBA{226, 226, 236, 255},
	Button:        color.RGBA{190, 190, 200, 255},
	ButtonHover:   color.RGBA{206, 206, 216, 255},
	ButtonPressed: color.RGBA{170, 170, 182, 255},
	ButtonText:    color.Black,
	Shade:         color.RGBA{0, 0, 0, 140},
	Dialog:        color.RGBA{236, 236, 236, 255},
	DialogText:    color.Black,
	Muted:         color.RGBA{90, 90, 100, 255},
	ToastInfo:     color.RGBA{40, 120, 60, 230},
	ToastError:    color.RGBA{170, 40, 40, 235},
	ToastText:     color.White,
	Tile: tile.Style{
		Placeholder: color.RGBA{220, 220, 226, 255},
		Border:      color.RGBA{150, 150, 160, 255},
		Overlap:     color.RGBA{220, 40, 40, 255},
		Resizing:    color.RGBA{40, 110, 220, 255},
		Handle:      color.RGBA{60, 60, 70, 220},
		Failed:      color.RGBA{190, 40, 40, 255},
		Badge:       color.RGBA{0, 0, 0, 170},
		BadgeText:   color.White,
		Text:        color.RGBA{60, 60, 70, 255},
	},
}

var dark = Palette{
	Background:    color.RGBA{24, 24, 28, 255},
	Bar:           color.RGBA{44, 44, 52, 255},
	Button:        color.RGBA{70, 70, 82, 255},
	ButtonHover:   color.RGBA{86, 86, 100, 255},
	ButtonPressed: color.RGBA{58, 58, 68, 255},
	ButtonText:    color.RGBA{230, 230, 235, 255},
	Shade:         color.RGBA{0, 0, 0, 170},
	Dialog:        color.RGBA{50, 50, 58, 255},
	DialogText:    color.RGBA{235, 235, 240, 255},
	Muted:         color.RGBA{160, 160, 172, 255},
	ToastInfo:     color.RGBA{50, 140, 80, 230},
	ToastError:    color.RGBA{190, 55, 55, 235},
	ToastText:     color.White,
	Tile: tile.Style{
		Placeholder: color.RGBA{48, 48, 56, 255},
		Border:      color.RGBA{90, 90, 104, 255},
		Overlap:     color.RGBA{255, 80, 80, 255},
		Resizing:    color.RGBA{90, 160, 255, 255},
		Handle:      color.RGBA{210, 210, 220, 220},
		Failed:      color.RGBA{240, 90, 90, 255},
		Badge:       color.RGBA{255, 255, 255, 190},
		BadgeText:   color.Black,
		Text:        color.RGBA{200, 200, 210, 255},
	},
}

// PaletteFor returns the palette for theme; unknown themes get light.
func PaletteFor(theme state.Theme) Palette {
	if theme.Normalize() == state.ThemeDark {
		return dark
	}
	return light
}

// TileStyle is the palette's tile style drawn with face.
func (p Palette) TileStyle(face text.Face) tile.Style {
	st := p.Tile
	st.Face = face
	return st
}

func solidNineSlice(c color.Color) *image.NineSlice {
	return image.NewNineSliceColor(c)
}

func (p Palette) buttonImage() *widget.ButtonImage {
	return &widget.ButtonImage{
		Idle:    solidNineSlice(p.Button),
		Hover:   solidNineSlice(p.ButtonHover),
		Pressed: solidNineSlice(p.ButtonPressed),
	}
}

func (p Palette) buttonText() *widget.ButtonTextColor {
	return &widget.ButtonTextColor{
		Idle:     p.ButtonText,
		Hover:    p.ButtonText,
		Pressed:  p.ButtonText,
		Disabled: p.Muted,
	}
}
