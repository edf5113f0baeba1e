package layout

// Options holds the constants of the placement and scaling rules.
type Options struct {
	// GoalArea is the pixel area a displayed tile should roughly cover.
	GoalArea float64
	// Margin is the gap kept between tiles and the canvas edges.
	Margin float64
	// Spacing is the buffer enforced between tiles.
	Spacing float64
	// RandomAttempts bounds the randomized fallback of the placement search.
	RandomAttempts int
}

// DefaultOptions returns the stock layout constants.
func DefaultOptions() Options {
	return Options{
		GoalArea:       150000,
		Margin:         10,
		Spacing:        20,
		RandomAttempts: 64,
	}
}

// Scale computes the display size of an image with natural size w x h on a
// canvas of the given available width. The result depends only on its inputs.
func (o Options) Scale(w, h int, availableWidth float64) Size {
	if w <= 0 || h <= 0 {
		return Size{}
	}
	fw, fh := float64(w), float64(h)
	goal := o.GoalArea
	if goal <= 0 {
		goal = DefaultOptions().GoalArea
	}

	factor := 0.5
	switch ratio := fw * fh / goal; {
	case ratio > 16:
		factor = 1.0 / 8
	case ratio > 4:
		factor = 1.0 / 4
	}

	out := Size{Width: fw * factor, Height: fh * factor}
	if out.Width+o.Margin > availableWidth && availableWidth-o.Margin > 0 {
		half := fw / 2
		out.Width = availableWidth - o.Margin
		out.Height = (fh / 2) * (out.Width / half)
	}
	return out
}
