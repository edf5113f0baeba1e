package tile

import (
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// ticksPerSecond matches ebiten's default TPS.
const ticksPerSecond = 60

// Animation plays a sequence of frames with per-frame delays. A still image
// is an animation with one frame.
type Animation struct {
	frames []*ebiten.Image
	ticks  []int

	current int
	tick    int
}

// NewAnimation uploads decoded frames. Delays are in hundredths of a second,
// as stored in GIF files; missing or zero delays play at 10 fps.
func NewAnimation(d Decoded) *Animation {
	a := &Animation{}
	for i, img := range d.Frames {
		a.frames = append(a.frames, ebiten.NewImageFromImage(img))
		delay := 0
		if i < len(d.Delays) {
			delay = d.Delays[i]
		}
		a.ticks = append(a.ticks, delayTicks(delay))
	}
	return a
}

func delayTicks(centis int) int {
	if centis <= 0 {
		centis = 10
	}
	return int(math.Max(1, math.Round(float64(centis)*ticksPerSecond/100)))
}

// Update advances playback by one tick.
func (a *Animation) Update() {
	if a == nil || len(a.frames) <= 1 {
		return
	}
	a.tick++
	if a.tick >= a.ticks[a.current] {
		a.tick = 0
		a.current = (a.current + 1) % len(a.frames)
	}
}

func (a *Animation) Frame() *ebiten.Image {
	if a == nil || len(a.frames) == 0 {
		return nil
	}
	return a.frames[a.current]
}

func (a *Animation) Len() int {
	if a == nil {
		return 0
	}
	return len(a.frames)
}

func (a *Animation) Dispose() {
	if a == nil {
		return
	}
	for _, f := range a.frames {
		f.Deallocate()
	}
	a.frames = nil
}

// Decoded is the CPU-side result of decoding one file.
type Decoded struct {
	Frames []image.Image
	// Delays are per-frame delays in 100ths of a second (GIF only).
	Delays []int
	Width  int
	Height int
}
