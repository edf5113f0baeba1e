package layout

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestScale(t *testing.T) {
	opts := DefaultOptions()
	cases := []struct {
		name      string
		w, h      int
		available float64
		want      Size
	}{
		{"small_half", 100, 100, 800, Size{50, 50}},
		{"ratio_over_4_quarter", 1000, 1000, 800, Size{250, 250}},
		{"ratio_over_16_eighth", 4000, 3000, 2000, Size{500, 375}},
		{"exactly_4_is_half", 1000, 600, 2000, Size{500, 300}},
		{"clamped_to_available", 1000, 1000, 200, Size{190, 190}},
		{"clamped_keeps_aspect", 600, 300, 200, Size{190, 95}},
		{"invalid", 0, 10, 800, Size{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := opts.Scale(c.w, c.h, c.available)
			if math.Abs(got.Width-c.want.Width) > 1e-9 || math.Abs(got.Height-c.want.Height) > 1e-9 {
				t.Fatalf("Scale(%d,%d,%v) = %+v, want %+v", c.w, c.h, c.available, got, c.want)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	a := Rect{X: 10, Y: 10, Width: 100, Height: 100}
	cases := []struct {
		name string
		b    Rect
		want bool
	}{
		{"exactly_spacing_apart", Rect{X: 130, Y: 10, Width: 50, Height: 50}, false},
		{"inside_buffer", Rect{X: 129, Y: 10, Width: 50, Height: 50}, true},
		{"far_below", Rect{X: 10, Y: 500, Width: 50, Height: 50}, false},
		{"touching_below_buffer", Rect{X: 10, Y: 130, Width: 50, Height: 50}, false},
		{"intersecting", Rect{X: 50, Y: 50, Width: 10, Height: 10}, true},
		{"left_side_buffer", Rect{X: -50, Y: 10, Width: 41, Height: 10}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := a.Overlaps(c.b, 20); got != c.want {
				t.Fatalf("Overlaps = %v, want %v", got, c.want)
			}
			if got := c.b.Overlaps(a, 20); got != c.want {
				t.Fatalf("Overlaps is not symmetric")
			}
		})
	}
}

func TestArrangeScenario(t *testing.T) {
	src := []Source{
		{Key: "a.png", Width: 1000, Height: 1000},
		{Key: "b.png", Width: 100, Height: 100},
	}
	for seed := uint64(1); seed <= 8; seed++ {
		e := NewEngine(DefaultOptions(), seed)
		placed := e.Arrange(src, nil, 800, 600)
		if len(placed) != 2 {
			t.Fatalf("expected 2 placements, got %d", len(placed))
		}
		byKey := map[string]Rect{}
		for _, p := range placed {
			if !p.Fresh {
				t.Fatalf("%s should be freshly placed", p.Key)
			}
			byKey[p.Key] = p.Rect
		}
		if got := byKey["a.png"].Size(); got != (Size{250, 250}) {
			t.Fatalf("a.png size = %+v", got)
		}
		if got := byKey["b.png"].Size(); got != (Size{50, 50}) {
			t.Fatalf("b.png size = %+v", got)
		}
		if byKey["a.png"].Overlaps(byKey["b.png"], 20) {
			t.Fatalf("seed %d: tiles overlap: %+v %+v", seed, byKey["a.png"], byKey["b.png"])
		}
		if placed[0].Rect.Position() != (Point{10, 10}) {
			t.Fatalf("first tile should sit at the margin, got %+v", placed[0].Rect)
		}
	}
}

func TestArrangeNeverOverlaps(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for run := 0; run < 20; run++ {
		n := 5 + r.IntN(40)
		src := make([]Source, n)
		for i := range src {
			src[i] = Source{Key: string(rune('a'+i%26)) + string(rune('0'+i/26)), Width: 50 + r.IntN(3000), Height: 50 + r.IntN(3000)}
		}
		width := 300 + float64(r.IntN(1500))
		e := NewEngine(DefaultOptions(), uint64(run+1))
		placed := e.Arrange(src, nil, width, 700)
		assertNoOverlap(t, placed, 20)
	}
}

func TestArrangeKeepsSavedAndAvoidsThem(t *testing.T) {
	src := []Source{
		{Key: "one", Width: 200, Height: 200},
		{Key: "two", Width: 200, Height: 200},
		{Key: "three", Width: 200, Height: 200},
	}
	saved := map[string]Rect{
		"two": {X: 10, Y: 10, Width: 300, Height: 300},
	}
	e := NewEngine(DefaultOptions(), 3)
	placed := e.Arrange(src, saved, 800, 600)

	for i, p := range placed {
		if p.Key != src[i].Key {
			t.Fatalf("order must be preserved when saved state exists: %v", placed)
		}
	}
	if placed[1].Fresh || placed[1].Rect != saved["two"] {
		t.Fatalf("saved rect must be kept, got %+v", placed[1])
	}
	assertNoOverlap(t, placed, 20)
}

func TestOrderShufflesOnlyWithoutSavedState(t *testing.T) {
	src := make([]Source, 30)
	for i := range src {
		src[i] = Source{Key: string(rune('A' + i))}
	}
	e := NewEngine(DefaultOptions(), 42)
	kept := e.Order(src, true)
	for i := range src {
		if kept[i].Key != src[i].Key {
			t.Fatalf("order should be kept when state exists")
		}
	}
	shuffled := e.Order(src, false)
	same := true
	for i := range src {
		if shuffled[i].Key != src[i].Key {
			same = false
		}
	}
	if same {
		t.Fatalf("expected a permutation of 30 items to differ from the input")
	}
	again := NewEngine(DefaultOptions(), 42).Order(src, false)
	for i := range again {
		if again[i].Key != shuffled[i].Key {
			t.Fatalf("same seed should give the same order")
		}
	}
}

func TestBoundsClamp(t *testing.T) {
	canvas := Size{Width: 800, Height: 600}
	r := Rect{Width: 100, Height: 100}
	cases := []struct {
		name   string
		bounds Bounds
		at     Point
		want   Point
	}{
		{"left_top", DefaultBounds(10), Point{-40, -5}, Point{10, 10}},
		{"right", DefaultBounds(10), Point{790, 50}, Point{690, 50}},
		{"bottom_open", DefaultBounds(10), Point{50, 5000}, Point{50, 5000}},
		{"bottom_clamped", Bounds{Bottom: Edge{Clamp: true, Padding: 5}}, Point{50, 5000}, Point{50, 495}},
		{"unbounded", Bounds{}, Point{-100, -100}, Point{-100, -100}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.bounds.Clamp(r.Moved(c.at), canvas); got != c.want {
				t.Fatalf("Clamp = %+v, want %+v", got, c.want)
			}
		})
	}
}

func assertNoOverlap(t *testing.T, placed []Placed, spacing float64) {
	t.Helper()
	for i := range placed {
		for j := i + 1; j < len(placed); j++ {
			if placed[i].Rect.Overlaps(placed[j].Rect, spacing) {
				t.Fatalf("%s %+v overlaps %s %+v", placed[i].Key, placed[i].Rect, placed[j].Key, placed[j].Rect)
			}
		}
	}
}
