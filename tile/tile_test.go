package tile

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/milk9111/mosaic/layout"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h)); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeGIF(t *testing.T, frames int) []byte {
	t.Helper()
	g := &gif.GIF{Config: image.Config{Width: 8, Height: 6, ColorModel: color.Palette(palette.Plan9)}}
	for i := range frames {
		p := image.NewPaletted(image.Rect(0, 0, 8, 6), palette.Plan9)
		p.Set(i, 0, color.White)
		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, 5)
		g.Disposal = append(g.Disposal, gif.DisposalNone)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	var bmpBuf, tiffBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, solid(7, 3)); err != nil {
		t.Fatal(err)
	}
	if err := tiff.Encode(&tiffBuf, solid(5, 9), nil); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		data   []byte
		w, h   int
		frames int
		err    bool
	}{
		{"png", encodePNG(t, 12, 4), 12, 4, 1, false},
		{"bmp", bmpBuf.Bytes(), 7, 3, 1, false},
		{"tiff", tiffBuf.Bytes(), 5, 9, 1, false},
		{"gif_frames", encodeGIF(t, 3), 8, 6, 3, false},
		{"empty", nil, 0, 0, 0, true},
		{"garbage", []byte("definitely not an image"), 0, 0, 0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, err := Decode(c.data)
			if c.err {
				if err == nil {
					t.Fatalf("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if d.Width != c.w || d.Height != c.h || len(d.Frames) != c.frames {
				t.Fatalf("got %dx%d with %d frames", d.Width, d.Height, len(d.Frames))
			}
		})
	}
}

func TestDecodeGIFComposites(t *testing.T) {
	d, err := Decode(encodeGIF(t, 3))
	if err != nil {
		t.Fatal(err)
	}
	last := d.Frames[2]
	for x := range 3 {
		if _, _, _, a := last.At(x, 0).RGBA(); a == 0 {
			t.Fatalf("frame 3 should keep pixel %d from earlier frames", x)
		}
	}
	if len(d.Delays) != 3 || d.Delays[0] != 5 {
		t.Fatalf("delays = %v", d.Delays)
	}
}

func TestDelayTicks(t *testing.T) {
	cases := map[int]int{0: 6, 5: 3, 10: 6, 1: 1, 100: 60}
	for centis, want := range cases {
		if got := delayTicks(centis); got != want {
			t.Fatalf("delayTicks(%d) = %d, want %d", centis, got, want)
		}
	}
}

func TestTileHitTests(t *testing.T) {
	tl := New("cat.GIF", 0, 100, 100, layout.Rect{X: 10, Y: 10, Width: 100, Height: 80})
	cases := []struct {
		name   string
		p      layout.Point
		body   bool
		handle bool
	}{
		{"center", layout.Point{X: 50, Y: 50}, true, false},
		{"handle", layout.Point{X: 105, Y: 85}, false, true},
		{"outside", layout.Point{X: 200, Y: 50}, false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if tl.HitBody(c.p) != c.body || tl.HitHandle(c.p) != c.handle {
				t.Fatalf("body=%v handle=%v", tl.HitBody(c.p), tl.HitHandle(c.p))
			}
		})
	}
	if !tl.Animated() {
		t.Fatalf(".GIF should be animated")
	}
	if !tl.Loading {
		t.Fatalf("new tiles start loading")
	}
	tl.Fail(io.ErrUnexpectedEOF)
	if tl.Loading || !tl.Failed {
		t.Fatalf("Fail should flip the flags")
	}
}

func TestSetSurface(t *testing.T) {
	s := NewSet(func() layout.Size { return layout.Size{Width: 800, Height: 600} })
	s.Add(New("a", 0, 1, 1, layout.Rect{X: 0, Y: 0, Width: 100, Height: 100}))
	s.Add(New("b", 1, 1, 1, layout.Rect{X: 50, Y: 50, Width: 100, Height: 100}))

	hit, ok := s.At(layout.Point{X: 60, Y: 60})
	if !ok || hit.Tile.Filename != "b" {
		t.Fatalf("top tile should win, got %+v", hit)
	}
	s.Raise("a")
	if hit, _ := s.At(layout.Point{X: 60, Y: 60}); hit.Tile.Filename != "a" {
		t.Fatalf("raised tile should win")
	}
	if hit, _ := s.At(layout.Point{X: 95, Y: 95}); !hit.Handle {
		t.Fatalf("corner of a should be its handle")
	}

	s.Move("a", layout.Point{X: 300, Y: 10})
	s.Resize("a", layout.Size{Width: 20, Height: 30})
	if r, _ := s.Rect("a"); r != (layout.Rect{X: 300, Y: 10, Width: 20, Height: 30}) {
		t.Fatalf("rect = %+v", r)
	}
	if obs := s.Obstacles("a"); len(obs) != 1 || obs[0].X != 50 {
		t.Fatalf("obstacles = %+v", obs)
	}
	if ext := s.Extent(10); ext != (layout.Size{Width: 330, Height: 160}) {
		t.Fatalf("extent = %+v", ext)
	}
	s.Add(New("a", 0, 1, 1, layout.Rect{Width: 1, Height: 1}))
	if s.Len() != 2 {
		t.Fatalf("re-adding a filename replaces it")
	}
}

func TestLoaderKeepsGoingAfterFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.png"), encodePNG(t, 4, 4), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.png"), []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "c.gif"), encodeGIF(t, 2), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(DirFetcher(dir), time.Millisecond, log.New(io.Discard))
	l.Start(context.Background(), []string{"a.png", "bad.png", "missing.png", "c.gif"})
	l.Wait()
	res := l.Drain()

	if len(res) != 4 {
		t.Fatalf("expected 4 results, got %d", len(res))
	}
	wantErr := []bool{false, true, true, false}
	for i, r := range res {
		if (r.Err != nil) != wantErr[i] {
			t.Fatalf("%s: err = %v", r.Filename, r.Err)
		}
	}
	if len(res[3].Decoded.Frames) != 2 {
		t.Fatalf("gif should decode both frames")
	}
}

func TestLoaderStopAbandonsBatch(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.png"), encodePNG(t, 2, 2), 0644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(DirFetcher(dir), time.Hour, log.New(io.Discard))
	l.Start(context.Background(), []string{"a.png", "a.png", "a.png"})
	l.Stop()
	if res := l.Drain(); len(res) != 0 {
		t.Fatalf("stopped loader should not hand out results, got %d", len(res))
	}
}
