package renderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

type solidSource struct {
	pages []color.Color
	w, h  int
}

func (s *solidSource) PageCount() int { return len(s.pages) }

func (s *solidSource) PageSize(int) (float64, float64, error) {
	return float64(s.w), float64(s.h), nil
}

func (s *solidSource) RenderPage(index int, _ int) (image.Image, error) {
	if index < 0 || index >= len(s.pages) {
		return nil, fmt.Errorf("page %d out of range", index)
	}
	img := image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			img.Set(x, y, s.pages[index])
		}
	}
	return img, nil
}

func (s *solidSource) Close() error { return nil }

func decode(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img
}

func TestFrameSize(t *testing.T) {
	tests := []struct {
		pw, ph  float64
		display int
		want    Size
	}{
		{1600, 900, 1080, Size{1920, 1080}},
		{1600, 900, 2160, Size{1920, 1080}},
		{1600, 900, 720, Size{1280, 720}},
		{1024, 768, 0, Size{1440, 1080}},
		{1000, 1000, 721, Size{722, 722}},
	}
	for _, tt := range tests {
		if got := FrameSize(tt.pw, tt.ph, tt.display); got != tt.want {
			t.Errorf("FrameSize(%v, %v, %d) = %v, want %v", tt.pw, tt.ph, tt.display, got, tt.want)
		}
	}
}

func TestParseSize(t *testing.T) {
	got, err := ParseSize("960x540")
	if err != nil || got != (Size{960, 540}) {
		t.Errorf("ParseSize = %v, %v", got, err)
	}
	for _, bad := range []string{"", "960", "x540", "0x10", "axb"} {
		if _, err := ParseSize(bad); err == nil {
			t.Errorf("ParseSize(%q) expected error", bad)
		}
	}
}

func TestDPIFollowsHeightFactor(t *testing.T) {
	r := &Renderer{DPI: 300, HeightFactor: 2}
	// 540pt page for a 1080px frame at factor 2: 2160px, i.e. 288 dpi.
	if got := r.dpiFor(540, 1080); got != 288 {
		t.Errorf("dpiFor = %d, want 288", got)
	}
	if got := r.dpiFor(100, 1080); got != 300 {
		t.Errorf("dpiFor should cap at DPI, got %d", got)
	}
	r.HeightFactor = 0
	if got := r.dpiFor(540, 1080); got != 300 {
		t.Errorf("dpiFor without factor = %d", got)
	}
}

func TestRenderFramesWritesTerminator(t *testing.T) {
	dir := t.TempDir()
	src := &solidSource{pages: []color.Color{color.White, color.RGBA{255, 0, 0, 255}}, w: 32, h: 18}
	r := &Renderer{DPI: 72, Workers: 2}
	pattern := filepath.Join(dir, "slide-%03d.png")

	n, err := r.RenderFrames(context.Background(), src, Size{64, 36}, pattern)
	if err != nil {
		t.Fatalf("RenderFrames: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d", n)
	}

	red := decode(t, fmt.Sprintf(pattern, 1))
	if b := red.Bounds(); b.Dx() != 64 || b.Dy() != 36 {
		t.Errorf("frame size = %v", b)
	}
	if r, g, _, _ := red.At(32, 18).RGBA(); r>>8 != 255 || g>>8 != 0 {
		t.Errorf("slide 2 should be red, got r=%d g=%d", r>>8, g>>8)
	}
	blank := decode(t, fmt.Sprintf(pattern, 2))
	if r, g, b, _ := blank.At(10, 10).RGBA(); r|g|b != 0 {
		t.Error("terminator frame should be black")
	}
}

func TestRenderFramesEmptySource(t *testing.T) {
	r := &Renderer{DPI: 72}
	if _, err := r.RenderFrames(context.Background(), &solidSource{w: 1, h: 1}, Size{2, 2}, filepath.Join(t.TempDir(), "%d.png")); err == nil {
		t.Error("expected error for empty source")
	}
}

func TestRenderTitleWithQR(t *testing.T) {
	dir := t.TempDir()
	src := &solidSource{pages: []color.Color{color.White}, w: 160, h: 90}
	r := &Renderer{DPI: 72}
	path := filepath.Join(dir, "title.png")

	if err := r.RenderTitle(src, TitleOptions{Size: Size{960, 540}, QRURL: "https://example.org/talk"}, path); err != nil {
		t.Fatalf("RenderTitle: %v", err)
	}
	img := decode(t, path)
	if b := img.Bounds(); b.Dx() != 960 || b.Dy() != 540 {
		t.Fatalf("title size = %v", b)
	}
	// The QR code occupies the bottom-right corner and has dark modules.
	dark := false
	for y := 540 - 135 - 13; y < 540-13 && !dark; y++ {
		for x := 960 - 135 - 13; x < 960-13; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r>>8 < 64 {
				dark = true
				break
			}
		}
	}
	if !dark {
		t.Error("expected QR modules in the corner")
	}
	if r, _, _, _ := img.At(10, 10).RGBA(); r>>8 != 255 {
		t.Error("top-left should stay white")
	}
}

// busySource draws vertical stripes over the bottom half of the page.
type busySource struct{ solidSource }

func (s *busySource) RenderPage(index int, dpi int) (image.Image, error) {
	img, err := s.solidSource.RenderPage(index, dpi)
	if err != nil {
		return nil, err
	}
	rgba := img.(*image.RGBA)
	for y := s.h / 2; y < s.h; y++ {
		for x := 0; x < s.w; x += 2 {
			rgba.Set(x, y, color.Black)
		}
	}
	return rgba, nil
}

func TestRenderTitleAvoidsBusyCorner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "title.png")
	src := &busySource{solidSource{pages: []color.Color{color.White}, w: 160, h: 90}}
	r := &Renderer{DPI: 72}
	if err := r.RenderTitle(src, TitleOptions{Size: Size{960, 540}, QRURL: "https://example.org/talk"}, path); err != nil {
		t.Fatalf("RenderTitle: %v", err)
	}
	img := decode(t, path)
	// The top half is plain white, so dark pixels there come from the code.
	dark := false
	for y := 13; y < 13+135 && !dark; y++ {
		for x := 960 - 135 - 13; x < 960-13; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r>>8 < 64 {
				dark = true
				break
			}
		}
	}
	if !dark {
		t.Error("expected QR modules in the top-right corner")
	}
}
