// Package renderer rasterizes slides into fixed-size frames for the
// slideshow and the title image.
package renderer

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/slidecast/internal/source"
	"github.com/ivlev/slidecast/internal/system"
)

// MaxFrameHeight caps the derived slideshow height.
const MaxFrameHeight = 1080

// Size is a frame size in pixels.
type Size struct {
	Width, Height int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// ParseSize reads "WIDTHxHEIGHT".
func ParseSize(s string) (Size, error) {
	w, h, ok := strings.Cut(strings.TrimSpace(s), "x")
	if !ok {
		return Size{}, fmt.Errorf("size %q: want WIDTHxHEIGHT", s)
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return Size{}, fmt.Errorf("size %q: want positive WIDTHxHEIGHT", s)
	}
	return Size{Width: width, Height: height}, nil
}

// FrameSize derives the slideshow frame size: the display height capped at
// MaxFrameHeight, and the width that keeps the page aspect ratio. The width
// is made even for yuv420p.
func FrameSize(pageW, pageH float64, displayHeight int) Size {
	h := displayHeight
	if h <= 0 || h > MaxFrameHeight {
		h = MaxFrameHeight
	}
	w := h
	if pageH > 0 {
		w = int(math.Round(float64(h) * pageW / pageH))
	}
	if w%2 != 0 {
		w++
	}
	if h%2 != 0 {
		h++
	}
	return Size{Width: w, Height: h}
}

// Renderer turns slide pages into frames.
type Renderer struct {
	// DPI caps the rasterization resolution.
	DPI int
	// HeightFactor oversamples pages relative to the target height before
	// downscaling; 0 renders at DPI.
	HeightFactor float64
	Workers      int
	Log          *logrus.Entry
}

func (r *Renderer) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.NumCPU()
}

// dpiFor picks the lowest DPI that still gives HeightFactor times the target
// height. PDF page sizes are in points.
func (r *Renderer) dpiFor(pageH float64, target int) int {
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 300
	}
	if r.HeightFactor <= 0 || pageH <= 0 {
		return dpi
	}
	want := int(math.Ceil(float64(target) * r.HeightFactor * 72 / pageH))
	if want < dpi {
		return want
	}
	return dpi
}

// Frame renders page index scaled to size into a pooled buffer. Callers
// hand it back with system.PutFrame.
func (r *Renderer) Frame(src source.Source, index int, size Size) (*image.RGBA, error) {
	_, pageH, err := src.PageSize(index)
	if err != nil {
		return nil, fmt.Errorf("page %d size: %w", index+1, err)
	}
	page, err := src.RenderPage(index, r.dpiFor(pageH, size.Height))
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index+1, err)
	}
	dst := system.GetFrame(image.Rect(0, 0, size.Width, size.Height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), page, page.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// RenderFrames writes every page to fmt.Sprintf(pattern, i) for 0-based i,
// then a black terminator frame after the last page. It returns the number
// of slide frames.
func (r *Renderer) RenderFrames(ctx context.Context, src source.Source, size Size, pattern string) (int, error) {
	count := src.PageCount()
	if count == 0 {
		return 0, fmt.Errorf("источник не содержит страниц")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i := 0; i < count; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frame, err := r.Frame(src, i, size)
			if err != nil {
				return err
			}
			defer system.PutFrame(frame)
			if err := savePNG(fmt.Sprintf(pattern, i), frame, png.DefaultCompression); err != nil {
				return err
			}
			if r.Log != nil {
				r.Log.WithField("slide", i+1).Debug("frame ready")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	blank := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	xdraw.Draw(blank, blank.Bounds(), image.NewUniform(color.Black), image.Point{}, xdraw.Src)
	if err := savePNG(fmt.Sprintf(pattern, count), blank, png.BestCompression); err != nil {
		return 0, err
	}
	if r.Log != nil {
		r.Log.WithField("buffers", system.FramesAllocated()).Debug("frames rendered")
	}
	return count, nil
}

func savePNG(path string, img image.Image, level png.CompressionLevel) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(w, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
