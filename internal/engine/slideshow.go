package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/director"
	"github.com/ivlev/slidecast/internal/renderer"
	"github.com/ivlev/slidecast/internal/timing"
)

// frameSize picks the slideshow geometry: the configured custom geometry,
// then one typed by the operator in ask mode, then the size derived from
// the display height and the first page.
func (r *run) frameSize() (renderer.Size, error) {
	custom := r.Config.String(config.KeyCustomGeometry)
	if custom == "" && r.gate.Decision == Ask {
		custom = r.prompt().Input("Slideshow geometry WIDTHxHEIGHT (empty keeps the derived size)")
	}
	if custom != "" {
		size, err := renderer.ParseSize(custom)
		if err == nil {
			return size, nil
		}
		r.log().WithError(err).Warn("ignoring custom geometry")
	}
	pw, ph, err := r.Slides.PageSize(0)
	if err != nil {
		return renderer.Size{}, fmt.Errorf("page size: %w", err)
	}
	return renderer.FrameSize(pw, ph, r.Config.Int(config.KeySlidesDisplayHeight)), nil
}

// slideshow renders every slide, expands the marker timeline into a concat
// playlist and encodes the result.
func (r *run) slideshow(ctx context.Context) {
	f := r.in.Files
	started := time.Now()
	playlist, limit, cleanup, err := r.prepareSlideshow(ctx)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		r.record(StageSlideshow, f.Slideshow, started, err)
		return
	}
	enc := SlideshowEncode{
		Playlist: playlist,
		Output:   f.Slideshow,
		Limit:    limit,
		FPS:      r.Config.Int(config.KeySlideshowFPS),
	}
	r.exec(ctx, StageSlideshow, enc.Output, enc.Args())
}

func (r *run) prepareSlideshow(ctx context.Context) (string, int64, func(), error) {
	tl, err := r.markers()
	if err != nil {
		return "", 0, nil, err
	}
	size, err := r.frameSize()
	if err != nil {
		return "", 0, nil, err
	}

	tmp, err := os.MkdirTemp("", "slidecast_")
	if err != nil {
		return "", 0, nil, err
	}
	cleanup := func() { os.RemoveAll(tmp) }

	pattern := filepath.Join(tmp, "slide-%03d.png")
	r.log().WithFields(logrus.Fields{"size": size.String(), "slides": r.Slides.PageCount()}).Info("rendering slides")
	count, err := r.renderer().RenderFrames(ctx, r.Slides, size, pattern)
	if err != nil {
		return "", 0, cleanup, err
	}

	scenario, err := director.NewDirector(pattern, count).Plan(tl, r.in.StartSlide)
	if err != nil {
		return "", 0, cleanup, err
	}
	playlist := filepath.Join(tmp, "slides.ffconcat")
	out, err := os.Create(playlist)
	if err != nil {
		return "", 0, cleanup, err
	}
	if err := director.WritePlaylist(out, scenario); err != nil {
		out.Close()
		return "", 0, cleanup, err
	}
	if err := out.Close(); err != nil {
		return "", 0, cleanup, err
	}
	return playlist, timing.FloorSeconds(tl.Last()), cleanup, nil
}
