package engine

import (
	"context"
	"time"

	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/renderer"
	"github.com/ivlev/slidecast/internal/source"
)

// title exports the first slide as the intro still for later runs.
func (r *run) title(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	out := r.in.Files.Title
	started := time.Now()
	r.record(StageTitle, out, started, ExportTitle(r.renderer(), r.Slides, r.Config, out))
}

// ExportTitle renders the first slide at title.geometry to path.
func ExportTitle(rend *renderer.Renderer, slides source.Source, cfg *config.Config, path string) error {
	size, err := renderer.ParseSize(cfg.String(config.KeyTitleGeometry))
	if err != nil {
		return err
	}
	return rend.RenderTitle(slides, renderer.TitleOptions{Size: size, QRURL: cfg.String(config.KeyTitleQRURL)}, path)
}
