package renderer

import (
	"fmt"
	"image"
	"image/png"

	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/slidecast/internal/analyzer"
	"github.com/ivlev/slidecast/internal/source"
	"github.com/ivlev/slidecast/internal/system"
)

// TitleOptions controls the title frame.
type TitleOptions struct {
	Size Size
	// QRURL, when set, is stamped as a QR code in the corner with the least
	// slide content, bottom-right when all are equally plain.
	QRURL string
}

// RenderTitle writes the first slide at a fixed size to path, favouring
// speed over file size.
func (r *Renderer) RenderTitle(src source.Source, opts TitleOptions, path string) error {
	if src.PageCount() == 0 {
		return fmt.Errorf("источник не содержит страниц")
	}
	frame, err := r.Frame(src, 0, opts.Size)
	if err != nil {
		return err
	}
	defer system.PutFrame(frame)

	if opts.QRURL != "" {
		if err := r.stampQR(frame, opts.QRURL); err != nil {
			return err
		}
	}
	return savePNG(path, frame, png.BestSpeed)
}

func (r *Renderer) stampQR(dst *image.RGBA, url string) error {
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("qr code: %w", err)
	}
	b := dst.Bounds()
	side := b.Dy() / 4
	if side < 64 {
		side = 64
	}
	margin := b.Dy() / 40
	corner := analyzer.NewContrastDetector().QuietCorner(dst, side, margin)
	if r.Log != nil {
		r.Log.WithField("corner", corner.String()).Debug("qr placement")
	}
	code := q.Image(side)
	xdraw.Draw(dst, corner.Rect(b, side, margin), code, code.Bounds().Min, xdraw.Src)
	return nil
}
