// Package source loads slide pages from a PDF or from a directory of images.
package source

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// Source is an ordered list of slides that can be rasterized.
type Source interface {
	PageCount() int
	// PageSize returns the page size in the source's native units; only
	// the aspect ratio is relied upon.
	PageSize(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Open picks a source for path: a PDF document, an image directory or a
// single image.
func Open(path string) (Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewPDF(path)
	}
	return NewImageSource(path)
}

// PDF renders pages with MuPDF through go-fitz.
type PDF struct {
	path string

	mu  sync.Mutex
	doc *fitz.Document
}

func NewPDF(path string) (*PDF, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &PDF{doc: doc, path: path}, nil
}

func (p *PDF) PageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.NumPage()
}

func (p *PDF) PageSize(index int) (float64, float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rect, err := p.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

// RenderPage opens its own document handle; a fitz.Document must not be
// shared between goroutines that render.
func (p *PDF) RenderPage(index int, dpi int) (image.Image, error) {
	doc, err := fitz.New(p.path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return doc.ImageDPI(index, float64(dpi))
}

func (p *PDF) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Close()
}
