package source

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// ImageSource serves slides that were exported as image files, one per
// slide. Directory entries are ordered by the number in their name, so
// slide-2.png comes before slide-10.png.
type ImageSource struct {
	paths []string
	sizes []image.Point
}

func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	paths := []string{path}
	if fi.IsDir() {
		if paths, err = slideFiles(path); err != nil {
			return nil, err
		}
	}
	s := &ImageSource{paths: paths, sizes: make([]image.Point, len(paths))}
	for i, p := range paths {
		cfg, err := decodeConfig(p)
		if err != nil {
			return nil, fmt.Errorf("slide %d (%s): %w", i+1, filepath.Base(p), err)
		}
		s.sizes[i] = image.Pt(cfg.Width, cfg.Height)
	}
	return s, nil
}

func slideFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	slices.SortFunc(paths, func(a, b string) int {
		na, nb := slideNumber(a), slideNumber(b)
		if na != nb {
			return na - nb
		}
		return strings.Compare(a, b)
	})
	return paths, nil
}

// slideNumber returns the last run of digits in the file name, or -1.
func slideNumber(path string) int {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	end := len(name)
	for end > 0 && (name[end-1] < '0' || name[end-1] > '9') {
		end--
	}
	start := end
	for start > 0 && name[start-1] >= '0' && name[start-1] <= '9' {
		start--
	}
	n, err := strconv.Atoi(name[start:end])
	if err != nil {
		return -1
	}
	return n
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	return cfg, err
}

func (s *ImageSource) PageCount() int {
	return len(s.paths)
}

func (s *ImageSource) check(index int) error {
	if index < 0 || index >= len(s.paths) {
		return fmt.Errorf("slide %d out of range (1..%d)", index+1, len(s.paths))
	}
	return nil
}

// PageSize returns the pixel size read when the source was opened.
func (s *ImageSource) PageSize(index int) (float64, float64, error) {
	if err := s.check(index); err != nil {
		return 0, 0, err
	}
	return float64(s.sizes[index].X), float64(s.sizes[index].Y), nil
}

// RenderPage decodes the image; dpi does not apply to raster files.
func (s *ImageSource) RenderPage(index int, dpi int) (image.Image, error) {
	if err := s.check(index); err != nil {
		return nil, err
	}
	f, err := os.Open(s.paths[index])
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func (s *ImageSource) Close() error {
	return nil
}
