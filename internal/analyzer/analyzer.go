// Package analyzer measures how busy parts of a slide are, so overlays such
// as the title QR code can be placed where they hide the least content.
package analyzer

import (
	"image"
	"image/color"
	"math"
)

// Corner names one of the four frame corners.
type Corner int

const (
	BottomRight Corner = iota
	BottomLeft
	TopRight
	TopLeft
)

// Corners lists the candidates in order of preference.
var Corners = []Corner{BottomRight, BottomLeft, TopRight, TopLeft}

func (c Corner) String() string {
	switch c {
	case BottomRight:
		return "bottom-right"
	case BottomLeft:
		return "bottom-left"
	case TopRight:
		return "top-right"
	case TopLeft:
		return "top-left"
	}
	return "unknown"
}

// Rect returns the side x side square placed in corner c of bounds, inset by margin.
func (c Corner) Rect(bounds image.Rectangle, side, margin int) image.Rectangle {
	x := bounds.Max.X - side - margin
	y := bounds.Max.Y - side - margin
	if c == BottomLeft || c == TopLeft {
		x = bounds.Min.X + margin
	}
	if c == TopRight || c == TopLeft {
		y = bounds.Min.Y + margin
	}
	return image.Rect(x, y, x+side, y+side)
}

// ContrastDetector scores regions by the share of Sobel edge pixels in them.
type ContrastDetector struct {
	EdgeThreshold float64 // Gradient magnitude threshold
}

// NewContrastDetector creates a detector with moderate sensitivity.
func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{EdgeThreshold: 30.0}
}

// Density returns the fraction of edge pixels inside r, in [0, 1].
func (d *ContrastDetector) Density(img image.Image, r image.Rectangle) float64 {
	r = r.Intersect(img.Bounds())
	if r.Dx() < 3 || r.Dy() < 3 {
		return 0
	}
	gray := toGrayscale(img, r)
	edges, total := 0, 0
	for y := r.Min.Y + 1; y < r.Max.Y-1; y++ {
		for x := r.Min.X + 1; x < r.Max.X-1; x++ {
			total++
			if sobel(gray, x, y) > d.EdgeThreshold {
				edges++
			}
		}
	}
	return float64(edges) / float64(total)
}

// QuietCorner picks the corner whose square holds the fewest edges. Ties go
// to the earlier entry in Corners.
func (d *ContrastDetector) QuietCorner(img image.Image, side, margin int) Corner {
	best, bestScore := BottomRight, math.Inf(1)
	for _, c := range Corners {
		score := d.Density(img, c.Rect(img.Bounds(), side, margin))
		if score < bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// toGrayscale converts the r part of img to grayscale
func toGrayscale(img image.Image, r image.Rectangle) *image.Gray {
	gray := image.NewGray(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

var (
	sobelX = [3][3]int{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]int{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

// sobel returns the gradient magnitude at (x, y).
func sobel(gray *image.Gray, x, y int) float64 {
	var sumX, sumY float64
	for ky := -1; ky <= 1; ky++ {
		for kx := -1; kx <= 1; kx++ {
			pixel := float64(gray.GrayAt(x+kx, y+ky).Y)
			sumX += pixel * float64(sobelX[ky+1][kx+1])
			sumY += pixel * float64(sobelY[ky+1][kx+1])
		}
	}
	return math.Sqrt(sumX*sumX + sumY*sumY)
}
