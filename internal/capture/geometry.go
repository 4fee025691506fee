package capture

import (
	"fmt"
	"regexp"
	"strconv"
)

var geometryRe = regexp.MustCompile(`^(\d{1,4})x(\d{1,4})\+(\d{1,4})\+(\d{1,4})$`)

// Geometry is a screen rectangle in X11 notation, WIDTHxHEIGHT+X+Y.
type Geometry struct {
	Width, Height int
	X, Y          int
}

// ParseGeometry validates and parses a WIDTHxHEIGHT+X+Y string.
func ParseGeometry(s string) (Geometry, error) {
	m := geometryRe.FindStringSubmatch(s)
	if m == nil {
		return Geometry{}, &ConfigurationError{Reason: fmt.Sprintf("geometry %q: want WIDTHxHEIGHT+X+Y", s)}
	}
	var g Geometry
	g.Width, _ = strconv.Atoi(m[1])
	g.Height, _ = strconv.Atoi(m[2])
	g.X, _ = strconv.Atoi(m[3])
	g.Y, _ = strconv.Atoi(m[4])
	if g.Width == 0 || g.Height == 0 {
		return Geometry{}, &ConfigurationError{Reason: fmt.Sprintf("geometry %q: empty area", s)}
	}
	return g, nil
}

// ValidGeometry reports whether s parses as a geometry.
func ValidGeometry(s string) bool {
	_, err := ParseGeometry(s)
	return err == nil
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", g.Width, g.Height, g.X, g.Y)
}

// EvenRegion rounds odd dimensions of a user-selected region down by one
// pixel. The origin stays where it is.
func EvenRegion(g Geometry) Geometry {
	if g.Width%2 != 0 {
		g.Width--
	}
	if g.Height%2 != 0 {
		g.Height--
	}
	return g
}

// EvenSlides rounds odd dimensions of the slide window down by one pixel
// and, unlike EvenRegion, moves the origin one pixel in.
func EvenSlides(g Geometry) Geometry {
	if g.Width%2 != 0 {
		g.Width--
		g.X++
	}
	if g.Height%2 != 0 {
		g.Height--
		g.Y++
	}
	return g
}
