// Package effects builds ffmpeg filter graphs for the production stages.
package effects

import (
	"fmt"
	"strings"
)

// PictureInPicture scales an overlay stream to 1/Fraction of the base
// height and places it at X,Y from the top-left corner.
type PictureInPicture struct {
	Fraction int
	X, Y     int
}

// Filter returns the scale2ref+overlay graph. pipW and pipH are the probed
// overlay size, used to keep its aspect ratio. If out is empty the result is
// left unlabelled as the graph's output.
func (p PictureInPicture) Filter(pip, base string, pipW, pipH int, out string) string {
	frac := p.Fraction
	if frac <= 0 {
		frac = 6
	}
	g := fmt.Sprintf("[%s][%s]scale2ref=(%d/%d)*ih/%d/sar:ih/%d[wm][base];[base][wm]overlay=%d:%d",
		pip, base, pipW, pipH, frac, frac, p.X, p.Y)
	if out != "" {
		g += "[" + out + "]"
	}
	return g
}

// Segment is one video/audio pair fed to the concat filter.
type Segment struct {
	Video, Audio string
}

// Concat joins segments into the labelled outputs v and a.
func Concat(segments []Segment, v, a string) string {
	var b strings.Builder
	for _, s := range segments {
		fmt.Fprintf(&b, "[%s][%s]", s.Video, s.Audio)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=1:a=1[%s][%s]", len(segments), v, a)
	return b.String()
}

// FitStill scales a still image input to the base size so it can be
// concatenated with the composited video.
func FitStill(in string, width, height int, out string) string {
	return fmt.Sprintf("[%s]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1[%s]",
		in, width, height, width, height, out)
}

// Chain joins filter graph parts with ';'.
func Chain(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ";")
}
