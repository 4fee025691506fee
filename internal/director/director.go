// Package director expands a marker timeline into a concat-demuxer playlist
// of still frames.
package director

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/slidecast/internal/markers"
	"github.com/ivlev/slidecast/internal/timing"
)

// ErrEmptyTimeline is returned when there is nothing to show.
var ErrEmptyTimeline = errors.New("marker timeline has no duration")

// Director maps slides to frame files.
type Director struct {
	// Frame returns the frame file of a 1-based slide; slide 0 is the
	// blank terminator.
	Frame func(slide int) string
	// SlideCount bounds the slide numbers a timeline may reference.
	SlideCount int
}

// NewDirector uses frames named by pattern, a printf format taking the
// 0-based frame index (as in "slide-%03d.png"). The terminator is the frame
// after the last slide.
func NewDirector(pattern string, slideCount int) *Director {
	return &Director{
		SlideCount: slideCount,
		Frame: func(slide int) string {
			if slide == 0 {
				return fmt.Sprintf(pattern, slideCount)
			}
			return fmt.Sprintf(pattern, slide-1)
		},
	}
}

// Plan turns a timeline into a scenario. startSlide is shown from zero to
// the first marker, each slide marker switches frames, X markers keep the
// current one and END closes the show. The total is clamped to the final
// marker's whole seconds, which the encoder's -t uses as well.
func (d *Director) Plan(tl *markers.Timeline, startSlide int) (*Scenario, error) {
	if tl == nil || len(tl.Markers) == 0 {
		return nil, ErrEmptyTimeline
	}
	limit := time.Duration(timing.FloorSeconds(tl.Last())) * time.Second
	if limit <= 0 {
		return nil, ErrEmptyTimeline
	}
	if startSlide < 1 {
		startSlide = 1
	}
	if err := d.check(startSlide); err != nil {
		return nil, err
	}

	s := &Scenario{Version: ScenarioVersion, Total: limit.Seconds()}
	current := startSlide
	var from time.Duration
	emit := func(to time.Duration) {
		if to > limit {
			to = limit
		}
		if to <= from {
			return
		}
		// Consecutive entries of one slide are merged.
		if n := len(s.Slides); n > 0 && s.Slides[n-1].ID == current {
			s.Slides[n-1].Duration = seconds(to - msDuration(s.Slides[n-1].Start))
		} else {
			s.Slides = append(s.Slides, Slide{
				ID:       current,
				Input:    d.Frame(current),
				Start:    seconds(from),
				Duration: seconds(to - from),
			})
		}
		from = to
	}

	for _, m := range tl.Markers {
		emit(m.Offset)
		if m.Label == markers.End {
			break
		}
		if n, ok := m.Label.Slide(); ok {
			if err := d.check(n); err != nil {
				return nil, err
			}
			current = n
		}
	}
	emit(limit)
	s.Slides = append(s.Slides, Slide{ID: 0, Input: d.Frame(0), Start: seconds(limit)})
	return s, nil
}

func (d *Director) check(slide int) error {
	if d.SlideCount > 0 && (slide < 1 || slide > d.SlideCount) {
		return fmt.Errorf("%w: slide %d outside 1..%d", markers.ErrCorruptLog, slide, d.SlideCount)
	}
	return nil
}

func seconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}

func msDuration(sec float64) time.Duration {
	return time.Duration(sec*1000+0.5) * time.Millisecond
}

// WritePlaylist writes s in ffconcat format. Paths are made absolute; the
// terminator is listed without a duration so the demuxer shows the last
// timed frame for its full length.
func WritePlaylist(w io.Writer, s *Scenario) error {
	if _, err := fmt.Fprintln(w, "ffconcat version 1.0"); err != nil {
		return err
	}
	for _, sl := range s.Slides {
		path, err := filepath.Abs(sl.Input)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "file '%s'\n", quote(path)); err != nil {
			return err
		}
		if sl.ID != 0 {
			if _, err := fmt.Fprintf(w, "duration %.3f\n", sl.Duration); err != nil {
				return err
			}
		}
	}
	return nil
}

func quote(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
