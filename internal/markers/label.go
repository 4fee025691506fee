package markers

import (
	"fmt"
	"strconv"
	"time"
)

// Label identifies what a marker line records.
type Label string

const (
	// End closes a recording run.
	End Label = "END"
	// Special is an operator-placed marker that does not change the slide.
	Special Label = "X"
	// headerLabel terminates the first line of a marker file.
	headerLabel = "S"
)

// SlideLabel returns the two-digit label of a 1-based slide number.
func SlideLabel(slide int) Label {
	return Label(fmt.Sprintf("%02d", slide))
}

// Slide returns the 1-based slide number of a slide label.
func (l Label) Slide() (int, bool) {
	if len(l) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(string(l))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ParseLabel validates a label as it appears in a marker file.
func ParseLabel(s string) (Label, error) {
	switch Label(s) {
	case End, Special:
		return Label(s), nil
	}
	if len(s) < 2 {
		return "", fmt.Errorf("label %q: slide labels have at least two digits", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("label %q: want a slide number, %s or %s", s, End, Special)
		}
	}
	return Label(s), nil
}

// Marker is one logged event, its offset already net of paused time.
type Marker struct {
	Offset time.Duration
	Label  Label
}
