// Package timing converts durations to and from the HH:MM:SS.mmm notation
// used by marker files, offset lines and WebVTT cues.
package timing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MarkerSeparator separates seconds from milliseconds in marker files and offsets.
	MarkerSeparator = '.'
	// CueSeparator separates seconds from milliseconds in WebVTT cues.
	CueSeparator = ','
)

// Zero is the formatted zero duration.
const Zero = "00:00:00.000"

// Format renders d as HH:MM:SS.mmm. Milliseconds are truncated, negative
// durations are clamped to zero. Use FormatSigned for offsets.
func Format(d time.Duration) string {
	return format(d, MarkerSeparator)
}

// FormatCue renders d as HH:MM:SS,mmm for WebVTT.
func FormatCue(d time.Duration) string {
	return format(d, CueSeparator)
}

// FormatSigned renders d like Format but keeps a leading '-' for negative values.
func FormatSigned(d time.Duration) string {
	if d < 0 {
		return "-" + format(-d, MarkerSeparator)
	}
	return format(d, MarkerSeparator)
}

func format(d time.Duration, sep byte) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}

// Parse reads HH:MM:SS[.fff] (either separator, any number of fraction
// digits, optional leading '-') back into a duration.
func Parse(value string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 0, fmt.Errorf("empty timecode")
	}
	negative := false
	if strings.HasPrefix(raw, "-") {
		negative = true
		raw = raw[1:]
	}

	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("timecode %q: want HH:MM:SS.mmm", value)
	}
	hours, err := parseField(parts[0], -1)
	if err != nil {
		return 0, fmt.Errorf("timecode %q hours: %w", value, err)
	}
	minutes, err := parseField(parts[1], 59)
	if err != nil {
		return 0, fmt.Errorf("timecode %q minutes: %w", value, err)
	}

	secPart, fracPart := parts[2], ""
	if idx := strings.IndexAny(secPart, ".,"); idx >= 0 {
		secPart, fracPart = secPart[:idx], secPart[idx+1:]
		if fracPart == "" {
			return 0, fmt.Errorf("timecode %q: empty fraction", value)
		}
	}
	seconds, err := parseField(secPart, 59)
	if err != nil {
		return 0, fmt.Errorf("timecode %q seconds: %w", value, err)
	}

	var frac time.Duration
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		for _, r := range fracPart {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("timecode %q: bad fraction", value)
			}
		}
		n, _ := strconv.Atoi(fracPart + strings.Repeat("0", 9-len(fracPart)))
		frac = time.Duration(n)
	}

	d := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second + frac
	if negative {
		d = -d
	}
	return d, nil
}

func parseField(field string, max int) (int, error) {
	if field == "" {
		return 0, fmt.Errorf("missing field")
	}
	for _, r := range field {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit in %q", field)
		}
	}
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	if max >= 0 && n > max {
		return 0, fmt.Errorf("%d out of range", n)
	}
	return n, nil
}

// FloorSeconds returns the whole seconds of d, as ffmpeg's -t wants them.
func FloorSeconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
