package markers

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ivlev/slidecast/internal/timing"
)

// Timeline is a marker file read back from disk.
type Timeline struct {
	Reference time.Time
	Markers   []Marker
}

// Last returns the offset of the final marker, or zero for an empty timeline.
func (t *Timeline) Last() time.Duration {
	if len(t.Markers) == 0 {
		return 0
	}
	return t.Markers[len(t.Markers)-1].Offset
}

// Ended reports whether the run was closed with an END marker.
func (t *Timeline) Ended() bool {
	return len(t.Markers) > 0 && t.Markers[len(t.Markers)-1].Label == End
}

// ReadFile parses a marker file. It fails closed: a missing header, a
// malformed or truncated line, a decreasing offset or anything after END
// yields a *ParseError matching ErrCorruptLog.
func ReadFile(path string) (*Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tl, err := Parse(data)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Path = path
		}
		return nil, err
	}
	return tl, nil
}

// Parse reads marker file content.
func Parse(data []byte) (*Timeline, error) {
	if len(data) == 0 {
		return nil, &ParseError{Line: 1, Reason: "empty file"}
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		n := bytes.Count(data, []byte("\n")) + 1
		return nil, &ParseError{Line: n, Reason: "truncated last line"}
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")

	head := strings.TrimSuffix(lines[0], "\r")
	stamp, ok := strings.CutSuffix(head, " "+headerLabel)
	if !ok {
		return nil, &ParseError{Line: 1, Reason: "missing start header"}
	}
	// The fraction is optional when parsing, so headers without microseconds load too.
	ref, err := time.ParseInLocation("2006-01-02 15:04:05", stamp, time.Local)
	if err != nil {
		return nil, &ParseError{Line: 1, Reason: fmt.Sprintf("bad start timestamp %q", stamp)}
	}

	tl := &Timeline{Reference: ref}
	var prev time.Duration
	for i, raw := range lines[1:] {
		n := i + 2
		line := strings.TrimSuffix(raw, "\r")
		if tl.Ended() {
			return nil, &ParseError{Line: n, Reason: "marker after END"}
		}
		offText, labelText, ok := strings.Cut(line, " ")
		if !ok {
			return nil, &ParseError{Line: n, Reason: fmt.Sprintf("want '<offset> <label>', got %q", line)}
		}
		offset, err := timing.Parse(offText)
		if err != nil || offset < 0 {
			return nil, &ParseError{Line: n, Reason: fmt.Sprintf("bad offset %q", offText)}
		}
		label, err := ParseLabel(labelText)
		if err != nil {
			return nil, &ParseError{Line: n, Reason: err.Error()}
		}
		if offset < prev {
			return nil, &ParseError{Line: n, Reason: fmt.Sprintf("offset %s before previous %s", offText, timing.Format(prev))}
		}
		prev = offset
		tl.Markers = append(tl.Markers, Marker{Offset: offset, Label: label})
	}
	return tl, nil
}
