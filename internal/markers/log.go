// Package markers writes and reads the marker log of a recording run: a
// header line carrying the reference timestamp, then one line per slide
// change, special marker and end of recording.
//
//	2024-03-01 10:00:00.250000 S
//	00:00:12.480 02
//	00:00:40.003 03
//	00:01:02.917 END
//
// Two optional parallel files are kept in step with it: a chapters file
// that replaces slide numbers by their titles, and a WebVTT file with one
// cue per slide.
package markers

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ivlev/slidecast/internal/timing"
)

// HeaderLayout is the time layout of the marker file's first line.
const HeaderLayout = "2006-01-02 15:04:05.000000"

// Clock supplies the logical recording time to a Log.
type Clock interface {
	Now() time.Time
	// Paused returns the paused duration accumulated so far.
	Paused() time.Duration
	// Recording reports whether events should currently be logged.
	Recording() bool
}

// Options describes the files a Log writes.
type Options struct {
	MarkerPath   string
	ChaptersPath string
	VTTPath      string
	// Titles maps 1-based slide numbers to chapter titles.
	Titles map[int]string
	// StartSlide is the slide shown when recording begins.
	StartSlide int
}

// Log is the live marker writer for one recording run. Each event opens,
// appends to and closes the files, so an interrupted run leaves a valid prefix.
type Log struct {
	opts  Options
	clock Clock

	mu      sync.Mutex
	started bool
	ref     time.Time
	last    time.Duration
	slide   int
	markers []Marker

	cueOpen  bool
	cueSlide int
}

// NewLog returns a log that will write to the files named in opts.
func NewLog(opts Options, clock Clock) *Log {
	if opts.StartSlide < 1 {
		opts.StartSlide = 1
	}
	return &Log{opts: opts, clock: clock, slide: opts.StartSlide}
}

func (l *Log) chapters() bool { return l.opts.ChaptersPath != "" && len(l.opts.Titles) > 0 }
func (l *Log) vtt() bool { return l.opts.VTTPath != "" }

// Start anchors the log at ref and writes the file headers, truncating any
// previous run. Header write failures are returned as *LoggingIOError; the
// log is still considered started.
func (l *Log) Start(ref time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return ErrAlreadyStarted
	}
	l.started = true
	l.ref = ref

	header := ref.Format(HeaderLayout) + " " + headerLabel + "\n"
	var first error
	keep := func(err error) {
		if first == nil {
			first = err
		}
	}
	keep(rewrite(l.opts.MarkerPath, header))
	if l.chapters() {
		keep(rewrite(l.opts.ChaptersPath, header))
	}
	if l.vtt() {
		keep(rewrite(l.opts.VTTPath, "WEBVTT\n\n"))
	}
	return first
}

// Record logs a slide change or special marker at the current logical time.
// It reports false when the event was dropped because the clock is not
// recording. A *LoggingIOError means at least one file missed the event.
func (l *Log) Record(label Label) (Marker, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return Marker{}, false, ErrNotStarted
	}
	if !l.clock.Recording() {
		return Marker{}, false, nil
	}
	offset := l.clock.Now().Sub(l.ref) - l.clock.Paused()
	if offset < l.last {
		offset = l.last
	}
	m := Marker{Offset: offset, Label: label}
	line := timing.Format(offset) + " " + string(label) + "\n"
	if err := appendTo(l.opts.MarkerPath, line); err != nil {
		return Marker{}, false, err
	}
	l.last = offset
	l.markers = append(l.markers, m)

	var first error
	next, isSlide := label.Slide()
	if isSlide && l.chapters() {
		if title, ok := l.opts.Titles[next]; ok {
			if err := appendTo(l.opts.ChaptersPath, timing.Format(offset)+" "+title+"\n"); err != nil {
				first = err
			}
		}
	}
	if l.vtt() {
		if err := l.writeCue(offset, label); err != nil && first == nil {
			first = err
		}
	}
	if isSlide {
		l.slide = next
	}
	return m, true, first
}

// RecordEnd logs the END marker. No further cue is opened.
func (l *Log) RecordEnd() (Marker, bool, error) {
	return l.Record(End)
}

func (l *Log) writeCue(offset time.Duration, label Label) error {
	var text string
	if !l.cueOpen {
		text = fmt.Sprintf("\n%s\n%s --> ", SlideLabel(l.slide), timing.FormatCue(0))
		l.cueSlide = l.slide
		l.cueOpen = true
	}
	text += timing.FormatCue(offset) + "\n- " + l.title(l.cueSlide) + "\n"
	l.cueOpen = false
	if label != End {
		slide := l.slide
		if n, ok := label.Slide(); ok {
			slide = n
		}
		text += fmt.Sprintf("\n%s\n%s --> ", label, timing.FormatCue(offset))
		l.cueSlide = slide
		l.cueOpen = true
	}
	return appendTo(l.opts.VTTPath, text)
}

func (l *Log) title(slide int) string {
	if t, ok := l.opts.Titles[slide]; ok {
		return t
	}
	return fmt.Sprintf("Slide %d", slide)
}

// Reference returns the start timestamp, zero before Start.
func (l *Log) Reference() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ref
}

// Slide returns the slide most recently logged, or the start slide.
func (l *Log) Slide() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slide
}

// Markers returns a copy of the markers logged so far.
func (l *Log) Markers() []Marker {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Marker, len(l.markers))
	copy(out, l.markers)
	return out
}

func rewrite(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return &LoggingIOError{Path: path, Err: err}
	}
	return nil
}

func appendTo(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return &LoggingIOError{Path: path, Err: err}
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return &LoggingIOError{Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return &LoggingIOError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &LoggingIOError{Path: path, Err: err}
	}
	return nil
}
