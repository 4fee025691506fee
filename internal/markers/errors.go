package markers

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned when Start is called twice on one log.
	ErrAlreadyStarted = errors.New("marker log already started")
	// ErrNotStarted is returned when events are recorded before Start.
	ErrNotStarted = errors.New("marker log not started")
	// ErrCorruptLog marks a marker file that cannot be trusted.
	ErrCorruptLog = errors.New("marker file is inconsistent")
)

// LoggingIOError reports a failed write to one of the log files. The
// recording continues; only this event is lost for that file.
type LoggingIOError struct {
	Path string
	Err  error
}

func (e *LoggingIOError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *LoggingIOError) Unwrap() error { return e.Err }

// ParseError describes the first problem found while reading a marker file.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("marker file line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
}

func (e *ParseError) Is(target error) bool { return target == ErrCorruptLog }
