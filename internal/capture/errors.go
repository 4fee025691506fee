package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("capture configuration error")
	// ErrCaptureStart matches every *CaptureStartError.
	ErrCaptureStart = errors.New("capture did not start")
)

// ConfigurationError is returned before any process is spawned when a
// template key is missing or a geometry is malformed.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration %s: %s", e.Key, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// CaptureStartError means the encoder reported a fatal condition, or its
// log ended, before the first progress line.
type CaptureStartError struct {
	// Line is the encoder output that triggered the failure, if any.
	Line   string
	Reason string
}

func (e *CaptureStartError) Error() string {
	if e.Line == "" {
		return "capture start: " + e.Reason
	}
	return fmt.Sprintf("capture start: %s: %q", e.Reason, e.Line)
}

func (e *CaptureStartError) Is(target error) bool { return target == ErrCaptureStart }
