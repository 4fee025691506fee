package engine

import (
	"errors"
	"fmt"
)

// ErrExternalTool matches every *ExternalToolFailure.
var ErrExternalTool = errors.New("external tool failed")

// ExternalToolFailure is a stage whose ffmpeg invocation failed or left no
// output behind. The pipeline records it and moves on.
type ExternalToolFailure struct {
	Stage  Stage
	Output string
	Err    error
}

func (e *ExternalToolFailure) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *ExternalToolFailure) Unwrap() error { return e.Err }

func (e *ExternalToolFailure) Is(target error) bool { return target == ErrExternalTool }

var errNoOutput = errors.New("no output file produced")
