// Package video wraps the media toolchain: ffmpeg invocations echoed to the
// run log and ffprobe stream queries.
package video

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultFrameRate is used when a stream's frame rate cannot be probed.
const DefaultFrameRate = 25

// StreamInfo describes the first video stream of a file.
type StreamInfo struct {
	Width, Height int
	// FrameRate is rounded to whole frames per second.
	FrameRate int
}

// Toolchain runs the encoder and the prober.
type Toolchain interface {
	Run(ctx context.Context, args []string) error
	Probe(ctx context.Context, path string) (StreamInfo, error)
}

// RunError carries the tail of ffmpeg's output for a failed invocation.
type RunError struct {
	Args   []string
	Output string
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Args[0], e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// FFmpeg is the Toolchain backed by the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	Binary      string
	ProbeBinary string
	// Dir is the working directory of every invocation.
	Dir string
	// Echo receives each command line before it runs.
	Echo io.Writer
	Log  *logrus.Entry

	mu sync.Mutex
}

func (f *FFmpeg) binary() string {
	if f.Binary == "" {
		return "ffmpeg"
	}
	return f.Binary
}

func (f *FFmpeg) probe() string {
	if f.ProbeBinary == "" {
		return "ffprobe"
	}
	return f.ProbeBinary
}

// Run executes ffmpeg with args and waits for it.
func (f *FFmpeg) Run(ctx context.Context, args []string) error {
	full := append([]string{f.binary()}, args...)
	line := strings.Join(full, " ")
	f.mu.Lock()
	if f.Echo != nil {
		fmt.Fprintln(f.Echo, line)
	}
	f.mu.Unlock()
	if f.Log != nil {
		f.Log.WithField("cmd", line).Debug("running")
	}

	cmd := exec.CommandContext(ctx, full[0], full[1:]...)
	cmd.Dir = f.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &RunError{Args: full, Output: tail(out, 2048), Err: err}
	}
	return nil
}

// Probe reads the size and frame rate of the first video stream.
func (f *FFmpeg) Probe(ctx context.Context, path string) (StreamInfo, error) {
	size, err := f.query(ctx, "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=width,height", "-of", "csv=p=0", path)
	if err != nil {
		return StreamInfo{}, err
	}
	info, err := parseSize(size)
	if err != nil {
		return StreamInfo{}, fmt.Errorf("probe %s: %w", path, err)
	}

	rate, err := f.query(ctx, "-v", "error", "-select_streams", "v",
		"-of", "default=noprint_wrappers=1:nokey=1", "-show_entries", "stream=r_frame_rate", path)
	if err == nil {
		info.FrameRate = ParseFrameRate(rate)
	}
	if info.FrameRate <= 0 {
		info.FrameRate = DefaultFrameRate
	}
	return info, nil
}

func (f *FFmpeg) query(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, f.probe(), args...)
	cmd.Dir = f.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", &RunError{Args: append([]string{f.probe()}, args...), Output: stderr.String(), Err: err}
	}
	return strings.TrimSpace(string(out)), nil
}

func parseSize(s string) (StreamInfo, error) {
	first, _, _ := strings.Cut(s, "\n")
	w, h, ok := strings.Cut(strings.TrimSpace(first), ",")
	if !ok {
		return StreamInfo{}, fmt.Errorf("unexpected size %q", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return StreamInfo{}, fmt.Errorf("width %q: %w", w, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(h, ",")))
	if err != nil {
		return StreamInfo{}, fmt.Errorf("height %q: %w", h, err)
	}
	return StreamInfo{Width: width, Height: height}, nil
}

// ParseFrameRate turns ffprobe's "30000/1001" or "25/1" into a rounded
// integer rate. It returns 0 for anything it cannot read.
func ParseFrameRate(s string) int {
	first, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	num, den, ok := strings.Cut(first, "/")
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0
	}
	if !ok {
		return int(math.Round(n))
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil || d == 0 {
		return 0
	}
	return int(math.Round(n / d))
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}
