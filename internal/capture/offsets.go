package capture

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ivlev/slidecast/internal/timing"
)

const (
	audioOffsetKey      = "audiooffset"
	webcamOffsetKey     = "webcamoffset"
	screencastOffsetKey = "screencastoffset"
)

// ReproduceSeparator is appended to the run log before an offline rerun.
const ReproduceSeparator = "------------------------- REPRODUCE RUN -------------------------"

// Offsets are the per-stream start offsets against the reference start.
type Offsets struct {
	Audio      time.Duration
	Webcam     time.Duration
	Screencast time.Duration

	HasWebcam     bool
	HasScreencast bool
}

// Lines renders the offsets as they are stored in the run log.
func (o Offsets) Lines() []string {
	lines := []string{audioOffsetKey + "=" + timing.Format(o.Audio)}
	if o.HasWebcam {
		lines = append(lines, webcamOffsetKey+"="+timing.Format(o.Webcam))
	}
	if o.HasScreencast {
		lines = append(lines, screencastOffsetKey+"="+timing.Format(o.Screencast))
	}
	return lines
}

// WriteTo appends the offset lines to w.
func (o Offsets) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, l := range o.Lines() {
		k, err := fmt.Fprintln(w, l)
		n += int64(k)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReadOffsets scans a run log for offset lines. Missing values stay zero and
// later lines win over earlier ones.
func ReadOffsets(r io.Reader) (Offsets, error) {
	var o Offsets
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	var split lineSplitter
	sc.Split(split.split)
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		var dst *time.Duration
		switch key {
		case audioOffsetKey:
			dst = &o.Audio
		case webcamOffsetKey:
			dst = &o.Webcam
			o.HasWebcam = true
		case screencastOffsetKey:
			dst = &o.Screencast
			o.HasScreencast = true
		default:
			continue
		}
		d, err := timing.Parse(value)
		if err != nil {
			return Offsets{}, fmt.Errorf("offset line %q: %w", sc.Text(), err)
		}
		*dst = d
	}
	return o, sc.Err()
}

// ReadOffsetsFile reads the offsets of a run log on disk. A missing log
// yields zero offsets.
func ReadOffsetsFile(path string) (Offsets, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Offsets{}, nil
		}
		return Offsets{}, err
	}
	defer f.Close()
	return ReadOffsets(f)
}
