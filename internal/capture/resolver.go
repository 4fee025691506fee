package capture

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Recording is a launched encoder whose streams have started.
type Recording struct {
	Process   Process
	Plan      *Plan
	Offsets   Offsets
	Reference time.Time

	mu  sync.Mutex
	log *os.File
}

// Logf appends a line to the run log.
func (r *Recording) Logf(format string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.log == nil {
		return os.ErrClosed
	}
	_, err := fmt.Fprintf(r.log, format+"\n", args...)
	return err
}

// Close releases the run log. The process is not touched.
func (r *Recording) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.log == nil {
		return nil
	}
	err := r.log.Close()
	r.log = nil
	return err
}

// Resolver launches the encoder and waits for its streams to start.
type Resolver struct {
	Launcher Launcher
	Binary   string
	Log      *logrus.Entry
}

// Start truncates the run log, writes the command line to it, launches the
// encoder and blocks until the first progress line, a fatal line or the end
// of the log. On success the offset lines are appended to the run log.
//
// On a *CaptureStartError the returned Recording still carries the process
// so the caller can tear it down; no offsets are written.
func (r *Resolver) Start(ctx context.Context, plan *Plan) (*Recording, error) {
	logPath := plan.Files.Log
	f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	bin := r.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	fmt.Fprintln(f, plan.CommandLine(bin))
	if r.Log != nil {
		r.Log.WithField("cmd", plan.CommandLine(bin)).Info("starting encoder")
	}

	proc, err := r.Launcher.Launch(ctx, plan, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	rec := &Recording{Process: proc, Plan: plan, log: f}

	mon := NewMonitor(plan)
	err = Tail(ctx, logPath, proc.Done(), func(line string, at time.Time) bool {
		if r.Log != nil {
			r.Log.Debug(line)
		}
		return mon.Observe(line, at) == WaitingForStart
	})
	if err != nil {
		return rec, err
	}
	offsets, err := mon.Offsets()
	if err != nil {
		return rec, err
	}
	rec.Offsets = offsets
	rec.Reference = mon.Reference()

	rec.mu.Lock()
	_, err = offsets.WriteTo(rec.log)
	rec.mu.Unlock()
	if err != nil && r.Log != nil {
		r.Log.WithError(err).Warn("could not persist stream offsets")
	}
	if r.Log != nil {
		r.Log.WithFields(logrus.Fields{
			"audio":      offsets.Audio,
			"webcam":     offsets.Webcam,
			"screencast": offsets.Screencast,
		}).Info("streams started")
	}
	return rec, nil
}
