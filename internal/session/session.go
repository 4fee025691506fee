// Package session ties one live recording together: the encoder launched
// through the offset resolver, the marker log, pause bookkeeping and the
// production run that follows.
//
// A Session is driven by a presenter front end through Start, RecordMarker,
// Pause, Resume and Stop. It reads nothing from the front end beyond those
// calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/slidecast/internal/capture"
	"github.com/ivlev/slidecast/internal/engine"
	"github.com/ivlev/slidecast/internal/markers"
)

// ErrLocked is returned by Start when another recorder holds the project.
var ErrLocked = errors.New("project is being recorded by another process")

// ErrNotRecording is returned by Pause, Resume and Stop outside a recording.
var ErrNotRecording = errors.New("not recording")

// State is the lifecycle of a Session.
type State int

const (
	Idle State = iota
	Starting
	Recording
	Paused
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	case Stopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Grace delays before the encoder is interrupted, so slower sources finish
// their last frames.
var (
	WebcamGrace   = time.Second
	AnimatedGrace = 2 * time.Second
)

// Options configure a Session.
type Options struct {
	// Dir holds every file of the project; Project is its display name.
	Dir     string
	Project string

	Sources   capture.Sources
	Templates capture.Templates
	Binary    string

	Titles     map[int]string
	WriteVTT   bool
	StartSlide int

	Launcher capture.Launcher
	Now      func() time.Time
	Sleep    func(time.Duration)
	Log      *logrus.Entry
}

// Session is one recording run of a project.
type Session struct {
	opts  Options
	id    string
	files capture.Files
	log   *logrus.Entry

	mu          sync.Mutex
	state       State
	rec         *capture.Recording
	lock        *flock.Flock
	pausedTotal time.Duration
	pausedAt    time.Time

	marks *markers.Log
}

// New prepares a Session. Nothing touches the disk until Start.
func New(opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.StartSlide < 1 {
		opts.StartSlide = 1
	}
	if opts.Launcher == nil {
		opts.Launcher = capture.FFmpeg{Binary: opts.Binary}
	}
	id := uuid.NewString()
	entry := opts.Log
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Session{
		opts:  opts,
		id:    id,
		files: capture.FilesFor(Basename(opts.Dir, opts.Project)),
		log:   entry.WithField("session", id),
	}
	s.marks = markers.NewLog(markers.Options{
		MarkerPath:   s.files.Timing,
		ChaptersPath: s.files.Chapters,
		VTTPath:      s.vttPath(),
		Titles:       opts.Titles,
		StartSlide:   opts.StartSlide,
	}, s)
	return s
}

// Basename is the path prefix shared by every file of a project.
func Basename(dir, project string) string {
	return filepath.Join(dir, Slug(project))
}

func (s *Session) vttPath() string {
	if s.opts.WriteVTT {
		return s.files.VTT
	}
	return ""
}

func (s *Session) ID() string { return s.id }
func (s *Session) Files() capture.Files { return s.files }
func (s *Session) Markers() *markers.Log { return s.marks }
func (s *Session) Log() *logrus.Entry { return s.log }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Now implements markers.Clock.
func (s *Session) Now() time.Time { return s.opts.Now() }

// Paused implements markers.Clock: the sum of completed pause intervals.
func (s *Session) Paused() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pausedTotal
}

// Recording implements markers.Clock.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Recording
}

// Elapsed is the logical recording time, pauses excluded.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return 0
	}
	now := s.opts.Now()
	d := now.Sub(s.rec.Reference) - s.pausedTotal
	if s.state == Paused {
		d -= now.Sub(s.pausedAt)
	}
	if d < 0 {
		return 0
	}
	return d
}

// Start locks the project, launches the encoder, waits for its streams and
// opens the marker log at the reference start. A failed start leaves the
// session Idle with the encoder gone.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return markers.ErrAlreadyStarted
	}
	s.state = Starting
	s.mu.Unlock()

	rec, err := s.start(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = Idle
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.rec = rec
	s.state = Recording
	s.mu.Unlock()

	if err := s.marks.Start(rec.Reference); err != nil {
		// Запись продолжается, даже если файл маркеров недоступен.
		s.log.WithError(err).Warn("marker log unavailable")
	}
	s.log.WithField("reference", rec.Reference.Format(markers.HeaderLayout)).Info("recording")
	return nil
}

func (s *Session) start(ctx context.Context) (*capture.Recording, error) {
	// Один рекордер на проект: второй запуск получает ErrLocked.
	lock := flock.New(s.files.Base + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lock.Path())
	}

	plan, err := capture.BuildPlan(s.files, s.opts.Sources, s.opts.Templates)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	res := &capture.Resolver{Launcher: s.opts.Launcher, Binary: s.opts.Binary, Log: s.log}
	rec, err := res.Start(ctx, plan)
	if err != nil {
		// Полузапущенный ffmpeg гасим сразу, смещения не пишутся.
		if rec != nil {
			rec.Process.Terminate()
			rec.Process.Wait()
			rec.Close()
		}
		lock.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.lock = lock
	s.mu.Unlock()
	return rec, nil
}

// RecordMarker logs label at the current logical time. Outside Recording the
// event is dropped and false is returned; before Start it fails with
// markers.ErrNotStarted.
func (s *Session) RecordMarker(label markers.Label) (markers.Marker, bool, error) {
	m, ok, err := s.marks.Record(label)
	if err != nil && !errors.Is(err, markers.ErrNotStarted) {
		s.log.WithError(err).WithField("label", label).Warn("marker not fully persisted")
	}
	return m, ok, err
}

// Pause suspends the encoder and freezes logical time.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Recording {
		return ErrNotRecording
	}
	if err := s.rec.Process.Suspend(); err != nil {
		return fmt.Errorf("suspend encoder: %w", err)
	}
	s.pausedAt = s.opts.Now()
	s.state = Paused
	s.log.Info("paused")
	return nil
}

// Resume continues the encoder and closes the pause interval.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumeLocked()
}

func (s *Session) resumeLocked() error {
	if s.state != Paused {
		return ErrNotRecording
	}
	if err := s.rec.Process.Resume(); err != nil {
		return fmt.Errorf("resume encoder: %w", err)
	}
	s.pausedTotal += s.opts.Now().Sub(s.pausedAt)
	s.pausedAt = time.Time{}
	s.state = Recording
	s.log.WithField("paused", s.pausedTotal).Info("resumed")
	return nil
}

// TogglePause pauses a recording session and resumes a paused one.
func (s *Session) TogglePause() error {
	if s.State() == Paused {
		return s.Resume()
	}
	return s.Pause()
}

func (s *Session) grace() time.Duration {
	var d time.Duration
	if s.opts.Sources.Webcam {
		d += WebcamGrace
	}
	if s.opts.Sources.Slides != nil {
		d += AnimatedGrace
	}
	return d
}

// Stop logs END, lets slow sources settle, interrupts the encoder and waits
// for it. A paused session is resumed first.
func (s *Session) Stop() (capture.Offsets, error) {
	s.mu.Lock()
	if s.state == Paused {
		if err := s.resumeLocked(); err != nil {
			s.mu.Unlock()
			return capture.Offsets{}, err
		}
	}
	if s.state != Recording {
		s.mu.Unlock()
		return capture.Offsets{}, ErrNotRecording
	}
	rec := s.rec
	s.mu.Unlock()

	// END пишется до паузы ожидания, пока логическое время ещё идёт.
	if _, _, err := s.marks.RecordEnd(); err != nil {
		s.log.WithError(err).Warn("END marker not fully persisted")
	}

	s.mu.Lock()
	s.state = Stopping
	s.mu.Unlock()

	// Вебкамера и слайды стартуют медленнее, даём им дописать последний кадр.
	if d := s.grace(); d > 0 {
		s.opts.Sleep(d)
	}
	if err := rec.Process.Interrupt(); err != nil {
		s.log.WithError(err).Warn("interrupt encoder")
	}
	// Код выхода после SIGINT ненулевой, это не ошибка.
	if err := rec.Process.Wait(); err != nil {
		s.log.WithError(err).Debug("encoder exited")
	}
	rec.Close()

	s.mu.Lock()
	s.state = Stopped
	s.unlockLocked()
	s.mu.Unlock()
	s.log.WithField("markers", len(s.marks.Markers())).Info("stopped")
	return rec.Offsets, nil
}

// Close terminates a still-running encoder and releases the project lock.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.rec != nil && (s.state == Recording || s.state == Paused || s.state == Stopping) {
		// Остановленный SIGSTOP процесс не получит SIGTERM, пока не продолжен.
		if s.state == Paused {
			s.rec.Process.Resume()
		}
		err = s.rec.Process.Terminate()
		s.rec.Process.Wait()
		s.rec.Close()
		s.state = Stopped
	}
	s.unlockLocked()
	return err
}

func (s *Session) unlockLocked() {
	if s.lock != nil {
		s.lock.Unlock()
		s.lock = nil
	}
}

// Inputs describes the finished recording for the production pipeline.
func (s *Session) Inputs() engine.Inputs {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := engine.Inputs{
		Files:      s.files,
		Webcam:     s.opts.Sources.Webcam,
		Region:     s.opts.Sources.Region != nil,
		Animated:   s.opts.Sources.Slides != nil,
		StartSlide: s.opts.StartSlide,
	}
	if s.rec != nil {
		in.Offsets = s.rec.Offsets
	}
	return in
}

// RunPipeline produces the deliverables of a stopped session. The stage
// selection is carried by p (its gate configuration and Only list).
func (s *Session) RunPipeline(ctx context.Context, p *engine.Pipeline) (*engine.Report, error) {
	if st := s.State(); st != Stopped {
		return nil, fmt.Errorf("run pipeline: session is %s", st)
	}
	if p.Log == nil {
		p.Log = s.log.WithField("component", "engine")
	}
	return p.Run(ctx, s.Inputs())
}
