package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/slidecast/internal/capture"
	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/engine"
	"github.com/ivlev/slidecast/internal/logging"
	"github.com/ivlev/slidecast/internal/markers"
	"github.com/ivlev/slidecast/internal/video"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeProcess struct {
	mu         sync.Mutex
	done       chan struct{}
	calls      []string
	terminated bool
}

func (p *fakeProcess) note(call string) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

func (p *fakeProcess) exit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}

func (p *fakeProcess) Suspend() error {
	p.note("suspend")
	return nil
}

func (p *fakeProcess) Resume() error {
	p.note("resume")
	return nil
}

func (p *fakeProcess) Interrupt() error {
	p.note("interrupt")
	p.exit()
	return nil
}

func (p *fakeProcess) Terminate() error {
	p.note("terminate")
	p.exit()
	return nil
}

func (p *fakeProcess) Wait() error {
	<-p.done
	return nil
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

// encoder writes the lines a healthy ffmpeg prints while opening its outputs.
type encoder struct {
	fatal bool
	proc  *fakeProcess
}

func (e *encoder) Launch(_ context.Context, plan *capture.Plan, log *os.File) (capture.Process, error) {
	e.proc = &fakeProcess{done: make(chan struct{})}
	go func() {
		for _, st := range plan.Streams {
			log.WriteString("Output #" + string(rune('0'+st.Index)) + ", matroska, to '" + st.File + "':\n")
		}
		if e.fatal {
			log.WriteString("/dev/video0: Device or resource busy\n")
			return
		}
		log.WriteString("frame=    1 fps=0.0 q=0.0 size=       0kB\r")
	}()
	return e.proc, nil
}

func templates() capture.Templates {
	return capture.Templates{
		AudioSource: "-f pulse -i default", HasAudioSource: true,
		WebcamSource: "-f v4l2 -i /dev/video0", HasWebcamSource: true,
		WebcamOutput: "-c:v libx264", HasWebcamOutput: true,
	}
}

func newSession(t *testing.T, enc *encoder, webcam bool) (*Session, *clock, *[]time.Duration) {
	t.Helper()
	capture.PollInterval = time.Millisecond
	clk := &clock{}
	var slept []time.Duration
	s := New(Options{
		Dir:       t.TempDir(),
		Project:   "My Talk",
		Sources:   capture.Sources{Webcam: webcam},
		Templates: templates(),
		Launcher:  enc,
		Now:       clk.Now,
		Sleep:     func(d time.Duration) { slept = append(slept, d) },
		Log:       logging.Discard(),
	})
	return s, clk, &slept
}

func start(t *testing.T, s *Session, clk *clock) {
	t.Helper()
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	clk.set(s.Markers().Reference())
}

func TestSessionScenario(t *testing.T) {
	enc := &encoder{}
	s, clk, slept := newSession(t, enc, true)
	start(t, s, clk)
	if s.State() != Recording {
		t.Fatalf("state = %v", s.State())
	}

	clk.advance(12480 * time.Millisecond)
	s.RecordMarker(markers.SlideLabel(2))
	clk.advance(27523 * time.Millisecond)
	s.RecordMarker(markers.SlideLabel(3))
	clk.advance(22914 * time.Millisecond)
	offsets, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	data, err := os.ReadFile(s.Files().Timing)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	want := []string{"00:00:12.480 02", "00:00:40.003 03", "00:01:02.917 END"}
	if len(lines) != 4 || !strings.HasSuffix(lines[0], " S") {
		t.Fatalf("marker file = %q", lines)
	}
	for i, w := range want {
		if lines[i+1] != w {
			t.Errorf("line %d = %q, want %q", i+1, lines[i+1], w)
		}
	}
	if !offsets.HasWebcam {
		t.Error("webcam offset missing")
	}
	if len(*slept) != 1 || (*slept)[0] != WebcamGrace {
		t.Errorf("grace = %v", *slept)
	}
	if calls := enc.proc.calls; len(calls) != 1 || calls[0] != "interrupt" {
		t.Errorf("process calls = %q", calls)
	}
	if s.State() != Stopped {
		t.Errorf("state = %v", s.State())
	}
	if !strings.HasSuffix(s.Files().Base, "my-talk") {
		t.Errorf("base = %q", s.Files().Base)
	}
}

func TestPauseIsSubtracted(t *testing.T) {
	s, clk, _ := newSession(t, &encoder{}, false)
	start(t, s, clk)

	clk.advance(10 * time.Second)
	if err := s.Pause(); err != nil {
		t.Fatal(err)
	}
	clk.advance(5 * time.Second)
	if _, ok, _ := s.RecordMarker(markers.SlideLabel(2)); ok {
		t.Error("marker while paused must be dropped")
	}
	if got := s.Elapsed(); got != 10*time.Second {
		t.Errorf("Elapsed while paused = %v", got)
	}
	if err := s.Resume(); err != nil {
		t.Fatal(err)
	}
	clk.advance(2 * time.Second)
	m, ok, err := s.RecordMarker(markers.SlideLabel(2))
	if err != nil || !ok {
		t.Fatalf("RecordMarker: %v %v", ok, err)
	}
	if m.Offset != 12*time.Second {
		t.Errorf("offset = %v, want 12s", m.Offset)
	}
	if got := s.Elapsed(); got != 12*time.Second {
		t.Errorf("Elapsed = %v", got)
	}
	s.Stop()
}

func TestStopWhilePausedResumesFirst(t *testing.T) {
	enc := &encoder{}
	s, clk, slept := newSession(t, enc, false)
	start(t, s, clk)
	clk.advance(3 * time.Second)
	s.Pause()
	clk.advance(4 * time.Second)

	if _, err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := strings.Join(enc.proc.calls, ","); got != "suspend,resume,interrupt" {
		t.Errorf("calls = %s", got)
	}
	ms := s.Markers().Markers()
	if len(ms) != 1 || ms[0].Label != markers.End || ms[0].Offset != 3*time.Second {
		t.Errorf("markers = %+v", ms)
	}
	if len(*slept) != 0 {
		t.Errorf("audio-only stop should not wait: %v", *slept)
	}
}

func TestRecordBeforeStart(t *testing.T) {
	s, _, _ := newSession(t, &encoder{}, false)
	if _, _, err := s.RecordMarker(markers.SlideLabel(2)); !errors.Is(err, markers.ErrNotStarted) {
		t.Errorf("err = %v", err)
	}
	if err := s.Pause(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Pause err = %v", err)
	}
	if _, err := s.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop err = %v", err)
	}
}

func TestFailedStartTearsDown(t *testing.T) {
	enc := &encoder{fatal: true}
	s, _, _ := newSession(t, enc, true)
	err := s.Start(context.Background())
	if !errors.Is(err, capture.ErrCaptureStart) {
		t.Fatalf("err = %v", err)
	}
	if s.State() != Idle {
		t.Errorf("state = %v", s.State())
	}
	if got := strings.Join(enc.proc.calls, ","); got != "terminate" {
		t.Errorf("calls = %s", got)
	}
	if _, err := os.Stat(s.Files().Timing); !os.IsNotExist(err) {
		t.Error("no marker file on a failed start")
	}
	data, _ := os.ReadFile(s.Files().Log)
	if strings.Contains(string(data), "offset=") {
		t.Error("no offsets on a failed start")
	}
}

func TestConfigurationErrorBeforeLaunch(t *testing.T) {
	enc := &encoder{}
	s, _, _ := newSession(t, enc, true)
	s.opts.Templates.HasWebcamOutput = false
	if err := s.Start(context.Background()); !errors.Is(err, capture.ErrConfiguration) {
		t.Fatalf("err = %v", err)
	}
	if enc.proc != nil {
		t.Error("encoder launched despite bad configuration")
	}
}

func TestSecondRecorderIsLocked(t *testing.T) {
	s, clk, _ := newSession(t, &encoder{}, false)
	start(t, s, clk)
	defer s.Close()

	other := New(Options{
		Dir: s.opts.Dir, Project: "my talk", Templates: templates(),
		Launcher: &encoder{}, Log: logging.Discard(),
	})
	if err := other.Start(context.Background()); !errors.Is(err, ErrLocked) {
		t.Errorf("err = %v, want ErrLocked", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, markers.ErrAlreadyStarted) {
		t.Errorf("second Start = %v", err)
	}
}

func TestCloseTerminates(t *testing.T) {
	enc := &encoder{}
	s, clk, _ := newSession(t, enc, false)
	start(t, s, clk)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(enc.proc.calls, ","); got != "terminate" {
		t.Errorf("calls = %s", got)
	}
	if s.State() != Stopped {
		t.Errorf("state = %v", s.State())
	}
}

type nopTools struct{ calls int }

func (n *nopTools) Run(_ context.Context, args []string) error {
	n.calls++
	return os.WriteFile(args[len(args)-1], nil, 0o644)
}

func (n *nopTools) Probe(context.Context, string) (video.StreamInfo, error) {
	return video.StreamInfo{Width: 640, Height: 480, FrameRate: 25}, nil
}

func TestRunPipelineAfterStop(t *testing.T) {
	s, clk, _ := newSession(t, &encoder{}, true)
	cfg := config.New()
	cfg.Set(config.KeyProduceEverything, "yes")
	tools := &nopTools{}
	p := &engine.Pipeline{Config: cfg, Tools: tools}

	if _, err := s.RunPipeline(context.Background(), p); err == nil {
		t.Error("pipeline before stop should fail")
	}
	start(t, s, clk)
	clk.advance(time.Second)
	s.Stop()

	rep, err := s.RunPipeline(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	// Screencast flow without a screen source: join and webcam join, then overlay.
	if len(rep.Failed()) != 0 || tools.calls == 0 {
		t.Errorf("report = %+v, calls %d", rep, tools.calls)
	}
}
