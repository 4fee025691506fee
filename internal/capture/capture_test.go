package capture

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testTemplates() Templates {
	return Templates{
		AudioSource:     "-f pulse -i default",
		WebcamSource:    "-f v4l2 -i /dev/video0",
		WebcamOutput:    "-c:v libx264 -preset ultrafast",
		ScreenSource:    "-f x11grab -video_size @WIDTH@x@HEIGHT@ -i :0.0+@X@,@Y@",
		ScreenOutput:    "-c:v libx264rgb -crf 0",
		HasAudioSource:  true,
		HasWebcamSource: true,
		HasWebcamOutput: true,
		HasScreenSource: true,
		HasScreenOutput: true,
	}
}

func TestParseGeometry(t *testing.T) {
	tests := []struct {
		in   string
		want Geometry
		ok   bool
	}{
		{"1280x720+0+0", Geometry{1280, 720, 0, 0}, true},
		{"8x6+1+2", Geometry{8, 6, 1, 2}, true},
		{"12345x720+0+0", Geometry{}, false},
		{"1280x720", Geometry{}, false},
		{"1280x720+0+0junk", Geometry{}, false},
		{"0x720+0+0", Geometry{}, false},
	}
	for _, tt := range tests {
		got, err := ParseGeometry(tt.in)
		if tt.ok != (err == nil) {
			t.Errorf("ParseGeometry(%q) err = %v", tt.in, err)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseGeometry(%q) = %+v", tt.in, got)
		}
		if !tt.ok && !errors.Is(err, ErrConfiguration) {
			t.Errorf("ParseGeometry(%q) error should be a configuration error", tt.in)
		}
	}
}

func TestEvenRounding(t *testing.T) {
	g := Geometry{Width: 801, Height: 601, X: 10, Y: 20}
	if got := EvenRegion(g); got != (Geometry{800, 600, 10, 20}) {
		t.Errorf("EvenRegion = %v", got)
	}
	if got := EvenSlides(g); got != (Geometry{800, 600, 11, 21}) {
		t.Errorf("EvenSlides = %v", got)
	}
	even := Geometry{800, 600, 0, 0}
	if EvenRegion(even) != even || EvenSlides(even) != even {
		t.Error("even geometry must not change")
	}
}

func TestBuildPlanOrderAndMaps(t *testing.T) {
	files := FilesFor("talk")
	region := Geometry{1280, 720, 5, 6}
	plan, err := BuildPlan(files, Sources{Webcam: true, Region: &region}, testTemplates())
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	got := strings.Join(plan.Args, " ")
	want := "-y -nostdin -f v4l2 -i /dev/video0 -f x11grab -video_size 1280x720 -i :0.0+5,6 -f pulse -i default " +
		"-map 0:v:0 -c:v libx264 -preset ultrafast talk-webcam.mkv " +
		"-map 1:v:0 -c:v libx264rgb -crf 0 talk-screencast.mkv " +
		"-map 2:a:0 talk-audio.flac"
	if got != want {
		t.Errorf("args:\n got %s\nwant %s", got, want)
	}
	if !plan.Has(Webcam) || !plan.Has(Region) || plan.Has(Animated) {
		t.Errorf("streams = %+v", plan.Streams)
	}
}

func TestBuildPlanAudioOutput(t *testing.T) {
	tmpl := testTemplates()
	tmpl.AudioOutput, tmpl.HasAudioOutput = "-c:a flac", true
	plan, err := BuildPlan(FilesFor("x"), Sources{}, tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(plan.Args, " "); got != "-y -nostdin -f pulse -i default -map 0:a:0 -c:a flac x-audio.flac" {
		t.Errorf("args = %s", got)
	}
}

func TestBuildPlanConfigurationErrors(t *testing.T) {
	g := Geometry{640, 480, 0, 0}
	noAudio := testTemplates()
	noAudio.HasAudioSource = false
	noWebcamOut := testTemplates()
	noWebcamOut.HasWebcamOutput = false
	missingY := testTemplates()
	missingY.ScreenSource = "-f x11grab -video_size @WIDTH@x@HEIGHT@ -i :0.0+@X@"

	tests := []struct {
		name string
		src  Sources
		tmpl Templates
	}{
		{"audio source", Sources{}, noAudio},
		{"webcam output", Sources{Webcam: true}, noWebcamOut},
		{"region placeholder", Sources{Region: &g}, missingY},
		{"slides placeholder", Sources{Slides: &g}, missingY},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := BuildPlan(FilesFor("x"), tt.src, tt.tmpl)
			var ce *ConfigurationError
			if !errors.As(err, &ce) || plan != nil {
				t.Fatalf("BuildPlan = %v, %v; want ConfigurationError", plan, err)
			}
		})
	}
}

func TestMonitorOffsets(t *testing.T) {
	plan, _ := BuildPlan(FilesFor("talk"), Sources{Webcam: true}, testTemplates())
	m := NewMonitor(plan)
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	lines := []struct {
		at   time.Duration
		line string
	}{
		{100 * time.Millisecond, "Input #0, video4linux2,v4l2, from '/dev/video0':"},
		{500 * time.Millisecond, "Output #1, flac, to 'talk-audio.flac':"},
		{800 * time.Millisecond, "Output #0, matroska, to 'talk-webcam.mkv':"},
		{time.Second, "frame=    1 fps=0.0 q=0.0 size=       1kB time=00:00:00.03"},
	}
	var state State
	for _, l := range lines {
		state = m.Observe(l.line, t0.Add(l.at))
	}
	if state != Started {
		t.Fatalf("state = %v", state)
	}
	o, err := m.Offsets()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"audiooffset=00:00:00.500", "webcamoffset=00:00:00.200"}
	if got := o.Lines(); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("lines = %q", got)
	}
	if !m.Reference().Equal(t0.Add(time.Second)) {
		t.Errorf("reference = %v", m.Reference())
	}
}

func TestMonitorScreenFilesShareOffset(t *testing.T) {
	g := Geometry{640, 480, 0, 0}
	plan, _ := BuildPlan(FilesFor("talk"), Sources{Slides: &g}, testTemplates())
	m := NewMonitor(plan)
	t0 := time.Now()
	m.Observe("Output #0, matroska, to 'talk-screen.mkv':", t0)
	m.Observe("size=       0kB time=00:00:00.00", t0.Add(300*time.Millisecond))
	o, err := m.Offsets()
	if err != nil {
		t.Fatal(err)
	}
	if !o.HasScreencast || o.Screencast != 300*time.Millisecond || o.HasWebcam {
		t.Errorf("offsets = %+v", o)
	}
}

func TestMonitorRegionDrivesScreencastOffset(t *testing.T) {
	region, slides := Geometry{1280, 720, 0, 0}, Geometry{640, 480, 0, 0}
	plan, _ := BuildPlan(FilesFor("talk"), Sources{Region: &region, Slides: &slides}, testTemplates())
	m := NewMonitor(plan)
	t0 := time.Now()
	m.Observe("Output #0, matroska, to 'talk-screencast.mkv':", t0)
	m.Observe("Output #1, matroska, to 'talk-screen.mkv':", t0.Add(200*time.Millisecond))
	m.Observe("frame=    1", t0.Add(500*time.Millisecond))
	o, err := m.Offsets()
	if err != nil {
		t.Fatal(err)
	}
	if o.Screencast != 500*time.Millisecond {
		t.Errorf("screencast offset = %v, want the region stream's", o.Screencast)
	}
}

func TestMonitorMissingOpenerIsZero(t *testing.T) {
	plan, _ := BuildPlan(FilesFor("talk"), Sources{Webcam: true}, testTemplates())
	m := NewMonitor(plan)
	m.Observe("frame=    1", time.Now())
	o, _ := m.Offsets()
	if o.Audio != 0 || o.Webcam != 0 || !o.HasWebcam {
		t.Errorf("offsets = %+v", o)
	}
}

func TestMonitorFatalLine(t *testing.T) {
	plan, _ := BuildPlan(FilesFor("talk"), Sources{Webcam: true}, testTemplates())
	m := NewMonitor(plan)
	now := time.Now()
	m.Observe("Output #1, flac, to 'talk-audio.flac':", now)
	if s := m.Observe("[video4linux2,v4l2 @ 0x55] ioctl(VIDIOC_STREAMON): Device or resource busy", now); s != Failed {
		t.Fatalf("state = %v", s)
	}
	// Later progress must not revive a failed start.
	if s := m.Observe("frame=    1", now); s != Failed {
		t.Errorf("state after failure = %v", s)
	}
	_, err := m.Offsets()
	var cse *CaptureStartError
	if !errors.As(err, &cse) || !strings.Contains(cse.Line, "busy") {
		t.Errorf("Offsets err = %v", err)
	}
}

func TestMonitorLogEnded(t *testing.T) {
	plan, _ := BuildPlan(FilesFor("talk"), Sources{}, testTemplates())
	m := NewMonitor(plan)
	if _, err := m.Offsets(); !errors.Is(err, ErrCaptureStart) {
		t.Errorf("err = %v", err)
	}
}

func TestScanLogLines(t *testing.T) {
	in := "first\nframe=  1\rframe=  2\r\n\nlast"
	sc := bufio.NewScanner(strings.NewReader(in))
	var split lineSplitter
	sc.Split(split.split)
	var got []string
	for sc.Scan() {
		got = append(got, sc.Text())
	}
	want := []string{"first", "frame=  1", "frame=  2", "", "last"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q", got)
	}
}

func TestTailDeliversBareCarriageReturnAtOnce(t *testing.T) {
	PollInterval = time.Millisecond
	path := filepath.Join(t.TempDir(), "talk-ffmpeg.log")
	os.WriteFile(path, []byte("Output #0, flac, to 'a.flac':\nframe=    1 fps=0.0 q=0.0\r"), 0o644)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	began := time.Now()
	var seen time.Duration
	err := Tail(ctx, path, make(chan struct{}), func(line string, at time.Time) bool {
		if strings.HasPrefix(line, "frame=") {
			seen = at.Sub(began)
			return false
		}
		return true
	})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if seen == 0 || seen > 100*time.Millisecond {
		t.Errorf("progress line seen after %v", seen)
	}
}

func TestTailCarriageReturnThenNewlineAcrossWrites(t *testing.T) {
	PollInterval = time.Millisecond
	path := filepath.Join(t.TempDir(), "talk-ffmpeg.log")
	os.WriteFile(path, []byte("a\r"), 0o644)
	go func() {
		time.Sleep(20 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		f.WriteString("\nb\n")
		f.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var got []string
	err := Tail(ctx, path, make(chan struct{}), func(line string, _ time.Time) bool {
		got = append(got, line)
		return line != "b"
	})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if strings.Join(got, "|") != "a|b" {
		t.Errorf("lines = %q", got)
	}
}

func TestReadOffsets(t *testing.T) {
	log := "ffmpeg -y -nostdin ...\n" +
		"audiooffset=00:00:00.500\n" +
		"webcamoffset=00:00:00.200\n" +
		ReproduceSeparator + "\n" +
		"audiooffset=00:00:00.450\n"
	o, err := ReadOffsets(strings.NewReader(log))
	if err != nil {
		t.Fatal(err)
	}
	if o.Audio != 450*time.Millisecond || o.Webcam != 200*time.Millisecond || !o.HasWebcam || o.HasScreencast {
		t.Errorf("offsets = %+v", o)
	}

	o, err = ReadOffsetsFile(filepath.Join(t.TempDir(), "missing.log"))
	if err != nil || o != (Offsets{}) {
		t.Errorf("missing log = %+v, %v", o, err)
	}
	if _, err := ReadOffsets(strings.NewReader("audiooffset=later\n")); err == nil {
		t.Error("expected error for malformed offset")
	}
}

// scriptedLauncher writes canned encoder output into the run log.
type scriptedLauncher struct {
	lines []string
	// hang keeps the fake running until Terminate.
	hang bool
	proc *fakeProcess
}

func (l *scriptedLauncher) Launch(ctx context.Context, plan *Plan, log *os.File) (Process, error) {
	p := newFakeProcess()
	l.proc = p
	go func() {
		for _, line := range l.lines {
			log.WriteString(line)
			time.Sleep(5 * time.Millisecond)
		}
		if !l.hang {
			p.exit()
		}
	}()
	return p, nil
}

type fakeProcess struct {
	done       chan struct{}
	suspended  int
	resumed    int
	interrupts int
	terminated bool
}

func newFakeProcess() *fakeProcess { return &fakeProcess{done: make(chan struct{})} }

func (p *fakeProcess) exit() {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}

func (p *fakeProcess) Suspend() error {
	p.suspended++
	return nil
}

func (p *fakeProcess) Resume() error {
	p.resumed++
	return nil
}

func (p *fakeProcess) Interrupt() error {
	p.interrupts++
	p.exit()
	return nil
}

func (p *fakeProcess) Terminate() error {
	p.terminated = true
	p.exit()
	return nil
}

func (p *fakeProcess) Wait() error {
	<-p.done
	return nil
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func TestResolverStartWritesOffsets(t *testing.T) {
	PollInterval = time.Millisecond
	base := filepath.Join(t.TempDir(), "talk")
	files := FilesFor(base)
	plan, _ := BuildPlan(files, Sources{Webcam: true}, testTemplates())
	l := &scriptedLauncher{hang: true, lines: []string{
		"Output #0, matroska, to '" + files.Webcam + "':\n",
		"Output #1, flac, to '" + files.Audio + "':\n",
		"frame=    1 fps=0.0\r",
		"frame=    5 fps=0.0\r",
	}}
	r := &Resolver{Launcher: l}
	rec, err := r.Start(context.Background(), plan)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.Process.Interrupt()
	rec.Process.Wait()
	rec.Close()

	data, _ := os.ReadFile(files.Log)
	text := string(data)
	if !strings.HasPrefix(text, "ffmpeg -y -nostdin") {
		t.Errorf("log should start with the command line: %q", text)
	}
	if !strings.Contains(text, "audiooffset=") || !strings.Contains(text, "webcamoffset=") {
		t.Errorf("offset lines missing: %q", text)
	}
	if strings.Contains(text, "screencastoffset=") {
		t.Error("no screen source, no screencast offset")
	}
}

func TestResolverStartsOnSingleProgressLine(t *testing.T) {
	PollInterval = time.Millisecond
	base := filepath.Join(t.TempDir(), "talk")
	files := FilesFor(base)
	plan, _ := BuildPlan(files, Sources{}, testTemplates())
	// The encoder stays alive after its first progress update.
	l := &scriptedLauncher{hang: true, lines: []string{
		"Output #0, flac, to '" + files.Audio + "':\n",
		"frame=    1 fps=0.0 q=0.0 size=       0kB\r",
	}}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	began := time.Now()
	rec, err := (&Resolver{Launcher: l}).Start(ctx, plan)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		rec.Process.Interrupt()
		rec.Process.Wait()
		rec.Close()
	}()
	if took := time.Since(began); took > 500*time.Millisecond {
		t.Errorf("start took %v", took)
	}
	if rec.Offsets.Audio < 0 || rec.Offsets.Audio > 100*time.Millisecond {
		t.Errorf("audio offset = %v", rec.Offsets.Audio)
	}
}

func TestResolverFatalWritesNoOffsets(t *testing.T) {
	PollInterval = time.Millisecond
	base := filepath.Join(t.TempDir(), "talk")
	files := FilesFor(base)
	plan, _ := BuildPlan(files, Sources{}, testTemplates())
	l := &scriptedLauncher{hang: true, lines: []string{
		"[pulse @ 0x1] default: Input/output error\n",
		"frame=    1\n",
	}}
	rec, err := (&Resolver{Launcher: l}).Start(context.Background(), plan)
	if !errors.Is(err, ErrCaptureStart) {
		t.Fatalf("err = %v, want CaptureStartError", err)
	}
	if rec == nil || rec.Process == nil {
		t.Fatal("failed start must hand back the process")
	}
	rec.Process.Terminate()
	rec.Close()
	if !l.proc.terminated {
		t.Error("process not terminated")
	}
	data, _ := os.ReadFile(files.Log)
	if strings.Contains(string(data), "offset=") {
		t.Errorf("offsets written after failure: %q", data)
	}
}

func TestResolverEncoderExitsEarly(t *testing.T) {
	PollInterval = time.Millisecond
	files := FilesFor(filepath.Join(t.TempDir(), "talk"))
	plan, _ := BuildPlan(files, Sources{}, testTemplates())
	l := &scriptedLauncher{lines: []string{"Unknown input format: 'pulse'\n"}}
	_, err := (&Resolver{Launcher: l}).Start(context.Background(), plan)
	if !errors.Is(err, ErrCaptureStart) {
		t.Errorf("err = %v", err)
	}
}
