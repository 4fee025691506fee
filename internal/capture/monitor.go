package capture

import (
	"regexp"
	"time"
)

// State is the progress of an encoder start-up.
type State int

const (
	WaitingForStart State = iota
	Started
	Failed
)

func (s State) String() string {
	switch s {
	case Started:
		return "started"
	case Failed:
		return "failed"
	}
	return "waiting"
}

var (
	progressRe = regexp.MustCompile(`^(frame|size)= *\d+`)
	fatalRe    = regexp.MustCompile(`^.*(Device or resource busy|Inappropriate ioctl for device|Input/output error|not found)$`)
)

type opener struct {
	kind Kind
	re   *regexp.Regexp
}

// Monitor turns encoder log lines into stream start times. It is fed one
// line at a time and stops changing once it leaves WaitingForStart.
type Monitor struct {
	plan    *Plan
	openers []opener

	state     State
	starts    map[Kind]time.Time
	reference time.Time
	failure   string
}

// NewMonitor watches for the streams of plan.
func NewMonitor(plan *Plan) *Monitor {
	m := &Monitor{plan: plan, starts: make(map[Kind]time.Time)}
	m.openers = append(m.openers, opener{Audio, outputOpenedRe(plan.Files.Audio)})
	if plan.Has(Webcam) {
		m.openers = append(m.openers, opener{Webcam, outputOpenedRe(plan.Files.Webcam)})
	}
	if plan.Has(Region) {
		m.openers = append(m.openers, opener{Region, outputOpenedRe(plan.Files.Screencast)})
	}
	if plan.Has(Animated) {
		m.openers = append(m.openers, opener{Animated, outputOpenedRe(plan.Files.Screen)})
	}
	return m
}

func outputOpenedRe(file string) *regexp.Regexp {
	return regexp.MustCompile(`^Output [^']*'` + regexp.QuoteMeta(file) + `'`)
}

// Observe feeds one line seen at time at and returns the new state.
func (m *Monitor) Observe(line string, at time.Time) State {
	if m.state != WaitingForStart {
		return m.state
	}
	for _, o := range m.openers {
		if o.re.MatchString(line) {
			m.starts[o.kind] = at
		}
	}
	if progressRe.MatchString(line) {
		m.reference = at
		m.state = Started
		return m.state
	}
	if fatalRe.MatchString(line) {
		m.failure = line
		m.state = Failed
	}
	return m.state
}

// State returns the current state.
func (m *Monitor) State() State { return m.state }

// Reference returns the time of the first progress line.
func (m *Monitor) Reference() time.Time { return m.reference }

// Err describes why the start failed, or returns nil.
func (m *Monitor) Err() error {
	switch m.state {
	case Failed:
		return &CaptureStartError{Line: m.failure, Reason: "encoder reported a device error"}
	case WaitingForStart:
		return &CaptureStartError{Reason: "encoder log ended before the first frame"}
	}
	return nil
}

// Offsets computes reference minus each stream's start. A stream that never
// announced its output gets a zero offset.
func (m *Monitor) Offsets() (Offsets, error) {
	if err := m.Err(); err != nil {
		return Offsets{}, err
	}
	since := func(k Kind) time.Duration {
		at, ok := m.starts[k]
		if !ok {
			return 0
		}
		return m.reference.Sub(at)
	}
	o := Offsets{Audio: since(Audio)}
	if m.plan.Has(Webcam) {
		o.Webcam, o.HasWebcam = since(Webcam), true
	}
	// Один screencastoffset на оба экранных потока: регион важнее слайдов.
	switch {
	case m.plan.Has(Region):
		o.Screencast, o.HasScreencast = since(Region), true
	case m.plan.Has(Animated):
		o.Screencast, o.HasScreencast = since(Animated), true
	}
	return o, nil
}
