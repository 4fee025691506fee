// Package capture launches the external encoder, watches its log for the
// moment each stream really starts and derives the per-stream offsets the
// production pipeline aligns the recordings with.
package capture

import (
	"fmt"
	"strings"

	"github.com/ivlev/slidecast/internal/config"
)

// Kind names one capture stream.
type Kind int

const (
	Webcam Kind = iota
	Region
	Animated
	Audio
)

func (k Kind) String() string {
	switch k {
	case Webcam:
		return "webcam"
	case Region:
		return "screencast"
	case Animated:
		return "screen"
	case Audio:
		return "audio"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Files are the deterministic names of everything a session produces.
type Files struct {
	Base string

	Audio      string
	Webcam     string
	Screencast string
	Screen     string
	Log        string

	WebcamAudio      string
	ScreencastAudio  string
	Overlayed        string
	OverlayedTitle   string
	Slideshow        string
	SlidesAudio      string
	ScreenAudio      string
	Title            string
	Timing           string
	Chapters         string
	VTT              string
	SlideFramePrefix string
}

// FilesFor derives the file set from a session basename, which may include
// a directory.
func FilesFor(base string) Files {
	return Files{
		Base:             base,
		Audio:            base + "-audio.flac",
		Webcam:           base + "-webcam.mkv",
		Screencast:       base + "-screencast.mkv",
		Screen:           base + "-screen.mkv",
		Log:              base + "-ffmpeg.log",
		WebcamAudio:      base + "-webcam-audio.mkv",
		ScreencastAudio:  base + "-screencast-audio.mkv",
		Overlayed:        base + "-screencast_overlayed.mp4",
		OverlayedTitle:   base + "-screencast_overlayed_title.mp4",
		Slideshow:        base + "-screen.mp4",
		SlidesAudio:      base + "-slides-audio.mkv",
		ScreenAudio:      base + "-screen-audio.mkv",
		Title:            base + "-title.png",
		Timing:           base + "-timing.chap",
		Chapters:         base + "-chapters.chap",
		VTT:              base + ".vtt",
		SlideFramePrefix: base + "-slide-",
	}
}

// Output returns the capture file of a stream kind.
func (f Files) Output(k Kind) string {
	switch k {
	case Webcam:
		return f.Webcam
	case Region:
		return f.Screencast
	case Animated:
		return f.Screen
	default:
		return f.Audio
	}
}

// Sources is the set of active capture sources. Audio is always recorded.
type Sources struct {
	Webcam bool
	// Region and Slides are nil when that source is off.
	Region *Geometry
	Slides *Geometry
}

// Screen reports whether any screen stream is captured.
func (s Sources) Screen() bool { return s.Region != nil || s.Slides != nil }

// Templates are the user-supplied encoder fragments. Has* fields tell an
// absent key from an empty one.
type Templates struct {
	AudioSource  string
	AudioOutput  string
	WebcamSource string
	WebcamOutput string
	ScreenSource string
	ScreenOutput string

	HasAudioSource, HasAudioOutput   bool
	HasWebcamSource, HasWebcamOutput bool
	HasScreenSource, HasScreenOutput bool
}

// TemplatesFrom reads the encoder fragments from configuration.
func TemplatesFrom(cfg *config.Config) Templates {
	return Templates{
		AudioSource:     cfg.String(config.KeyFFmpegSourceAudio),
		AudioOutput:     cfg.String(config.KeyFFmpegOutputAudio),
		WebcamSource:    cfg.String(config.KeyFFmpegSourceWebcam),
		WebcamOutput:    cfg.String(config.KeyFFmpegOutputWebcam),
		ScreenSource:    cfg.String(config.KeyFFmpegSourceScreen),
		ScreenOutput:    cfg.String(config.KeyFFmpegOutputScreen),
		HasAudioSource:  cfg.Has(config.KeyFFmpegSourceAudio),
		HasAudioOutput:  cfg.Has(config.KeyFFmpegOutputAudio),
		HasWebcamSource: cfg.Has(config.KeyFFmpegSourceWebcam),
		HasWebcamOutput: cfg.Has(config.KeyFFmpegOutputWebcam),
		HasScreenSource: cfg.Has(config.KeyFFmpegSourceScreen),
		HasScreenOutput: cfg.Has(config.KeyFFmpegOutputScreen),
	}
}

var placeholders = []string{"@WIDTH@", "@HEIGHT@", "@X@", "@Y@"}

// Stream is one encoder input mapped to its output file.
type Stream struct {
	Kind  Kind
	Index int
	File  string
}

// Plan is a validated encoder invocation.
type Plan struct {
	Args    []string
	Streams []Stream
	Sources Sources
	Files   Files
}

// Has reports whether the plan captures a stream of kind k.
func (p *Plan) Has(k Kind) bool {
	for _, s := range p.Streams {
		if s.Kind == k {
			return true
		}
	}
	return false
}

// CommandLine is the invocation as written to the top of the run log.
func (p *Plan) CommandLine(binary string) string {
	return binary + " " + strings.Join(p.Args, " ")
}

// BuildPlan assembles the encoder arguments: "-y -nostdin", then the input
// fragments in the order webcam, region, slides, audio, then one
// "-map N:v:0 <output> <file>" per video stream and "-map N:a:0" for audio.
// It fails with a *ConfigurationError before anything is started.
func BuildPlan(files Files, src Sources, t Templates) (*Plan, error) {
	if !t.HasAudioSource || t.AudioSource == "" {
		return nil, &ConfigurationError{Key: config.KeyFFmpegSourceAudio, Reason: "required"}
	}
	if src.Webcam && (!t.HasWebcamSource || !t.HasWebcamOutput) {
		return nil, &ConfigurationError{Key: config.KeyFFmpegSourceWebcam, Reason: "webcam needs both source and output templates"}
	}
	if src.Screen() {
		if !t.HasScreenSource || !t.HasScreenOutput {
			return nil, &ConfigurationError{Key: config.KeyFFmpegSourceScreen, Reason: "screen capture needs both source and output templates"}
		}
		for _, ph := range placeholders {
			if !strings.Contains(t.ScreenSource, ph) {
				return nil, &ConfigurationError{Key: config.KeyFFmpegSourceScreen, Reason: "must contain @WIDTH@, @HEIGHT@, @X@ and @Y@"}
			}
		}
	}

	p := &Plan{Sources: src, Files: files}
	inputs := []string{"-y", "-nostdin"}
	var outputs []string
	add := func(k Kind, source, output, stream string) {
		idx := len(p.Streams)
		inputs = append(inputs, strings.Fields(source)...)
		outputs = append(outputs, "-map", fmt.Sprintf("%d:%s:0", idx, stream))
		outputs = append(outputs, strings.Fields(output)...)
		outputs = append(outputs, files.Output(k))
		p.Streams = append(p.Streams, Stream{Kind: k, Index: idx, File: files.Output(k)})
	}

	if src.Webcam {
		add(Webcam, t.WebcamSource, t.WebcamOutput, "v")
	}
	if src.Region != nil {
		add(Region, fillGeometry(t.ScreenSource, *src.Region), t.ScreenOutput, "v")
	}
	if src.Slides != nil {
		add(Animated, fillGeometry(t.ScreenSource, *src.Slides), t.ScreenOutput, "v")
	}
	audioOut := ""
	if t.HasAudioOutput {
		audioOut = t.AudioOutput
	}
	add(Audio, t.AudioSource, audioOut, "a")

	p.Args = append(inputs, outputs...)
	return p, nil
}

func fillGeometry(tmpl string, g Geometry) string {
	r := strings.NewReplacer(
		"@WIDTH@", fmt.Sprint(g.Width),
		"@HEIGHT@", fmt.Sprint(g.Height),
		"@X@", fmt.Sprint(g.X),
		"@Y@", fmt.Sprint(g.Y),
	)
	return r.Replace(tmpl)
}
