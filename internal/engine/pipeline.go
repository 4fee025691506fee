// Package engine runs the production pipeline that turns the captured
// streams and the marker log into deliverables.
//
// A run first settles one Decision (everything, ask per stage, or nothing)
// and then walks the stages of either the presentation flow or the
// screencast flow. A failing stage is recorded in the Report and the run
// continues with the next one.
package engine

import (
	"context"
	"errors"
	"os"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/slidecast/internal/capture"
	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/effects"
	"github.com/ivlev/slidecast/internal/markers"
	"github.com/ivlev/slidecast/internal/renderer"
	"github.com/ivlev/slidecast/internal/source"
	"github.com/ivlev/slidecast/internal/video"
)

// Inputs describe one finished recording.
type Inputs struct {
	Files   capture.Files
	Offsets capture.Offsets

	Webcam   bool
	Region   bool
	Animated bool

	StartSlide int
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage    Stage
	Output   string
	Duration time.Duration
	Err      error
}

// Report lists the stages that ran, in order.
type Report struct {
	Decision Decision
	Results  []StageResult
}

// Failed returns the results that carry an error.
func (r *Report) Failed() []StageResult {
	var out []StageResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Produced returns the outputs of the stages that succeeded.
func (r *Report) Produced() []string {
	var out []string
	for _, res := range r.Results {
		if res.Err == nil {
			out = append(out, res.Output)
		}
	}
	return out
}

// Pipeline holds the collaborators of a production run. Slides is nil for a
// screencast recording.
type Pipeline struct {
	Config   *config.Config
	Tools    video.Toolchain
	Slides   source.Source
	Renderer *renderer.Renderer
	Prompt   Prompter
	Log      *logrus.Entry
	// Only restricts the run to these stages when non-empty.
	Only []Stage
}

func (p *Pipeline) log() *logrus.Entry {
	if p.Log != nil {
		return p.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (p *Pipeline) renderer() *renderer.Renderer {
	if p.Renderer != nil {
		return p.Renderer
	}
	return &renderer.Renderer{
		DPI:          p.Config.Int(config.KeySlidesDPI),
		HeightFactor: p.Config.Float(config.KeySlidesHeightFactor),
		Log:          p.log(),
	}
}

func (p *Pipeline) prompt() Prompter {
	if p.Prompt != nil {
		return p.Prompt
	}
	return Silent{}
}

// Run decides once, then produces every allowed artifact. The returned error
// is only non-nil when ctx ends the run; stage failures live in the Report.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Report, error) {
	gate := &Gate{Decision: Decide(p.Config, p.prompt()), Config: p.Config, Prompt: p.prompt()}
	report := &Report{Decision: gate.Decision}
	p.log().WithField("decision", gate.Decision).Info("production gate")
	// Отказ на общем вопросе: ничего не производим.
	if gate.Decision == Abort {
		return report, nil
	}

	r := &run{Pipeline: p, in: in, gate: gate, report: report}
	if p.Slides != nil {
		r.presentation(ctx)
	} else {
		r.screencast(ctx)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

type run struct {
	*Pipeline
	in     Inputs
	gate   *Gate
	report *Report

	timeline    *markers.Timeline
	timelineErr error
}

func (r *run) selected(stage Stage) bool {
	return len(r.Only) == 0 || slices.Contains(r.Only, stage)
}

func (r *run) want(stage Stage, key, question string) bool {
	return r.selected(stage) && r.gate.Allow(key, question)
}

func (r *run) record(stage Stage, output string, started time.Time, err error) {
	res := StageResult{Stage: stage, Output: output, Duration: time.Since(started), Err: err}
	r.report.Results = append(r.report.Results, res)
	entry := r.log().WithFields(logrus.Fields{"stage": stage, "output": output})
	if err != nil {
		entry.WithError(err).Warn("stage failed")
		return
	}
	entry.WithField("took", res.Duration.Round(time.Millisecond)).Info("stage done")
}

// exec runs one ffmpeg invocation for stage and checks that output exists.
func (r *run) exec(ctx context.Context, stage Stage, output string, args []string) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	err := r.Tools.Run(ctx, args)
	// ffmpeg иногда завершается с нулём, так и не создав файл.
	if err == nil && !exists(output) {
		err = errNoOutput
	}
	if err != nil {
		fail := &ExternalToolFailure{Stage: stage, Err: err}
		var re *video.RunError
		if errors.As(err, &re) {
			fail.Output = re.Output
		}
		err = fail
	}
	r.record(stage, output, started, err)
}

func (r *run) markers() (*markers.Timeline, error) {
	if r.timeline == nil && r.timelineErr == nil {
		r.timeline, r.timelineErr = markers.ReadFile(r.in.Files.Timing)
	}
	return r.timeline, r.timelineErr
}

func (r *run) compress() (bool, string) {
	return r.Config.Bool(config.KeyCompressAudio), r.Config.String(config.KeyAudioCodec)
}

func (r *run) join(ctx context.Context, stage Stage, j Join) {
	compress, codec := r.compress()
	r.exec(ctx, stage, j.Output, j.Args(compress, codec))
}

func (r *run) layout() effects.PictureInPicture {
	return effects.PictureInPicture{
		Fraction: r.Config.Int(config.KeyOverlayFraction),
		X:        r.Config.Int(config.KeyOverlayX),
		Y:        r.Config.Int(config.KeyOverlayY),
	}
}

// presentation: slideshow or animated-slide join, webcam join, title frame.
func (r *run) presentation(ctx context.Context) {
	f, off := r.in.Files, r.in.Offsets
	if !r.in.Animated {
		if r.want(StageSlideshow, config.KeyProduceSlideshow, "Produce the slideshow now?") {
			r.slideshow(ctx)
		}
		if r.want(StageSlidesAudio, config.KeyProduceSlidesAudio, "Join slideshow and audio now?") {
			// Слайдшоу начинается с опорного момента, поэтому сдвигается на +audiooffset.
			r.join(ctx, StageSlidesAudio, Join{
				Video: f.Slideshow, Audio: f.Audio, Output: f.SlidesAudio,
				VideoOffset: off.Audio,
			})
		}
	} else if r.want(StageScreenAudio, config.KeyProduceSlidesAudio, "Join slides video and audio now?") {
		r.screenJoin(ctx)
	}

	r.webcam(ctx)

	// Титульный кадр нужен для заставки в следующих прогонах.
	if r.selected(StageTitle) && r.gate.AllowByDefault(config.KeyProduceTitle) {
		r.title(ctx)
	}
}

func (r *run) screenJoin(ctx context.Context) {
	f, off := r.in.Files, r.in.Offsets
	started := time.Now()
	tl, err := r.markers()
	if err != nil {
		r.record(StageScreenAudio, f.ScreenAudio, started, err)
		return
	}
	r.join(ctx, StageScreenAudio, Join{
		Video: f.Screen, Audio: f.Audio, Output: f.ScreenAudio,
		VideoOffset: -off.Screencast, AudioOffset: -off.Audio,
		// Обрезаем по последнему маркеру, как и слайдшоу.
		VideoCut: time.Duration(tl.Last()/time.Second) * time.Second,
	})
}

func (r *run) webcam(ctx context.Context) {
	if !r.in.Webcam {
		return
	}
	if !r.want(StageWebcamAudio, config.KeyProduceWebcamAudio, "Join webcam video and audio?") {
		return
	}
	f, off := r.in.Files, r.in.Offsets
	r.join(ctx, StageWebcamAudio, Join{
		Video: f.Webcam, Audio: f.Audio, Output: f.WebcamAudio,
		VideoOffset: -off.Webcam, AudioOffset: -off.Audio,
	})
}

// screencast: screencast join, webcam join, overlay and the intro variant
// when a title frame exists.
func (r *run) screencast(ctx context.Context) {
	f, off := r.in.Files, r.in.Offsets
	if r.want(StageScreencastAudio, config.KeyProduceScreencastAudio, "Join screencast and audio now?") {
		r.join(ctx, StageScreencastAudio, Join{
			Video: f.Screencast, Audio: f.Audio, Output: f.ScreencastAudio,
			VideoOffset: -off.Screencast, AudioOffset: -off.Audio,
		})
	}

	r.webcam(ctx)
	// Без вебкамеры накладывать нечего.
	if !r.in.Webcam {
		return
	}

	if r.want(StageOverlay, config.KeyProduceOverlay, "Overlay the screencast and webcam video now?") {
		r.overlay(ctx)
	}
	if exists(f.Title) && r.want(StageOverlayTitle, config.KeyProduceOverlayTitle, "Found a title frame. Produce the overlay with intro now?") {
		r.overlayWithIntro(ctx)
	}
}

func (r *run) overlay(ctx context.Context) {
	f, off := r.in.Files, r.in.Offsets
	started := time.Now()
	pip, err := r.Tools.Probe(ctx, f.Webcam)
	if err != nil {
		r.record(StageOverlay, f.Overlayed, started, &ExternalToolFailure{Stage: StageOverlay, Err: err})
		return
	}
	o := Overlay{
		Pip:       f.Webcam,
		Output:    f.Overlayed,
		PipOffset: -off.Webcam,
		PipInfo:   pip,
		Layout:    r.layout(),
	}
	// Готовый screencast-audio уже выровнен и несёт звук.
	if exists(f.ScreencastAudio) {
		o.Base = f.ScreencastAudio
	} else {
		o.Base, o.BaseOffset = f.Screencast, -off.Screencast
	}
	r.exec(ctx, StageOverlay, o.Output, o.Args())
}

func (r *run) overlayWithIntro(ctx context.Context) {
	f, off := r.in.Files, r.in.Offsets
	started := time.Now()
	pip, err := r.Tools.Probe(ctx, f.Webcam)
	if err == nil {
		var base video.StreamInfo
		base, err = r.Tools.Probe(ctx, f.Screencast)
		if err == nil {
			o := IntroOverlay{
				Overlay: Overlay{
					Base:       f.Screencast,
					Pip:        f.Webcam,
					Output:     f.OverlayedTitle,
					BaseOffset: -off.Screencast,
					PipOffset:  -off.Webcam,
					PipInfo:    pip,
					Layout:     r.layout(),
				},
				Audio:         f.Audio,
				AudioOffset:   -off.Audio,
				BaseInfo:      base,
				Intro:         f.Title,
				IntroDuration: r.Config.Float(config.KeyIntroDuration),
				Outro:         r.Config.String(config.KeyOutroImage),
				OutroDuration: r.Config.Float(config.KeyOutroDuration),
			}
			r.exec(ctx, StageOverlayTitle, o.Output, o.Args())
			return
		}
	}
	r.record(StageOverlayTitle, f.OverlayedTitle, started, &ExternalToolFailure{Stage: StageOverlayTitle, Err: err})
}

func exists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
