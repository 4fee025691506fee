package engine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ivlev/slidecast/internal/effects"
	"github.com/ivlev/slidecast/internal/timing"
	"github.com/ivlev/slidecast/internal/video"
)

// Stage names a pipeline step in reports and logs.
type Stage string

const (
	StageSlideshow       Stage = "slideshow"
	StageSlidesAudio     Stage = "slides_audio"
	StageScreenAudio     Stage = "screen_audio"
	StageWebcamAudio     Stage = "webcam_audio"
	StageScreencastAudio Stage = "screencast_audio"
	StageOverlay         Stage = "overlay"
	StageOverlayTitle    Stage = "overlay_title"
	StageTitle           Stage = "title"
)

// Join muxes the video of one file with the audio of another. Each input is
// shifted by its offset, then optionally trimmed. Zero Start and Cut values
// mean "from the beginning" and "to the end".
type Join struct {
	Video, Audio, Output     string
	VideoOffset, AudioOffset time.Duration
	VideoStart, AudioStart   time.Duration
	VideoCut, AudioCut       time.Duration
}

// Args builds the ffmpeg arguments. With compress the audio is encoded with
// codec, otherwise both streams are copied.
func (j Join) Args(compress bool, codec string) []string {
	args := []string{"-y"}
	args = append(args, input(j.Video, j.VideoOffset, j.VideoStart, j.VideoCut)...)
	args = append(args, input(j.Audio, j.AudioOffset, j.AudioStart, j.AudioCut)...)
	args = append(args, "-map", "0:v", "-map", "1:a")
	if compress {
		if codec == "" {
			codec = "aac"
		}
		args = append(args, "-c:v", "copy", "-c:a", codec)
	} else {
		args = append(args, "-c", "copy")
	}
	return append(args, j.Output)
}

func input(path string, offset, start, cut time.Duration) []string {
	args := []string{"-itsoffset", timing.FormatSigned(offset), "-ss", timing.Format(start)}
	if cut > 0 {
		args = append(args, "-t", cutValue(cut))
	}
	return append(args, "-i", path)
}

// Whole-second cuts are passed as plain integers.
func cutValue(d time.Duration) string {
	if d%time.Second == 0 {
		return strconv.FormatInt(int64(d/time.Second), 10)
	}
	return timing.Format(d)
}

// Overlay composites Pip onto Base. The output frame rate is pinned to the
// probed overlay rate and the base audio is copied.
type Overlay struct {
	Base, Pip, Output     string
	BaseOffset, PipOffset time.Duration
	// PipInfo is the probed overlay stream.
	PipInfo video.StreamInfo
	Layout  effects.PictureInPicture
}

func (o Overlay) frameRate() string {
	fr := o.PipInfo.FrameRate
	if fr <= 0 {
		fr = video.DefaultFrameRate
	}
	return strconv.Itoa(fr)
}

func (o Overlay) Args() []string {
	args := []string{"-y"}
	if o.BaseOffset != 0 {
		args = append(args, "-itsoffset", timing.FormatSigned(o.BaseOffset))
	}
	args = append(args, "-i", o.Base,
		"-itsoffset", timing.FormatSigned(o.PipOffset), "-i", o.Pip,
		"-filter_complex", o.Layout.Filter("1:v", "0:v", o.PipInfo.Width, o.PipInfo.Height, ""),
		"-r", o.frameRate(), "-c:a", "copy", o.Output)
	return args
}

// IntroOverlay is an Overlay preceded by a still intro and optionally
// followed by a still outro. Stills are fitted to BaseInfo so the concat
// filter sees matching sizes.
type IntroOverlay struct {
	Overlay
	Audio       string
	AudioOffset time.Duration
	BaseInfo    video.StreamInfo

	Intro         string
	IntroDuration float64
	Outro         string
	OutroDuration float64
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (o IntroOverlay) Args() []string {
	fr := o.frameRate()
	args := []string{"-y",
		"-framerate", fr, "-loop", "1", "-t", seconds(o.IntroDuration), "-i", o.Intro,
	}
	if o.BaseOffset != 0 {
		args = append(args, "-itsoffset", timing.FormatSigned(o.BaseOffset))
	}
	args = append(args, "-i", o.Base,
		"-itsoffset", timing.FormatSigned(o.PipOffset), "-i", o.Pip,
		"-itsoffset", timing.FormatSigned(o.AudioOffset), "-i", o.Audio,
		// Пустой звук для сегментов-заставок.
		"-f", "lavfi", "-t", "0.1", "-i", "anullsrc")

	w, h := o.BaseInfo.Width, o.BaseInfo.Height
	parts := []string{
		effects.FitStill("0:v", w, h, "intro"),
		o.Layout.Filter("2:v", "1:v", o.PipInfo.Width, o.PipInfo.Height, "main"),
	}
	segments := []effects.Segment{{Video: "intro", Audio: "4:a"}, {Video: "main", Audio: "3:a"}}
	if o.Outro != "" {
		args = append(args, "-framerate", fr, "-loop", "1", "-t", seconds(o.OutroDuration), "-i", o.Outro)
		parts = append(parts, effects.FitStill("5:v", w, h, "outro"))
		segments = append(segments, effects.Segment{Video: "outro", Audio: "4:a"})
	}
	parts = append(parts, effects.Concat(segments, "v", "a"))

	return append(args, "-filter_complex", effects.Chain(parts...),
		"-r", fr, "-map", "[v]", "-map", "[a]", o.Output)
}

// SlideshowEncode encodes a concat playlist of stills at a low fixed rate.
type SlideshowEncode struct {
	Playlist string
	Output   string
	// Limit is the whole-second duration cap.
	Limit int64
	FPS   int
}

func (s SlideshowEncode) Args() []string {
	fps := s.FPS
	if fps <= 0 {
		fps = 4
	}
	return []string{"-y", "-safe", "0", "-f", "concat", "-i", s.Playlist,
		"-t", strconv.FormatInt(s.Limit, 10),
		"-c:v", "libx264", "-vf", fmt.Sprintf("format=yuv420p,fps=%d", fps),
		"-fflags", "+genpts", "-movflags", "+faststart", s.Output}
}

// Stages lists every stage name, for command-line selection.
var Stages = []Stage{
	StageSlideshow, StageSlidesAudio, StageScreenAudio, StageWebcamAudio,
	StageScreencastAudio, StageOverlay, StageOverlayTitle, StageTitle,
}
