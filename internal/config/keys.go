package config

// Capture source toggles and geometry.
const (
	KeyRecordWebcam         = "record.webcam"
	KeyRecordRegion         = "record.region"
	KeyRecordRegionGeometry = "record.region_geometry"
	KeyRecordAnimated       = "record.animated_slides"
	KeyRecordSlidesGeometry = "record.slides_geometry"
	KeyRecordWriteVTT       = "record.write_vtt"
)

// Encoder templates.
const (
	KeyFFmpegBinary       = "ffmpeg.binary"
	KeyFFprobeBinary      = "ffmpeg.probe"
	KeyFFmpegSourceAudio  = "ffmpeg.source.audio"
	KeyFFmpegOutputAudio  = "ffmpeg.output.audio"
	KeyFFmpegSourceWebcam = "ffmpeg.source.webcam"
	KeyFFmpegOutputWebcam = "ffmpeg.output.webcam"
	KeyFFmpegSourceScreen = "ffmpeg.source.screen"
	KeyFFmpegOutputScreen = "ffmpeg.output.screen"
)

// Production pipeline switches. An unset switch means "ask" in interactive runs.
const (
	KeyProduceEverything      = "produce.everything"
	KeyProduceWebcamAudio     = "produce.webcam_audio"
	KeyProduceScreencastAudio = "produce.screencast_audio"
	KeyProduceOverlay         = "produce.screencast_overlay"
	KeyProduceOverlayTitle    = "produce.screencast_overlay_title"
	KeyProduceSlideshow       = "produce.slideshow"
	KeyProduceSlidesAudio     = "produce.slides_audio"
	KeyProduceTitle           = "produce.title"
)

// Production parameters.
const (
	KeyCompressAudio   = "produce.compress_audio"
	KeyAudioCodec      = "produce.audio_codec"
	KeyOverlayFraction = "produce.overlay.fraction"
	KeyOverlayX        = "produce.overlay.x"
	KeyOverlayY        = "produce.overlay.y"
	KeyIntroDuration   = "produce.intro.duration"
	KeyOutroDuration   = "produce.outro.duration"
	KeyOutroImage      = "produce.outro.image"
	KeyCustomGeometry  = "produce.custom_geometry"
	KeySlideshowFPS    = "produce.slideshow_fps"
)

// Slides, title frame, notes and logging.
const (
	KeySlidesDPI           = "slides.dpi"
	KeySlidesHeightFactor  = "slides.height_factor"
	KeySlidesDisplayHeight = "slides.display_height"
	KeySlidesStart         = "slides.start"
	KeyTitleGeometry       = "title.geometry"
	KeyTitleQRURL          = "title.qr_url"
	KeyNotesFile           = "notes.file"
	KeyLogLevel            = "log.level"
)

var defaults = map[string]string{
	KeyRecordWebcam:         "false",
	KeyRecordRegion:         "false",
	KeyRecordRegionGeometry: "",
	KeyRecordAnimated:       "false",
	KeyRecordSlidesGeometry: "",
	KeyRecordWriteVTT:       "false",

	KeyFFmpegBinary:  "ffmpeg",
	KeyFFprobeBinary: "ffprobe",

	KeyCompressAudio:   "true",
	KeyAudioCodec:      "aac",
	KeyOverlayFraction: "6",
	KeyOverlayX:        "10",
	KeyOverlayY:        "10",
	KeyIntroDuration:   "3",
	KeyOutroDuration:   "3",
	KeyOutroImage:      "",
	KeyCustomGeometry:  "",
	KeySlideshowFPS:    "4",

	KeySlidesDPI:           "300",
	KeySlidesHeightFactor:  "2.0",
	KeySlidesDisplayHeight: "1080",
	KeySlidesStart:         "1",
	KeyTitleGeometry:       "960x540",
	KeyTitleQRURL:          "",
	KeyLogLevel:            "info",
}

// Default returns the documented default for key and whether one exists.
func Default(key string) (string, bool) {
	v, ok := defaults[key]
	return v, ok
}
