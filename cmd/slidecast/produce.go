package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/engine"
	"github.com/ivlev/slidecast/internal/renderer"
	"github.com/ivlev/slidecast/internal/source"
	"github.com/ivlev/slidecast/internal/video"
)

// addStageFlag registers --only on cmd.
func addStageFlag(cmd *cobra.Command, only *[]string) {
	names := make([]string, len(engine.Stages))
	for i, s := range engine.Stages {
		names[i] = string(s)
	}
	cmd.Flags().StringSliceVar(only, "only", nil, "Run only these stages: "+strings.Join(names, ", "))
}

func parseStages(names []string) ([]engine.Stage, error) {
	var out []engine.Stage
	for _, n := range names {
		n = strings.TrimSpace(n)
		found := false
		for _, s := range engine.Stages {
			if string(s) == n {
				out = append(out, s)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown stage %q", n)
		}
	}
	return out, nil
}

// newPipeline wires the production run of proj. Every ffmpeg command line is
// echoed to runLog.
func newPipeline(proj *project, slides source.Source, runLog io.Writer, prompt engine.Prompter, only []engine.Stage, log *logrus.Entry) *engine.Pipeline {
	cfg := proj.Config
	return &engine.Pipeline{
		Config: cfg,
		Tools: &video.FFmpeg{
			Binary:      cfg.String(config.KeyFFmpegBinary),
			ProbeBinary: cfg.String(config.KeyFFprobeBinary),
			Echo:        runLog,
			Log:         log,
		},
		Slides: slides,
		Renderer: &renderer.Renderer{
			DPI:          cfg.Int(config.KeySlidesDPI),
			HeightFactor: cfg.Float(config.KeySlidesHeightFactor),
			Log:          log,
		},
		Prompt: prompt,
		Log:    log,
		Only:   only,
	}
}

func printReport(w io.Writer, rep *engine.Report) {
	if rep.Decision == engine.Abort {
		fmt.Fprintln(w, "[*] Ничего не создано")
		return
	}
	rows := make([][]string, 0, len(rep.Results))
	for _, r := range rep.Results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		rows = append(rows, []string{string(r.Stage), r.Output, r.Duration.Round(time.Millisecond).String(), status})
	}
	if len(rows) > 0 {
		fmt.Fprintln(w, renderTable([]string{"Stage", "Output", "Took", "Status"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
	}
	if failed := rep.Failed(); len(failed) > 0 {
		fmt.Fprintf(w, "[!] Этапов с ошибкой: %d\n", len(failed))
		return
	}
	fmt.Fprintln(w, "[+++] Все файлы созданы")
}
