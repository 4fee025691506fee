package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/slidecast/internal/capture"
	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/engine"
)

func newReproduceCommand(ctx *commandContext) *cobra.Command {
	var startSlide int
	var only []string

	cmd := &cobra.Command{
		Use:   "reproduce [project]",
		Short: "Re-run the production pipeline from the files of a past recording",
		Long: `Reads the marker file and the stream offsets stored in <project>-ffmpeg.log,
infers the recorded sources from the capture files present and runs the
production pipeline again. Missing offsets count as zero.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := ctx.loadProject(args)
			if err != nil {
				return err
			}
			stages, err := parseStages(only)
			if err != nil {
				return err
			}
			if startSlide <= 0 {
				startSlide = proj.Config.Int(config.KeySlidesStart)
			}
			return runReproduce(cmd, proj, startSlide, stages)
		},
	}
	cmd.Flags().IntVar(&startSlide, "start-slide", 0, "Slide shown when the recording started (default slides.start)")
	addStageFlag(cmd, &only)
	return cmd
}

// reproduceInputs rebuilds pipeline inputs from the files on disk.
func reproduceInputs(files capture.Files, startSlide int) (engine.Inputs, error) {
	offsets, err := capture.ReadOffsetsFile(files.Log)
	if err != nil {
		return engine.Inputs{}, err
	}
	return engine.Inputs{
		Files:      files,
		Offsets:    offsets,
		Webcam:     fileExists(files.Webcam),
		Region:     fileExists(files.Screencast),
		Animated:   fileExists(files.Screen),
		StartSlide: startSlide,
	}, nil
}

func runReproduce(cmd *cobra.Command, proj *project, startSlide int, only []engine.Stage) error {
	out := cmd.OutOrStdout()
	log := commandLogger("reproduce", proj)

	in, err := reproduceInputs(proj.Files, startSlide)
	if err != nil {
		return err
	}
	for _, l := range in.Offsets.Lines() {
		fmt.Fprintf(out, "[*] %s\n", l)
	}

	slides, err := proj.openSlides()
	if err != nil {
		return err
	}
	if slides != nil {
		defer slides.Close()
	}

	runLog, err := os.OpenFile(proj.Files.Log, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer runLog.Close()
	fmt.Fprintln(runLog, capture.ReproduceSeparator)

	p := newPipeline(proj, slides, runLog, newPrompter(bufio.NewReader(cmd.InOrStdin()), out), only, log)
	rep, err := p.Run(cmd.Context(), in)
	if rep != nil {
		printReport(out, rep)
	}
	return err
}
