package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ivlev/slidecast/internal/capture"
	"github.com/ivlev/slidecast/internal/director"
	"github.com/ivlev/slidecast/internal/markers"
	"github.com/ivlev/slidecast/internal/timing"
)

func newMarkersCommand(ctx *commandContext) *cobra.Command {
	var scenarioPath string
	var startSlide int

	cmd := &cobra.Command{
		Use:   "markers [project]",
		Short: "Show the marker log and stream offsets of a recording",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := ctx.loadProject(args)
			if err != nil {
				return err
			}
			tl, err := markers.ReadFile(proj.Files.Timing)
			if err != nil {
				return err
			}
			titles, _ := markers.LoadTitles(proj.notesFile())
			out := cmd.OutOrStdout()
			printTimeline(out, tl, titles)

			offsets, err := capture.ReadOffsetsFile(proj.Files.Log)
			if err != nil {
				return err
			}
			printOffsets(out, offsets)

			if scenarioPath == "" {
				return nil
			}
			if startSlide <= 0 {
				startSlide = 1
			}
			count := maxSlide(tl)
			if slides, err := proj.openSlides(); err == nil && slides != nil {
				count = slides.PageCount()
				slides.Close()
			}
			d := director.NewDirector(filepath.Join(proj.Dir, "slide-%03d.png"), count)
			scenario, err := d.Plan(tl, startSlide)
			if err != nil {
				return err
			}
			if err := director.WriteScenario(scenario, scenarioPath); err != nil {
				return err
			}
			fmt.Fprintf(out, "[*] Сценарий сохранён: %s\n", scenarioPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Also write the slide scenario as YAML to this file")
	cmd.Flags().IntVar(&startSlide, "start-slide", 0, "Slide shown when the recording started")
	return cmd
}

func printTimeline(w io.Writer, tl *markers.Timeline, titles map[int]string) {
	fmt.Fprintf(w, "[*] Начало: %s\n", tl.Reference.Format(markers.HeaderLayout))
	rows := make([][]string, 0, len(tl.Markers))
	for i, m := range tl.Markers {
		title := ""
		if n, ok := m.Label.Slide(); ok {
			title = titles[n]
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), timing.Format(m.Offset), string(m.Label), title})
	}
	fmt.Fprintln(w, renderTable([]string{"#", "Offset", "Label", "Title"}, rows, []columnAlignment{alignRight, alignRight, alignLeft, alignLeft}))
	if !tl.Ended() {
		fmt.Fprintln(w, "[!] Запись не завершена маркером END")
	}
}

func printOffsets(w io.Writer, o capture.Offsets) {
	rows := [][]string{{"audio", timing.Format(o.Audio)}}
	if o.HasWebcam {
		rows = append(rows, []string{"webcam", timing.Format(o.Webcam)})
	}
	if o.HasScreencast {
		rows = append(rows, []string{"screencast", timing.Format(o.Screencast)})
	}
	fmt.Fprintln(w, renderTable([]string{"Stream", "Offset"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func maxSlide(tl *markers.Timeline) int {
	n := 1
	for _, m := range tl.Markers {
		if s, ok := m.Label.Slide(); ok && s > n {
			n = s
		}
	}
	return n
}
