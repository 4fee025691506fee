package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ivlev/slidecast/internal/capture"
	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/engine"
	"github.com/ivlev/slidecast/internal/markers"
	"github.com/ivlev/slidecast/internal/session"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var startSlide int
	var only []string

	cmd := &cobra.Command{
		Use:   "record [project]",
		Short: "Record a talk and log slide markers from the terminal",
		Long: `Launches the encoder, waits until every stream has started and then reads
one command per line from stdin: n (next slide), p (previous slide), x (special
marker), space or pause (toggle pause), q (stop). After stopping, the
production pipeline runs.`,
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
			return runRecord(cmd, proj, startSlide, stages)
		},
	}
	cmd.Flags().IntVar(&startSlide, "start-slide", 0, "Slide shown when recording starts (default slides.start)")
	addStageFlag(cmd, &only)
	return cmd
}

func runRecord(cmd *cobra.Command, proj *project, startSlide int, only []engine.Stage) error {
	cfg := proj.Config
	log := commandLogger("record", proj)
	out := cmd.OutOrStdout()

	sources, err := sourcesFrom(cfg)
	if err != nil {
		return err
	}
	titles, err := markers.LoadTitles(proj.notesFile())
	if err != nil {
		log.WithError(err).Warn("notes not loaded")
	}
	slides, err := proj.openSlides()
	if err != nil {
		return err
	}
	total := 0
	if slides != nil {
		defer slides.Close()
		total = slides.PageCount()
	}
	if startSlide <= 0 {
		startSlide = cfg.Int(config.KeySlidesStart)
	}

	sess := session.New(session.Options{
		Dir:        proj.Dir,
		Project:    proj.Name,
		Sources:    sources,
		Templates:  capture.TemplatesFrom(cfg),
		Binary:     cfg.String(config.KeyFFmpegBinary),
		Titles:     titles,
		WriteVTT:   cfg.Bool(config.KeyRecordWriteVTT),
		StartSlide: startSlide,
		Log:        log,
	})
	defer sess.Close()

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(out, "[*] Проект: %s | Источники: %s\n", proj.Name, describeSources(sources))
	if err := sess.Start(sigCtx); err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	d := &driver{
		sess:   sess,
		slide:  sess.Markers().Slide(),
		total:  total,
		titles: titles,
		out:    out,
		tty:    isatty.IsTerminal(os.Stdout.Fd()),
	}
	if err := d.run(sigCtx, in); err != nil {
		return err
	}

	offsets, err := sess.Stop()
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	for _, l := range offsets.Lines() {
		fmt.Fprintf(out, "[*] %s\n", l)
	}

	runLog, err := os.OpenFile(proj.Files.Log, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer runLog.Close()

	p := newPipeline(proj, slides, runLog, newPrompter(in, out), only, sess.Log())
	rep, err := sess.RunPipeline(cmd.Context(), p)
	if rep != nil {
		printReport(out, rep)
	}
	return err
}

func describeSources(s capture.Sources) string {
	parts := []string{"audio"}
	if s.Webcam {
		parts = append(parts, "webcam")
	}
	if s.Region != nil {
		parts = append(parts, "screencast "+s.Region.String())
	}
	if s.Slides != nil {
		parts = append(parts, "slides "+s.Slides.String())
	}
	return strings.Join(parts, ", ")
}

// recorder is the part of a session the terminal driver uses.
type recorder interface {
	RecordMarker(label markers.Label) (markers.Marker, bool, error)
	TogglePause() error
	State() session.State
	Elapsed() time.Duration
}

// driver turns terminal commands into session calls. slide is the slide on
// screen; it moves during a pause too, only the markers wait.
type driver struct {
	sess   recorder
	slide  int
	total  int
	titles map[int]string
	out    io.Writer
	tty    bool

	// unlogged is set while the shown slide is missing from the marker log.
	unlogged bool
}

// readCommands forwards stdin lines until "q", end of input or ctx ends.
func readCommands(ctx context.Context, in *bufio.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := in.ReadString('\n')
			if line != "" || err == nil {
				cmd := strings.TrimRight(line, "\r\n")
				select {
				case lines <- cmd:
				case <-ctx.Done():
					return
				}
				if strings.TrimSpace(cmd) == "q" {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return lines
}

// run returns nil on "q" or end of input and ctx.Err() on cancellation, in
// which case the deferred Close terminates the encoder.
func (d *driver) run(ctx context.Context, in *bufio.Reader) error {
	lines := readCommands(ctx, in)
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	d.render()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			if d.tty {
				d.render()
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if done := d.handle(line); done {
				return nil
			}
			d.render()
		}
	}
}

// show moves to slide n and logs it unless recording is paused.
func (d *driver) show(n int) error {
	d.slide = n
	_, logged, err := d.sess.RecordMarker(markers.SlideLabel(n))
	d.unlogged = err == nil && !logged
	return err
}

func (d *driver) handle(line string) bool {
	cmd := strings.TrimSpace(line)
	if cmd == "" && line != "" {
		cmd = " "
	}
	var err error
	switch cmd {
	case "q":
		return true
	case "n":
		if next := d.slide + 1; d.total == 0 || next <= d.total {
			err = d.show(next)
		}
	case "p":
		if prev := d.slide - 1; prev >= 1 {
			err = d.show(prev)
		}
	case "x":
		_, _, err = d.sess.RecordMarker(markers.Special)
	case " ", "pause":
		err = d.sess.TogglePause()
		// Слайд, сменённый во время паузы, записывается в момент продолжения.
		if err == nil && d.unlogged && d.sess.State() == session.Recording {
			err = d.show(d.slide)
		}
	default:
		fmt.Fprintf(d.out, "\n[!] Неизвестная команда %q\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(d.out, "\n[!] %v\n", err)
	}
	return false
}

func (d *driver) render() {
	line := statusLine(d.sess.State(), d.sess.Elapsed(), d.slide, d.total, d.titles[d.slide])
	if d.tty {
		fmt.Fprint(d.out, "\r\033[K"+line)
		return
	}
	fmt.Fprintln(d.out, line)
}
