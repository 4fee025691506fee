package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/slidecast/internal/capture"
	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/logging"
	"github.com/ivlev/slidecast/internal/session"
	"github.com/ivlev/slidecast/internal/source"
	"github.com/ivlev/slidecast/internal/system"
)

type commandContext struct {
	configFile string
	dir        string
	overrides  []string
	logLevel   string
}

// project is a resolved project name with its configuration.
type project struct {
	Name string
	Dir  string
	// Slides is the presentation PDF, empty for a screencast project.
	Slides string
	Config *config.Config
	Files  capture.Files
}

func (p *project) presentation() bool { return p.Slides != "" }

// openSlides opens the slide source, or returns nil for screencasts.
func (p *project) openSlides() (source.Source, error) {
	if !p.presentation() {
		return nil, nil
	}
	return source.Open(p.Slides)
}

func (p *project) notesFile() string {
	if f := p.Config.String(config.KeyNotesFile); f != "" {
		if filepath.IsAbs(f) {
			return f
		}
		return filepath.Join(p.Dir, f)
	}
	return filepath.Join(p.Dir, p.Name+".notes")
}

// loadConfig reads the user file and the --config file, without a project.
func (c *commandContext) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.UserFile(), c.configFile)
	if err != nil {
		return nil, err
	}
	return c.finish(cfg)
}

func (c *commandContext) finish(cfg *config.Config) (*config.Config, error) {
	if err := cfg.ApplyOverrides(c.overrides); err != nil {
		return nil, err
	}
	if c.logLevel == "" {
		logging.Setup(cfg.String(config.KeyLogLevel), os.Stderr)
	}
	if err := cfg.Validate(); err != nil {
		logging.NewLogger("config").WithError(err).Warn("ignoring malformed values")
	}
	return cfg, nil
}

// loadProject resolves the project argument. A name ending in .pdf, or one
// with a matching PDF next to it, is a presentation. Without an argument the
// newest PDF in the project directory is used.
func (c *commandContext) loadProject(args []string) (*project, error) {
	dir := c.dir
	var name, slides string
	switch {
	case len(args) == 0:
		latest, err := system.FindLatestPDF(dir)
		if err != nil {
			return nil, fmt.Errorf("%w. Укажите проект явно", err)
		}
		fmt.Printf("[*] Выбран файл: %s\n", latest)
		slides = latest
		name = strings.TrimSuffix(filepath.Base(latest), filepath.Ext(latest))
	case strings.EqualFold(filepath.Ext(args[0]), ".pdf"):
		slides = args[0]
		if !filepath.IsAbs(slides) && filepath.Dir(slides) == "." {
			slides = filepath.Join(dir, slides)
		}
		dir = filepath.Dir(slides)
		name = strings.TrimSuffix(filepath.Base(slides), filepath.Ext(slides))
	default:
		name = args[0]
		if pdf := filepath.Join(dir, name+".pdf"); fileExists(pdf) {
			slides = pdf
		}
	}

	cfg, err := config.Load(config.UserFile(), c.configFile, config.ProjectFile(dir, name))
	if err != nil {
		return nil, err
	}
	if cfg, err = c.finish(cfg); err != nil {
		return nil, err
	}
	return &project{
		Name:   name,
		Dir:    dir,
		Slides: slides,
		Config: cfg,
		Files:  capture.FilesFor(session.Basename(dir, name)),
	}, nil
}

// sourcesFrom reads the capture toggles and geometries.
func sourcesFrom(cfg *config.Config) (capture.Sources, error) {
	src := capture.Sources{Webcam: cfg.Bool(config.KeyRecordWebcam)}
	if cfg.Bool(config.KeyRecordRegion) {
		g, err := capture.ParseGeometry(cfg.String(config.KeyRecordRegionGeometry))
		if err != nil {
			return src, &capture.ConfigurationError{Key: config.KeyRecordRegionGeometry, Reason: err.Error()}
		}
		g = capture.EvenRegion(g)
		src.Region = &g
	}
	if cfg.Bool(config.KeyRecordAnimated) {
		g, err := capture.ParseGeometry(cfg.String(config.KeyRecordSlidesGeometry))
		if err != nil {
			return src, &capture.ConfigurationError{Key: config.KeyRecordSlidesGeometry, Reason: err.Error()}
		}
		g = capture.EvenSlides(g)
		src.Slides = &g
	}
	return src, nil
}

func commandLogger(name string, proj *project) *logrus.Entry {
	return logging.NewLogger(name).WithField("project", proj.Name)
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
