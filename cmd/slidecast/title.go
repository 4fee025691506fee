package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/engine"
	"github.com/ivlev/slidecast/internal/renderer"
)

func newTitleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "title [project]",
		Short: "Export the first slide as the title frame",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := ctx.loadProject(args)
			if err != nil {
				return err
			}
			if !proj.presentation() {
				return fmt.Errorf("у проекта %s нет слайдов", proj.Name)
			}
			slides, err := proj.openSlides()
			if err != nil {
				return err
			}
			defer slides.Close()

			cfg := proj.Config
			rend := &renderer.Renderer{
				DPI:          cfg.Int(config.KeySlidesDPI),
				HeightFactor: cfg.Float(config.KeySlidesHeightFactor),
			}
			if err := engine.ExportTitle(rend, slides, cfg, proj.Files.Title); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+++] Титульный кадр: %s\n", proj.Files.Title)
			return nil
		},
	}
}
