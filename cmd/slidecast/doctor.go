package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/system"
)

// filters used by the production stages.
var requiredFilters = []string{"scale2ref", "overlay", "concat", "anullsrc", "pad"}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the media toolchain is installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			ffmpeg := cfg.String(config.KeyFFmpegBinary)
			statuses := system.CheckBinaries([]system.Requirement{
				{Name: "ffmpeg", Command: ffmpeg, Description: "capture and production"},
				{Name: "ffprobe", Command: cfg.String(config.KeyFFprobeBinary), Description: "stream size and frame rate"},
			})

			rows := make([][]string, 0, len(statuses)+len(requiredFilters))
			missing := 0
			for _, st := range statuses {
				state := "ok"
				if !st.Available {
					state = "missing"
					if !st.Optional {
						missing++
					}
				}
				rows = append(rows, []string{st.Name, state, st.Description, st.Detail})
			}
			if statuses[0].Available {
				for _, f := range requiredFilters {
					state := "ok"
					if !system.CheckFilterSupport(cmd.Context(), ffmpeg, f) {
						state = "missing"
						missing++
					}
					rows = append(rows, []string{"filter " + f, state, "ffmpeg filter", ""})
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Dependency", "Status", "Used for", "Detail"}, rows, nil))
			if missing > 0 {
				return fmt.Errorf("отсутствует зависимостей: %d", missing)
			}
			fmt.Fprintln(out, "[+++] Всё готово к записи")
			return nil
		},
	}
}
