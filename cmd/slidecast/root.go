package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/slidecast/internal/logging"
	"github.com/ivlev/slidecast/internal/system"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "slidecast",
		Short:         "Record talks with slide markers and produce synchronized videos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(ctx.logLevel, os.Stderr)
			system.InitResourceLimits(logging.NewLogger("system"))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFile, "config", "c", "", "Extra configuration file, read after the user file")
	flags.StringVarP(&ctx.dir, "dir", "C", ".", "Project directory")
	flags.StringArrayVar(&ctx.overrides, "set", nil, "Override a configuration key (key=value), repeatable")
	flags.StringVar(&ctx.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRecordCommand(ctx))
	rootCmd.AddCommand(newReproduceCommand(ctx))
	rootCmd.AddCommand(newTitleCommand(ctx))
	rootCmd.AddCommand(newMarkersCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))

	return rootCmd
}
