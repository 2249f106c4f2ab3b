package cmd

import (
	"github.com/spf13/cobra"

	"jarvis/internal/desktop"
)

func newDesktopCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "desktop",
		Short: "Open the desktop interface",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load(cmd)
			if err != nil {
				return err
			}
			return desktop.Run(cfg, logger)
		},
	}
}
