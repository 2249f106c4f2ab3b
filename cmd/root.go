package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"jarvis/internal/config"
	"jarvis/internal/logging"
)

func Execute() error {
	return newRootCmd().Execute()
}

type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "jarvis",
		Short:         "Realtime voice assistant backed by Gemini Live",
		Long:          "jarvis streams your microphone to a realtime voice model, plays its spoken replies, and carries out the browser actions it asks for.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/jarvis/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(flags),
		newDesktopCmd(flags),
		newToolsCmd(),
		newConfigCmd(flags),
	)
	return rootCmd
}

// load resolves configuration and a logger that writes to the command's
// stderr.
func (f *globalFlags) load(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format), nil
}
