// Package cmd is the noteface command line.
package cmd

import (
	"fmt"

	"noteface-service/config"
	"noteface-service/logging"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "noteface",
	Short: "Noteface: LaTeX notes build trigger and download analytics",
	Long: `Noteface queues compilation jobs for pushed LaTeX sources, serves the
compiled PDFs and aggregates download statistics.

Commands:
  serve     Start the HTTP server
  stats     Print download statistics
  dispatch  Replay a stored push delivery`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		logCfg := logging.Config{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		}
		if verbose {
			logCfg.Level = "debug"
		}
		logging.Init(logCfg)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is ./%s)", config.DefaultPath))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
