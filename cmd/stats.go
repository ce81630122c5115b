package cmd

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats [document]",
	Short: "Print download statistics as JSON",
	Long: `Aggregate the download logs and print the result as JSON.

Without arguments every registered document is aggregated.

Example:
  noteface stats syllabus`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	agg, err := newAggregator(cfg, store)
	if err != nil {
		return err
	}

	var result any
	if len(args) == 1 {
		result, err = agg.StatsFor(cmd.Context(), args[0])
	} else {
		result, err = agg.AllStats(cmd.Context())
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
