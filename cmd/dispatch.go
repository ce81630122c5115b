package cmd

import (
	"fmt"
	"os"

	"noteface-service/models"
	"noteface-service/pipeline"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	payloadFile string
	pushSecret  string
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Replay a stored push delivery",
	Long: `Queue compilation jobs for a push event read from a JSON file, exactly
as if it had been delivered to the webhook.

Example:
  noteface dispatch --payload push.json`,
	RunE: runDispatch,
}

func init() {
	dispatchCmd.Flags().StringVar(&payloadFile, "payload", "", "push event JSON file")
	dispatchCmd.Flags().StringVar(&pushSecret, "secret", "", "webhook secret (default is the configured secret)")
	_ = dispatchCmd.MarkFlagRequired("payload")
	rootCmd.AddCommand(dispatchCmd)
}

func runDispatch(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(payloadFile)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}
	var event models.PushEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}

	q, err := openQueue(cfg)
	if err != nil {
		return err
	}
	defer q.Close()

	secret := pushSecret
	if secret == "" {
		secret = cfg.GitHub.PostReceiveSecret
	}

	dispatcher := pipeline.NewDispatcher(pipeline.Config{
		Secret:    cfg.GitHub.PostReceiveSecret,
		BranchRef: cfg.GitHub.BranchRef,
		Extension: cfg.GitHub.Extension,
	}, q)

	result, err := dispatcher.Dispatch(cmd.Context(), secret, &event)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d job(s) queued for %s\n", result.Outcome, result.Enqueued, result.Commit)
	return nil
}
