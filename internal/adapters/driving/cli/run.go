package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/esload/internal/adapters/driven/config/file"
	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/logger"
)

var (
	runInput string
	runJSON  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream events into Elasticsearch",
	Long: `Reads events from the configured source, converts each record to
bulk actions and sends them in batches. Runs until the source is
exhausted or the process is interrupted; buffered events are flushed
before exit.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "read NDJSON events from a file (- for stdin)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print every batch result as JSON")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	if pipeline == nil || openSource == nil {
		return errors.New("pipeline not configured")
	}

	srcCfg := cfg.Source
	if runInput != "" {
		srcCfg.Kind = file.SourceFile
		srcCfg.Path = runInput
	}

	ctx := cmd.Context()
	src, err := openSource(ctx, srcCfg)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	if cfg.Settings.DryRun {
		logger.Info("Dry run: bulk requests are printed, not sent")
	}

	stats, err := pipeline.Run(ctx, src, func(r domain.BulkResult) {
		printResult(cmd, r)
	})
	if stats != nil {
		cmd.Printf("Processed %d events (%d rejected) in %d batches, %d items, %d failed batches\n",
			stats.Events, stats.Rejected, stats.Batches, stats.Items, stats.FailedBatches)
	}
	if err != nil && !isStop(err) {
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}

// resultView is the printable form of a batch result.
type resultView struct {
	SystemID string                   `json:"system"`
	EventID  string                   `json:"event,omitempty"`
	Items    int                      `json:"items"`
	Bytes    int                      `json:"bytes"`
	Location string                   `json:"location,omitempty"`
	Body     string                   `json:"body,omitempty"`
	Failed   []domain.BulkItemFailure `json:"failed,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

func printResult(cmd *cobra.Command, r domain.BulkResult) {
	view := resultView{
		SystemID: r.SystemID,
		EventID:  r.EventID,
		Items:    r.Items,
		Bytes:    r.Bytes,
		Location: r.Location,
		Body:     r.Body,
		Failed:   r.Failed,
	}
	if err := r.Error(); err != nil {
		view.Error = err.Error()
	}

	if runJSON {
		data, err := json.Marshal(view)
		if err != nil {
			logger.Warn("Failed to encode result: %v", err)
			return
		}
		cmd.Println(string(data))
		return
	}

	if r.Body != "" {
		cmd.Print(r.Body)
	}
	if view.Error != "" && r.Items == 0 {
		cmd.Printf("Rejected event %s: %s\n", r.EventID, view.Error)
	}
}
