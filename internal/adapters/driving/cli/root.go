// Package cli implements the esload command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/esload/internal/adapters/driven/config/file"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
	"github.com/custodia-labs/esload/internal/core/ports/driving"
	"github.com/custodia-labs/esload/internal/logger"
)

// skipWiring marks commands that run without configuration.
const skipWiring = "skip-wiring"

var (
	version = "dev"

	configPath string
	verbose    bool
	jsonLogs   bool
)

// Services the commands run against. wire builds them from the config
// file unless they were set beforehand.
var (
	cfg           *file.Config
	pipeline      driving.Pipeline
	queryService  driving.QueryService
	archiveReader driven.ArchiveReader
	archiveLister driven.ArchiveLister
	openSource    func(ctx context.Context, src file.SourceConfig) (driven.EventSource, error)
	closers       []func() error
)

var rootCmd = &cobra.Command{
	Use:   "esload",
	Short: "Stream change events into Elasticsearch",
	Long: `esload turns upstream change events into Elasticsearch bulk requests.
Events are batched by count, size and age, sent with the bulk API and
every request/response pair is archived for audit and replay.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.esload/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "log-json", false, "log as JSON")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command. Cancelling ctx stops a running pipeline
// after in-flight batches complete.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.AutoFormat()
	if jsonLogs {
		logger.SetJSON(true)
	}
	if verbose {
		logger.SetVerbose(true)
	}
	if cmd.Annotations[skipWiring] == "true" || cfg != nil {
		return nil
	}

	loaded, err := file.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if loaded.LogJSON {
		logger.SetJSON(true)
	}
	if loaded.Settings.Debug {
		logger.SetVerbose(true)
	}
	return wire(cmd.Context(), loaded)
}

func closeServices() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn("Close failed: %v", err)
		}
	}
	closers = nil
}

// isStop reports whether err only signals a requested shutdown.
func isStop(err error) bool {
	return errors.Is(err, context.Canceled)
}
