package domain

import "fmt"

// QuerySettings holds defaults applied to queries run through the engine.
type QuerySettings struct {
	// Scroll is the cursor keep-alive. Empty disables pagination.
	Scroll string

	// Max caps accumulated hits across every page.
	Max int

	// Return selects the built-in projection.
	Return ReturnMode
}

// Settings holds the behaviour options of one pipeline instance.
// Connection details for collaborators live with their adapters.
type Settings struct {
	// System identifies the upstream system in archive keys.
	System string

	// RequireType enforces a type on every record.
	RequireType bool

	// StartTotal seeds the running item counter used in summaries.
	StartTotal int

	// DontSaveResults skips archival and result enrichment.
	DontSaveResults bool

	// Debug enables debug logging.
	Debug bool

	// LogSummary logs item and byte counts for every batch.
	LogSummary bool

	// DryRun builds bulk bodies without sending or archiving them.
	DryRun bool

	// BulkRatePerSecond limits bulk requests. Zero means unlimited.
	BulkRatePerSecond float64

	// Batch bounds every batch.
	Batch BatchLimits

	// Query holds query defaults.
	Query QuerySettings
}

// DefaultSettings returns settings with the production defaults.
func DefaultSettings() Settings {
	return Settings{
		Batch: BatchLimits{
			Count: DefaultBatchCount,
			Bytes: DefaultBatchBytes,
			Time:  DefaultBatchTime,
		},
		Query: QuerySettings{
			Max:    DefaultQueryMax,
			Return: ReturnFull,
		},
	}
}

// Validate checks settings for values no component can work with.
func (s Settings) Validate() error {
	if s.Batch.Count < 0 || s.Batch.Bytes < 0 || s.Batch.Time < 0 {
		return fmt.Errorf("%w: batch limits must not be negative", ErrInvalidInput)
	}
	if s.StartTotal < 0 {
		return fmt.Errorf("%w: start_total must not be negative", ErrInvalidInput)
	}
	if s.BulkRatePerSecond < 0 {
		return fmt.Errorf("%w: bulk_rate_per_second must not be negative", ErrInvalidInput)
	}
	if s.Query.Max < 0 {
		return fmt.Errorf("%w: query max must not be negative", ErrInvalidInput)
	}
	if s.Query.Return != "" && !s.Query.Return.IsValid() {
		return fmt.Errorf("%w: unknown return mode %q", ErrInvalidInput, s.Query.Return)
	}
	return nil
}
