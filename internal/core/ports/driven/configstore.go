package driven

import "time"

// ConfigStore is read access to flattened configuration keys, where
// "batch.count" names the count key of the batch table.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	// GetString returns "" if the key is unset or not a string.
	GetString(key string) string

	// GetInt returns 0 if the key is unset or not numeric.
	GetInt(key string) int

	// GetFloat returns 0 if the key is unset or not numeric.
	GetFloat(key string) float64

	// GetBool returns false if the key is unset or not a boolean.
	GetBool(key string) bool

	// GetDuration parses a duration string or a bare number of
	// milliseconds. An unset key yields zero and no error.
	GetDuration(key string) (time.Duration, error)

	// GetStringSlice accepts an array or a comma-separated string.
	GetStringSlice(key string) []string

	// Path names where the values were read from.
	Path() string
}
