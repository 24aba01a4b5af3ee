package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func storeWith(t *testing.T, content string) *ConfigStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "esload.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	store, err := NewConfigStore(path)
	require.NoError(t, err)
	return store
}

// mockConfigStore is a map-backed driven.ConfigStore.
type mockConfigStore map[string]any

var _ driven.ConfigStore = mockConfigStore(nil)

func (m mockConfigStore) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mockConfigStore) GetString(key string) string {
	s, _ := m[key].(string)
	return s
}

func (m mockConfigStore) GetInt(key string) int {
	n, _ := m[key].(int)
	return n
}

func (m mockConfigStore) GetFloat(key string) float64 {
	f, _ := m[key].(float64)
	return f
}

func (m mockConfigStore) GetBool(key string) bool {
	b, _ := m[key].(bool)
	return b
}

func (m mockConfigStore) GetDuration(key string) (time.Duration, error) {
	d, _ := m[key].(time.Duration)
	return d, nil
}

func (m mockConfigStore) GetStringSlice(key string) []string {
	l, _ := m[key].([]string)
	return l
}

func (m mockConfigStore) Path() string {
	return "memory"
}

func TestFromStore_AnyConfigStore(t *testing.T) {
	store := mockConfigStore{
		"system":                  "orders-sys",
		"batch.count":             50,
		"batch.time":              2 * time.Second,
		"bulk_rate_per_second":    1.5,
		"elasticsearch.addresses": []string{"http://es:9200"},
		"archive.backend":         ArchiveMemory,
	}

	cfg, err := FromStore(store, env(map[string]string{"ESLOAD_BATCH_COUNT": "75"}))
	require.NoError(t, err)

	assert.Equal(t, "orders-sys", cfg.Settings.System)
	assert.Equal(t, 75, cfg.Settings.Batch.Count)
	assert.Equal(t, 2*time.Second, cfg.Settings.Batch.Time)
	assert.InDelta(t, 1.5, cfg.Settings.BulkRatePerSecond, 0.0001)
	assert.Equal(t, []string{"http://es:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, ArchiveMemory, cfg.Archive.Backend)
}

func TestFromStore_Defaults(t *testing.T) {
	cfg, err := FromStore(storeWith(t, ""), env(nil))
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultSettings(), cfg.Settings)
	assert.Equal(t, ArchiveSQLite, cfg.Archive.Backend)
	assert.True(t, cfg.Archive.S3.UseSSL)
	assert.Equal(t, SourceFile, cfg.Source.Kind)
	assert.Equal(t, "-", cfg.Source.Path)
}

func TestFromStore_File(t *testing.T) {
	cfg, err := FromStore(storeWith(t, `
system = "orders-sys"
require_type = true
log_summary = true
bulk_rate_per_second = 2.5

[batch]
count = 200
bytes = 1048576
time = "1s"

[query]
scroll = "1m"
max = 5000
return = "source"

[elasticsearch]
addresses = ["http://es-1:9200", "http://es-2:9200"]
username = "loader"

[archive]
backend = "s3"

[archive.s3]
endpoint = "s3.amazonaws.com"
bucket = "leo-bus"

[source]
kind = "postgres"

[source.postgres]
dsn = "postgres://localhost/events"
poll_interval = "2s"
follow = true
`), env(nil))
	require.NoError(t, err)

	s := cfg.Settings
	assert.Equal(t, "orders-sys", s.System)
	assert.True(t, s.RequireType)
	assert.True(t, s.LogSummary)
	assert.InDelta(t, 2.5, s.BulkRatePerSecond, 0.001)
	assert.Equal(t, domain.BatchLimits{Count: 200, Bytes: 1048576, Time: time.Second}, s.Batch)
	assert.Equal(t, domain.QuerySettings{Scroll: "1m", Max: 5000, Return: domain.ReturnSource}, s.Query)

	assert.Equal(t, []string{"http://es-1:9200", "http://es-2:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, "loader", cfg.Elasticsearch.Username)
	assert.Equal(t, "leo-bus", cfg.Archive.S3.Bucket)
	assert.Equal(t, 2*time.Second, cfg.Source.Postgres.PollInterval)
	assert.True(t, cfg.Source.Postgres.Follow)
}

func TestFromStore_EnvOverrides(t *testing.T) {
	cfg, err := FromStore(storeWith(t, `
system = "from-file"
[batch]
count = 10
`), env(map[string]string{
		"ESLOAD_SYSTEM":                  "from-env",
		"ESLOAD_BATCH_COUNT":             "99",
		"ESLOAD_BATCH_TIME":              "50ms",
		"ESLOAD_ELASTICSEARCH_ADDRESSES": "http://a:9200,http://b:9200",
		"ESLOAD_ARCHIVE_BACKEND":         "memory",
	}))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Settings.System)
	assert.Equal(t, 99, cfg.Settings.Batch.Count)
	assert.Equal(t, 50*time.Millisecond, cfg.Settings.Batch.Time)
	assert.Equal(t, []string{"http://a:9200", "http://b:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, ArchiveMemory, cfg.Archive.Backend)
}

func TestFromStore_DryRunVariable(t *testing.T) {
	cfg, err := FromStore(storeWith(t, ""), env(map[string]string{"dryrun": "true"}))
	require.NoError(t, err)
	assert.True(t, cfg.Settings.DryRun)

	cfg, err = FromStore(storeWith(t, ""), env(map[string]string{"dryrun": "false"}))
	require.NoError(t, err)
	assert.False(t, cfg.Settings.DryRun)
}

func TestFromStore_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{"bad env int", "", map[string]string{"ESLOAD_BATCH_COUNT": "many"}},
		{"bad duration", "[batch]\ntime = \"soon\"", nil},
		{"negative batch", "[batch]\ncount = -1", nil},
		{"unknown return", "[query]\nreturn = \"everything\"", nil},
		{"unknown archive", "[archive]\nbackend = \"tape\"", nil},
		{"s3 without bucket", "[archive]\nbackend = \"s3\"", nil},
		{"unknown source", "[source]\nkind = \"ftp\"", nil},
		{"kafka without brokers", "[source]\nkind = \"kafka\"", nil},
		{"postgres without dsn", "[source]\nkind = \"postgres\"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromStore(storeWith(t, tt.content), env(tt.env))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "esload.yaml")
	require.NoError(t, os.WriteFile(path, []byte("system: yaml-sys\narchive:\n  backend: none\n"), 0600))
	t.Setenv("ESLOAD_LOG_JSON", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml-sys", cfg.Settings.System)
	assert.Equal(t, ArchiveNone, cfg.Archive.Backend)
	assert.True(t, cfg.LogJSON)
}
