package file

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
)

// EnvPrefix prefixes environment overrides. The key "batch.count" is
// overridden by ESLOAD_BATCH_COUNT.
const EnvPrefix = "ESLOAD_"

// Archive backends.
const (
	ArchiveNone   = "none"
	ArchiveMemory = "memory"
	ArchiveSQLite = "sqlite"
	ArchiveS3     = "s3"
)

// Source kinds.
const (
	SourceFile     = "file"
	SourceKafka    = "kafka"
	SourcePostgres = "postgres"
)

// ElasticsearchConfig holds cluster connection details.
type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
	APIKey    string
}

// S3Config holds object store connection details.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// ArchiveConfig selects where bulk pairs are archived.
type ArchiveConfig struct {
	Backend string
	DataDir string
	S3      S3Config
}

// KafkaConfig selects the topics to consume.
type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
}

// PostgresConfig selects the event table to tail.
type PostgresConfig struct {
	DSN          string
	Table        string
	Consumer     string
	BatchSize    int
	PollInterval time.Duration
	Follow       bool
}

// SourceConfig selects where events are read from.
type SourceConfig struct {
	Kind     string
	Path     string
	Kafka    KafkaConfig
	Postgres PostgresConfig
}

// Config is the complete runtime configuration.
type Config struct {
	Settings      domain.Settings
	Elasticsearch ElasticsearchConfig
	Archive       ArchiveConfig
	Source        SourceConfig
	LogJSON       bool
}

// values reads keys from the store with environment overrides.
type values struct {
	store  driven.ConfigStore
	lookup func(string) (string, bool)
	errs   []error
}

func envKey(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (v *values) env(key string) (string, bool) {
	return v.lookup(envKey(key))
}

func (v *values) str(key, def string) string {
	if s, ok := v.env(key); ok {
		return s
	}
	if _, ok := v.store.Get(key); ok {
		return v.store.GetString(key)
	}
	return def
}

func (v *values) integer(key string, def int) int {
	if s, ok := v.env(key); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			v.errs = append(v.errs, fmt.Errorf("%s: %w", envKey(key), err))
			return def
		}
		return n
	}
	if _, ok := v.store.Get(key); ok {
		return v.store.GetInt(key)
	}
	return def
}

func (v *values) float(key string, def float64) float64 {
	if s, ok := v.env(key); ok {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			v.errs = append(v.errs, fmt.Errorf("%s: %w", envKey(key), err))
			return def
		}
		return f
	}
	if _, ok := v.store.Get(key); ok {
		return v.store.GetFloat(key)
	}
	return def
}

func (v *values) boolean(key string, def bool) bool {
	if s, ok := v.env(key); ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			v.errs = append(v.errs, fmt.Errorf("%s: %w", envKey(key), err))
			return def
		}
		return b
	}
	if _, ok := v.store.Get(key); ok {
		return v.store.GetBool(key)
	}
	return def
}

func (v *values) duration(key string, def time.Duration) time.Duration {
	if s, ok := v.env(key); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			v.errs = append(v.errs, fmt.Errorf("%s: %w", envKey(key), err))
			return def
		}
		return d
	}
	if _, ok := v.store.Get(key); !ok {
		return def
	}
	d, err := v.store.GetDuration(key)
	if err != nil {
		v.errs = append(v.errs, err)
		return def
	}
	return d
}

func (v *values) list(key string) []string {
	if s, ok := v.env(key); ok {
		return splitList(s)
	}
	return v.store.GetStringSlice(key)
}

// Load reads the config file at path (see NewConfigStore for the default)
// and applies environment overrides.
func Load(path string) (*Config, error) {
	store, err := NewConfigStore(path)
	if err != nil {
		return nil, err
	}
	return FromStore(store, os.LookupEnv)
}

// FromStore builds a Config from store, consulting lookup for overrides.
// A truthy "dryrun" variable forces a dry run.
func FromStore(store driven.ConfigStore, lookup func(string) (string, bool)) (*Config, error) {
	v := &values{store: store, lookup: lookup}
	def := domain.DefaultSettings()

	cfg := &Config{
		Settings: domain.Settings{
			System:            v.str("system", ""),
			RequireType:       v.boolean("require_type", false),
			StartTotal:        v.integer("start_total", 0),
			DontSaveResults:   v.boolean("dont_save_results", false),
			Debug:             v.boolean("debug", false),
			LogSummary:        v.boolean("log_summary", false),
			DryRun:            v.boolean("dry_run", false),
			BulkRatePerSecond: v.float("bulk_rate_per_second", 0),
			Batch: domain.BatchLimits{
				Count: v.integer("batch.count", def.Batch.Count),
				Bytes: v.integer("batch.bytes", def.Batch.Bytes),
				Time:  v.duration("batch.time", def.Batch.Time),
			},
			Query: domain.QuerySettings{
				Scroll: v.str("query.scroll", def.Query.Scroll),
				Max:    v.integer("query.max", def.Query.Max),
				Return: domain.ReturnMode(v.str("query.return", string(def.Query.Return))),
			},
		},
		Elasticsearch: ElasticsearchConfig{
			Addresses: v.list("elasticsearch.addresses"),
			Username:  v.str("elasticsearch.username", ""),
			Password:  v.str("elasticsearch.password", ""),
			APIKey:    v.str("elasticsearch.api_key", ""),
		},
		Archive: ArchiveConfig{
			Backend: v.str("archive.backend", ArchiveSQLite),
			DataDir: v.str("archive.data_dir", ""),
			S3: S3Config{
				Endpoint:  v.str("archive.s3.endpoint", ""),
				AccessKey: v.str("archive.s3.access_key", ""),
				SecretKey: v.str("archive.s3.secret_key", ""),
				Bucket:    v.str("archive.s3.bucket", ""),
				Region:    v.str("archive.s3.region", ""),
				UseSSL:    v.boolean("archive.s3.use_ssl", true),
			},
		},
		Source: SourceConfig{
			Kind: v.str("source.kind", SourceFile),
			Path: v.str("source.path", "-"),
			Kafka: KafkaConfig{
				Brokers: v.list("source.kafka.brokers"),
				GroupID: v.str("source.kafka.group_id", ""),
				Topics:  v.list("source.kafka.topics"),
			},
			Postgres: PostgresConfig{
				DSN:          v.str("source.postgres.dsn", ""),
				Table:        v.str("source.postgres.table", ""),
				Consumer:     v.str("source.postgres.consumer", ""),
				BatchSize:    v.integer("source.postgres.batch_size", 0),
				PollInterval: v.duration("source.postgres.poll_interval", 0),
				Follow:       v.boolean("source.postgres.follow", false),
			},
		},
		LogJSON: v.boolean("log.json", false),
	}

	if s, ok := lookup("dryrun"); ok {
		if b, err := strconv.ParseBool(s); err == nil && b {
			cfg.Settings.DryRun = true
		}
	}

	if len(v.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, v.errs[0])
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings and the selected backends.
func (c *Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}

	switch c.Archive.Backend {
	case ArchiveNone, ArchiveMemory, ArchiveSQLite:
	case ArchiveS3:
		if c.Archive.S3.Endpoint == "" || c.Archive.S3.Bucket == "" {
			return fmt.Errorf("%w: archive.s3 needs endpoint and bucket", domain.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown archive backend %q", domain.ErrInvalidInput, c.Archive.Backend)
	}

	switch c.Source.Kind {
	case SourceFile:
	case SourceKafka:
		if len(c.Source.Kafka.Brokers) == 0 || len(c.Source.Kafka.Topics) == 0 || c.Source.Kafka.GroupID == "" {
			return fmt.Errorf("%w: source.kafka needs brokers, topics and group_id", domain.ErrInvalidInput)
		}
	case SourcePostgres:
		if c.Source.Postgres.DSN == "" {
			return fmt.Errorf("%w: source.postgres needs a dsn", domain.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown source kind %q", domain.ErrInvalidInput, c.Source.Kind)
	}
	return nil
}
