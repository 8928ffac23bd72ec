package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// CSV sources: local paths, http(s) URLs, or s3://bucket/key URIs,
	// loaded and appended in this order.
	CSVSources    []string
	FetchTimeout  time.Duration // zero means no timeout
	DefaultDecade int
	ViewCacheSize int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	S3Region    string
	S3Endpoint  string
	S3PathStyle bool

	// Kafka chunk stream, off unless KAFKA_ENABLED=true.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaChunkTopic  string
	KafkaRecordTopic string // empty disables publishing parsed records
	KafkaGroupID     string

	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FETCH_TIMEOUT", "0s"))
	if err != nil || fetchTimeout < 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}

	window, err := domain.ParseDecade(sharedcfg.EnvOrDefault("DEFAULT_DECADE", strconv.Itoa(domain.DefaultDecade)))
	if err != nil || window.Validate() != nil {
		return nil, errors.New("invalid DEFAULT_DECADE")
	}

	viewCacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("VIEW_CACHE_SIZE", "64"))
	if err != nil || viewCacheSize < 0 {
		return nil, errors.New("invalid VIEW_CACHE_SIZE")
	}

	s3PathStyle, err := parseBool("S3_PATH_STYLE", false)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CSVSources:    splitList(sharedcfg.EnvOrDefault("CSV_SOURCES", "sample_data.csv")),
		FetchTimeout:  fetchTimeout,
		DefaultDecade: window.Decade,
		ViewCacheSize: viewCacheSize,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		S3Region:    sharedcfg.EnvOrDefault("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3PathStyle: s3PathStyle,

		KafkaEnabled:     kafkaEnabled,
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaChunkTopic:  sharedcfg.EnvOrDefault("KAFKA_CHUNK_TOPIC", "asset-csv-chunks"),
		KafkaRecordTopic: os.Getenv("KAFKA_RECORD_TOPIC"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "risk-asset-explorer"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if len(cfg.CSVSources) == 0 && !cfg.KafkaEnabled {
		return nil, errors.New("CSV_SOURCES is required when KAFKA_ENABLED is false")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaChunkTopic == "" {
			return nil, errors.New("KAFKA_CHUNK_TOPIC is required")
		}
	}

	return cfg, nil
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
