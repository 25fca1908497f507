package config

import (
	"errors"
	"os"
	"strings"
)

// Config holds the shared settings for the pipeline commands, populated
// from environment variables. Per-run inputs (paths, filters) stay on
// command-line flags.
type Config struct {
	LogLevel  string
	LogFormat string

	// Kafka run-report publishing. Disabled when no brokers are set.
	KafkaBrokers     []string
	KafkaReportTopic string
	NotifyEnabled    bool

	// Pushgateway endpoint for batch metrics. Empty disables pushing.
	PushgatewayURL string

	// Password for the SFTP transfer source. Kept out of the YAML
	// endpoint file so it never lands on disk.
	SFTPPassword string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		KafkaBrokers:     parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaReportTopic: envOrDefault("KAFKA_REPORT_TOPIC", "vpts-run-reports"),
		PushgatewayURL:   os.Getenv("PUSHGATEWAY_URL"),
		SFTPPassword:     os.Getenv("SFTP_PASSWORD"),
	}
	cfg.NotifyEnabled = len(cfg.KafkaBrokers) > 0

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, errors.New("LOG_FORMAT must be json or text")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.New("LOG_LEVEL must be debug, info, warn or error")
	}
	if cfg.NotifyEnabled && cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_REPORT_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
