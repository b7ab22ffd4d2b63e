package gseconfig

import (
	"strings"

	"github.com/dvbgse/gogse/internal/gse/gsetype"
)

// ApplyDefaults fills in zero-valued fields with sensible defaults after a
// config file (or no config file) has been loaded.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyCodecDefaults(&cfg.Codec)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if cfg.Profiling.Enabled && len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space"}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyCodecDefaults(cfg *CodecConfig) {
	if cfg.MaxFragID == 0 {
		cfg.MaxFragID = 255
	}
	if cfg.MaxPDUSize == 0 {
		cfg.MaxPDUSize = 65535
	}
	if cfg.ReuseEnabled && cfg.ReuseMaxConsecutive == 0 {
		cfg.ReuseMaxConsecutive = 15
	}
}

// GetDefaultConfig returns a Config with every field set to its default
// value, suitable for `gsecap config init` and as the fallback when no
// config file is found.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Codec: CodecConfig{
			MaxFragID:  gsetype.MandatoryPTypeMax - 1,
			MaxPDUSize: 65535,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
