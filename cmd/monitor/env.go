package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func applyEnvOverrides(cfg *Config) {
	applyStringEnv(&cfg.MetricsAddr, "METRICS_BIND_ADDRESS")
	applyStringEnv(&cfg.ProbeAddr, "HEALTH_PROBE_BIND_ADDRESS")
	applyStringEnv(&cfg.HTTPAddr, "HTTP_BIND_ADDRESS")
	applyStringEnv(&cfg.LeaderElectionID, "LEADER_ELECTION_ID")
	applyStringEnv(&cfg.ConfigPath, "CONFIG_PATH")
	applyStringEnv(&cfg.LogLevel, "LOG_LEVEL")
	applyStringEnv(&cfg.LogFormat, "LOG_FORMAT")
	applyStringEnv(&cfg.OTLPEndpoint, "OTLP_ENDPOINT")

	applyIntEnv(&cfg.HTTPMaxHeaderBytes, "HTTP_MAX_HEADER_BYTES")
	applyFloat64Env(&cfg.TracingSamplingRate, "TRACING_SAMPLING_RATE")
	applyDurationEnv(&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT")

	applyBoolEnv(&cfg.EnableLeaderElection, "LEADER_ELECT")
	applyBoolEnv(&cfg.WatchConfig, "WATCH_CONFIG")
	applyBoolEnv(&cfg.EnableTracing, "ENABLE_TRACING")
}

// applyBoolEnv applies a boolean environment variable override.
// It handles both true and false values symmetrically.
func applyBoolEnv(target *bool, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			*target = true
		case "false", "0", "no":
			*target = false
		}
	}
}

func applyStringEnv(target *string, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		*target = v
	}
}

func applyIntEnv(target *int, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func applyFloat64Env(target *float64, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func applyDurationEnv(target *time.Duration, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}
