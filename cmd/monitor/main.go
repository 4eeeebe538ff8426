// Package main is the entry point for the ingress uptime monitor.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Version information (set at build time).
var (
	monitorVersion   = "dev"
	monitorBuildTime = "unknown"
	monitorGitCommit = "unknown"
)

const defaultLeaderElectionID = "ingressmonitor-leader.dolittle.io"

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

var buildInfo = promauto.With(metrics.Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "ingressmonitor",
		Name:      "build_info",
		Help:      "Build information for the monitor",
	},
	[]string{"version", "commit", "build_time"},
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
}

// Config holds process settings. Monitor behavior is configured by the
// file at ConfigPath.
type Config struct {
	// MetricsAddr is the address the metric endpoint binds to.
	MetricsAddr string

	// ProbeAddr is the address the manager probe endpoint binds to.
	ProbeAddr string

	// HTTPAddr is the address of the status, hosts and ping endpoints.
	HTTPAddr string

	// HTTPMaxHeaderBytes bounds request headers on HTTPAddr.
	HTTPMaxHeaderBytes int

	// EnableLeaderElection enables leader election for the controller manager.
	EnableLeaderElection bool

	// LeaderElectionID is the name of the leader election lock.
	LeaderElectionID string

	// ConfigPath is the monitor configuration file. Empty selects defaults.
	ConfigPath string

	// WatchConfig reloads ConfigPath when it changes.
	WatchConfig bool

	LogLevel  string
	LogFormat string

	EnableTracing       bool
	OTLPEndpoint        string
	TracingSamplingRate float64

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration
}

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runWithConfig(ctx, cfg, nil); err != nil {
		setupLog.Error(err, "monitor failed")
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	defineFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defineFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.MetricsAddr, "metrics-bind-address", ":8080",
		"The address the metric endpoint binds to.")
	fs.StringVar(&cfg.ProbeAddr, "health-probe-bind-address", ":8081",
		"The address the manager probe endpoint binds to.")
	fs.StringVar(&cfg.HTTPAddr, "http-bind-address", ":8082",
		"The address the status, hosts and ping endpoints bind to.")
	fs.IntVar(&cfg.HTTPMaxHeaderBytes, "http-max-header-bytes", 1<<20,
		"The maximum size of request headers on the HTTP endpoints.")
	fs.BoolVar(&cfg.EnableLeaderElection, "leader-elect", false,
		"Enable leader election for controller manager.")
	fs.StringVar(&cfg.LeaderElectionID, "leader-election-id", defaultLeaderElectionID,
		"The name of the resource that leader election will use for holding the leader lock.")
	fs.StringVar(&cfg.ConfigPath, "config", "",
		"Path to the monitor configuration file. Defaults apply when empty.")
	fs.BoolVar(&cfg.WatchConfig, "watch-config", true,
		"Reload the configuration file when it changes.")
	fs.StringVar(&cfg.LogLevel, "log-level", "info",
		"The log level (debug, info, warn, error).")
	fs.StringVar(&cfg.LogFormat, "log-format", "json",
		"The log format (json, console).")
	fs.BoolVar(&cfg.EnableTracing, "enable-tracing", false,
		"Enable OpenTelemetry tracing.")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", "",
		"The OTLP exporter endpoint (e.g., localhost:4317).")
	fs.Float64Var(&cfg.TracingSamplingRate, "tracing-sampling-rate", 1.0,
		"The sampling rate for tracing (0.0 to 1.0).")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 15*time.Second,
		"The graceful shutdown timeout of the HTTP server.")
}
