package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	ctrlzap "sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/vyrodovalexey/ingressmonitor/internal/config"
	"github.com/vyrodovalexey/ingressmonitor/internal/health"
	"github.com/vyrodovalexey/ingressmonitor/internal/keystore"
	"github.com/vyrodovalexey/ingressmonitor/internal/kube"
	"github.com/vyrodovalexey/ingressmonitor/internal/observability"
	"github.com/vyrodovalexey/ingressmonitor/internal/operator/controller"
	"github.com/vyrodovalexey/ingressmonitor/internal/pinger"
	"github.com/vyrodovalexey/ingressmonitor/internal/server"
	"github.com/vyrodovalexey/ingressmonitor/internal/stream"
)

// keystoreCheckTTL caches the Redis readiness ping between probes.
const keystoreCheckTTL = 5 * time.Second

// runWithConfig wires every component and runs them until ctx is done.
// When restConfig is nil, ctrl.GetConfig() is used.
func runWithConfig(ctx context.Context, cfg *Config, restConfig *rest.Config) error {
	core, err := observability.NewCore(observability.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return fmt.Errorf("unable to setup logging: %w", err)
	}
	logger := observability.NewLoggerFromCore(core)
	defer func() { _ = logger.Sync() }()
	ctrl.SetLogger(newLogr(core, cfg.LogLevel))

	monitorCfg, err := config.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return err
	}
	settings, err := config.Resolve(monitorCfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  "ingressmonitor",
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		Enabled:      cfg.EnableTracing,
	})
	if err != nil {
		return fmt.Errorf("unable to setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			setupLog.Error(err, "failed to shutdown tracer")
		}
	}()

	if restConfig == nil {
		if restConfig, err = ctrl.GetConfig(); err != nil {
			return fmt.Errorf("unable to load kubeconfig: %w", err)
		}
	}
	mgr, err := createManager(restConfig, cfg)
	if err != nil {
		return err
	}
	buildInfo.WithLabelValues(monitorVersion, monitorGitCommit, monitorBuildTime).Set(1)

	if err := setupReconciler(mgr, monitorCfg, settings); err != nil {
		return err
	}
	if err := setupHealthChecks(mgr); err != nil {
		return err
	}

	store, err := keystore.New(ctx, monitorCfg.KeyStore, logger.Named("keystore"))
	if err != nil {
		return fmt.Errorf("unable to create key store: %w", err)
	}
	defer func() { _ = store.Close() }()

	hasher, err := keystore.NewHasher(monitorCfg.KeyStore.Salt)
	if err != nil {
		return err
	}

	status := pinger.NewStatus()
	aggregator := pinger.NewHostAggregator(logger.Named("aggregator"))
	projector := newIngressProjector(settings.PingAnnotation, logger.Named("projector"))
	defer projector.Subscribe(aggregator.Update)()

	informer, err := mgr.GetCache().GetInformer(ctx, &networkingv1.Ingress{})
	if err != nil {
		return fmt.Errorf("unable to get ingress informer: %w", err)
	}
	if _, err := informer.AddEventHandler(projector); err != nil {
		return fmt.Errorf("unable to register ingress handler: %w", err)
	}

	prober := pinger.NewProber(monitorCfg.Prober, store, hasher, pinger.WithProberLogger(logger.Named("prober")))
	scheduler := pinger.NewScheduler(monitorCfg.Scheduler, settings.Schedule, aggregator, status, prober,
		pinger.WithSchedulerLogger(logger.Named("scheduler")),
		pinger.WithCronLogger(ctrl.Log.WithName("cron")),
	)

	var synced atomic.Bool
	handler := health.NewHandler(status, aggregator, hasher,
		health.WithHandlerLogger(logger.Named("health")),
		health.WithHandlerConfig(&health.HandlerConfig{
			PingPath:              monitorCfg.Ping.Path,
			ReadinessProbeTimeout: health.DefaultReadinessProbeTimeout,
		}),
	)
	handler.AddCheck(health.CustomHealthCheck("cache", func(context.Context) error {
		if !synced.Load() {
			return errors.New("ingress cache not synced")
		}
		return nil
	}))
	if rs, ok := store.(*keystore.RedisStore); ok {
		handler.AddCheck(health.NewCachedHealthCheck(health.RedisHealthCheck("keystore", rs.Client()), keystoreCheckTTL))
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Address = cfg.HTTPAddr
	srvCfg.ShutdownTimeout = cfg.ShutdownTimeout
	srvCfg.MaxHeaderBytes = cfg.HTTPMaxHeaderBytes
	srv := server.New(srvCfg, logger.Named("http"))
	handler.RegisterRoutes(srv.Engine())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		setupLog.Info("starting manager")
		if err := mgr.Start(gctx); err != nil {
			return fmt.Errorf("problem running manager: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		// Probing before the first list completes would report an empty,
		// healthy target set.
		if !mgr.GetCache().WaitForCacheSync(gctx) {
			return nil
		}
		synced.Store(true)
		return scheduler.Run(gctx)
	})
	if cfg.WatchConfig && cfg.ConfigPath != "" {
		watcher, err := config.NewWatcher(cfg.ConfigPath,
			reloadCallback(monitorCfg, scheduler, prober, logger.Named("reload")),
			config.WithLogger(logger.Named("config")),
		)
		if err != nil {
			return fmt.Errorf("unable to watch configuration: %w", err)
		}
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	return g.Wait()
}

// newLogr builds the controller-runtime logger on the monitor's zap core.
func newLogr(core zapcore.Core, level string) logr.Logger {
	return ctrlzap.New(
		ctrlzap.UseDevMode(level == "debug"),
		ctrlzap.RawZapOpts(zap.WrapCore(func(zapcore.Core) zapcore.Core {
			return core
		})),
	)
}

func createManager(restConfig *rest.Config, cfg *Config) (ctrl.Manager, error) {
	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Scheme: scheme,
		Metrics: metricsserver.Options{
			BindAddress: cfg.MetricsAddr,
		},
		HealthProbeBindAddress: cfg.ProbeAddr,
		LeaderElection:         cfg.EnableLeaderElection,
		LeaderElectionID:       cfg.LeaderElectionID,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create manager: %w", err)
	}
	return mgr, nil
}

func setupReconciler(mgr ctrl.Manager, cfg *config.MonitorConfig, settings *config.Settings) error {
	r := &controller.ShadowIngressReconciler{
		Client:   mgr.GetClient(),
		Scheme:   mgr.GetScheme(),
		Recorder: mgr.GetEventRecorderFor("ingressmonitor"), //nolint:staticcheck // core/v1 events
		Options:  controller.NewOptions(cfg, settings),
	}
	if err := r.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to setup shadow ingress controller: %w", err)
	}
	return nil
}

// healthCheckAdder is satisfied by ctrl.Manager.
type healthCheckAdder interface {
	AddHealthzCheck(name string, check healthz.Checker) error
	AddReadyzCheck(name string, check healthz.Checker) error
}

func setupHealthChecks(mgr healthCheckAdder) error {
	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up ready check: %w", err)
	}
	return nil
}

// newIngressProjector projects Ingresses carrying the ping annotation.
func newIngressProjector(
	selector kube.AnnotationSelector,
	logger observability.Logger,
) *stream.Projector[*networkingv1.Ingress, kube.IngressRecord] {
	return stream.NewProjector(
		kube.FromIngress,
		func(r kube.IngressRecord) string { return r.Key().String() },
		stream.WithPredicate[*networkingv1.Ingress](func(r kube.IngressRecord) bool {
			return selector.Matches(r.Annotations)
		}),
		stream.WithLogger[*networkingv1.Ingress, kube.IngressRecord](logger),
	)
}
