package main

import (
	"reflect"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vyrodovalexey/ingressmonitor/internal/config"
	"github.com/vyrodovalexey/ingressmonitor/internal/observability"
)

// scheduleUpdater is satisfied by *pinger.Scheduler.
type scheduleUpdater interface {
	SetSchedule(schedule cron.Schedule)
	SetDispatchRate(perSecond float64)
}

// timeoutUpdater is satisfied by *pinger.Prober.
type timeoutUpdater interface {
	SetTimeout(d time.Duration)
}

// reloadCallback applies live-reloadable options of a reloaded
// configuration. Every other change is logged as requiring a restart.
func reloadCallback(
	initial *config.MonitorConfig,
	scheduler scheduleUpdater,
	prober timeoutUpdater,
	logger observability.Logger,
) config.ConfigCallback {
	return func(next *config.MonitorConfig) {
		settings, err := config.Resolve(next)
		if err != nil {
			logger.Error("ignoring invalid configuration", observability.Error(err))
			return
		}

		scheduler.SetSchedule(settings.Schedule)
		scheduler.SetDispatchRate(next.Scheduler.DispatchRate)
		prober.SetTimeout(next.Prober.Timeout.Duration())
		logger.Info("probe options reloaded",
			observability.String("schedule", next.Scheduler.Schedule),
			observability.Float64("dispatchRate", next.Scheduler.DispatchRate),
			observability.Duration("timeout", next.Prober.Timeout.Duration()),
		)

		if sections := restartRequired(initial, next); len(sections) > 0 {
			logger.Warn("configuration changes take effect after restart",
				observability.Strings("sections", sections),
			)
		}
	}
}

// restartRequired lists the configuration sections of next that differ
// from initial and are only read at start-up.
func restartRequired(initial, next *config.MonitorConfig) []string {
	var sections []string
	if !reflect.DeepEqual(initial.Controller, next.Controller) {
		sections = append(sections, "controller")
	}
	if !reflect.DeepEqual(initial.Ping, next.Ping) {
		sections = append(sections, "ping")
	}
	if !reflect.DeepEqual(initial.Ingress, next.Ingress) {
		sections = append(sections, "ingress")
	}
	if !reflect.DeepEqual(initial.Service, next.Service) {
		sections = append(sections, "service")
	}
	if !reflect.DeepEqual(initial.KeyStore, next.KeyStore) {
		sections = append(sections, "keystore")
	}
	if initial.Scheduler.Workers != next.Scheduler.Workers || initial.Scheduler.QueueDepth != next.Scheduler.QueueDepth {
		sections = append(sections, "scheduler.workers")
	}
	if initial.Prober.UserAgent != next.Prober.UserAgent ||
		initial.Prober.InsecureSkipVerify != next.Prober.InsecureSkipVerify {
		sections = append(sections, "prober")
	}
	return sections
}
