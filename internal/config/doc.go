// Package config provides the monitor configuration model.
//
// Configuration is read from a YAML file in which ${VAR} and
// ${VAR:-default} are replaced from the environment and $$ yields a literal
// dollar sign. Absent fields take the defaults in this package. Resolve
// validates a configuration and parses its label, annotation and schedule
// properties; every problem is reported as a *util.ConfigError.
//
//	cfg, err := config.LoadConfig("/etc/ingressmonitor/config.yaml")
//	if err != nil {
//	    return err
//	}
//	settings, err := config.Resolve(cfg)
//
// A Watcher re-reads the file when it changes. Only the schedule and prober
// options are applied at runtime, the rest need a restart.
package config
