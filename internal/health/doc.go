// Package health serves the monitor's HTTP surface: the aggregate uptime
// status, the probed host listing, the challenge responder that the shared
// external Service points at, and liveness/readiness probes.
//
// Routes registered by Handler.RegisterRoutes:
//
//	GET /status          200 {"status":"OK"} or 503 {"status":"ERROR","failing":[...]}
//	GET /uptime/status   alias of /status
//	GET /hosts           current targets with their last recorded result
//	GET <ping path>      challenge responder
//	GET /healthz         liveness
//	GET /readyz          readiness, runs the registered checks
package health
