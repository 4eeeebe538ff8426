package health

// Route paths.
const (
	PathStatus         = "/status"
	PathUptimeStatus   = "/uptime/status"
	PathDolittleStatus = "/dolittle/uptime/status"
	PathHosts          = "/hosts"
	PathLiveness       = "/healthz"
	PathReadiness      = "/readyz"
)

// Check status values reported by /healthz and /readyz.
const (
	checkOK    = "ok"
	checkError = "error"
)
