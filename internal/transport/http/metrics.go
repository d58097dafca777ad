package httptransport

import "expvar"

var (
	metricEnforceRequestsTotal = expvar.NewInt("http_enforce_requests_total")
	metricEnforceRequestErrors = expvar.NewInt("http_enforce_request_errors_total")
	metricAuditRequestsTotal   = expvar.NewInt("http_audit_requests_total")
)
