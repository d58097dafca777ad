package orchestrator

import "expvar"

var (
	metricEnforceTotal    = expvar.NewInt("orchestrator_enforce_total")
	metricEnforceErrors   = expvar.NewInt("orchestrator_enforce_errors_total")
	metricActions         = expvar.NewMap("orchestrator_actions_total")
	metricCASLost         = expvar.NewInt("orchestrator_cas_lost_total")
	metricSessionsEnded   = expvar.NewInt("orchestrator_sessions_ended_total")
	metricSessionsDeleted = expvar.NewInt("orchestrator_sessions_deleted_total")
	metricReconcileRuns   = expvar.NewInt("orchestrator_reconcile_runs_total")
)
