package httptransport

import (
	"net/http"

	"table-keeper/internal/orchestrator"

	"github.com/go-chi/chi/v5"
)

func AuditHandler(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricAuditRequestsTotal.Add(1)
		report, err := orch.Audit(r.Context(), chi.URLParam(r, "session_id"))
		if err != nil {
			status, code := orchestrator.MapEnforceError(err)
			WriteHTTPError(w, status, code)
			return
		}
		writeJSON(w, report)
	}
}
