package httptransport

import (
	"encoding/json"
	"net/http"

	"table-keeper/internal/orchestrator"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// EnforceHandler serves the client trigger. Reconciler and debug sources run the
// reclaimer, so they need the admin key when one is configured.
func EnforceHandler(orch *orchestrator.Orchestrator, adminKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricEnforceRequestsTotal.Add(1)
		var req orchestrator.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			metricEnforceRequestErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.Source != "" && req.Source != orchestrator.SourceClient && adminKey != "" && !CheckAdminAuth(r, adminKey) {
			metricEnforceRequestErrors.Add(1)
			WriteHTTPError(w, http.StatusForbidden, "forbidden_source")
			return
		}
		if req.RequestID == "" {
			req.RequestID = chimw.GetReqID(r.Context())
		}
		resp, err := orch.Enforce(r.Context(), req)
		if err != nil {
			metricEnforceRequestErrors.Add(1)
			writeEnforceError(w, err)
			return
		}
		writeJSON(w, resp)
	}
}

func ReconcileHandler(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := orch.ReconcileOnce(r.Context())
		if err != nil {
			writeEnforceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"scanned": sum.Scanned, "acted": sum.Acted, "failed": sum.Failed})
	}
}
