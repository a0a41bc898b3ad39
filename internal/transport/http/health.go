package http

import "net/http"

// HealthHandler reports liveness. Readiness (database, broker) is the
// orchestrator's deployment concern, not this endpoint's.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
