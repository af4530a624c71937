package handler

import "net/http"

// HealthCheck implements GET /api/v1/health_check: always 200, no body.
func (d *Dependencies) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
