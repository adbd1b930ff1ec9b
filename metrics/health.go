package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus is the JSON body returned by the health/readiness/liveness
// endpoints.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

var (
	startTime = time.Now()
	version   = "dev"
)

// SetVersion sets the application version reported by health endpoints.
func SetVersion(v string) {
	version = v
}

// HealthHandler reports that the process is up, with no dependency checks.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, HealthStatus{Status: "healthy", Timestamp: time.Now(), Version: version})
	}
}

// ReadinessHandler reports whether the gateway can accept new sessions. If
// keyHealthCheck is non-nil (typically cipher.KeyManager.HealthCheck), its
// result gates readiness — a gateway whose key manager can't be reached
// should not accept new streams that will need keys mid-flight.
func ReadinessHandler(keyHealthCheck func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{Status: "ready", Timestamp: time.Now(), Version: version}

		if keyHealthCheck != nil {
			if err := keyHealthCheck(r.Context()); err != nil {
				status.Status = "not_ready"
				writeHealth(w, http.StatusServiceUnavailable, status)
				return
			}
		}
		writeHealth(w, http.StatusOK, status)
	}
}

// LivenessHandler reports that the process's main loop is still running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, HealthStatus{Status: "alive", Timestamp: time.Now(), Version: version})
	}
}

func writeHealth(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
