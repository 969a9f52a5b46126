package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cuemby/drover/pkg/metrics"
	"github.com/cuemby/drover/pkg/reconciler"
)

// StatusServer exposes the watch daemon's observability endpoints
type StatusServer struct {
	rec *reconciler.Reconciler
	mux *http.ServeMux
}

// NewStatusServer creates the status HTTP server
func NewStatusServer(rec *reconciler.Reconciler) *StatusServer {
	mux := http.NewServeMux()
	s := &StatusServer{
		rec: rec,
		mux: mux,
	}

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/ready", s.readyHandler)
	mux.HandleFunc("/nodes", s.nodesHandler)
	mux.Handle("/metrics", metrics.Handler())

	return s
}

// Start starts the status HTTP server
func (s *StatusServer) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	TrackedNodes int       `json:"trackedNodes"`
}

// NodesResponse lists the tracked nodes' current views
type NodesResponse struct {
	Timestamp time.Time              `json:"timestamp"`
	Nodes     []reconciler.NodeState `json:"nodes"`
}

// healthHandler is a simple liveness check
func (s *StatusServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// readyHandler reports readiness: the daemon is ready once it tracks at
// least one node
func (s *StatusServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tracked := len(s.rec.Tracked())
	resp := ReadyResponse{
		Status:       "ready",
		Timestamp:    time.Now(),
		TrackedNodes: tracked,
	}
	code := http.StatusOK
	if tracked == 0 {
		resp.Status = "not ready"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// nodesHandler returns the tracked nodes' snapshots, hints, and enabled
// commands
func (s *StatusServer) nodesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, NodesResponse{
		Timestamp: time.Now(),
		Nodes:     s.rec.States(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
