package monitoring

import (
	"fmt"
	"log"
	"net/http"
)

// HealthServer serves liveness plus whatever extra endpoints the hosting
// agent registers. It runs on its own mux so importing packages cannot leak
// handlers onto the default one.
type HealthServer struct {
	monitor *Monitor
	port    string
	mux     *http.ServeMux
}

func NewHealthServer(monitor *Monitor, port string) *HealthServer {
	if port == "" {
		port = "8080"
	}
	h := &HealthServer{
		monitor: monitor,
		port:    port,
		mux:     http.NewServeMux(),
	}
	h.mux.HandleFunc("/health", h.healthHandler)
	h.mux.HandleFunc("/status", h.statusHandler)
	return h
}

// Handle registers an agent-specific endpoint. Must be called before Start.
func (h *HealthServer) Handle(pattern string, handler http.HandlerFunc) {
	h.mux.HandleFunc(pattern, handler)
}

func (h *HealthServer) Start() {
	log.Printf("HTTP server starting on port %s", h.port)
	go func() {
		if err := http.ListenAndServe(":"+h.port, h.mux); err != nil {
			log.Printf("HTTP server error: %v", err)
		}
	}()
}

func (h *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if h.monitor.IsHealthy() {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK - %s", h.monitor.GetStatusSummary())
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Service unhealthy - %s", h.monitor.GetStatusSummary())
	}
}

func (h *HealthServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s", h.monitor.GetStatusSummary())
}
