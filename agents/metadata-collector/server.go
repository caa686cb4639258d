package metadatacollector

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"collector-stack/agents/metadata-collector/batch"
	"collector-stack/agents/metadata-collector/extract"
	"collector-stack/shared/monitoring"
)

type extractRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RegisterHandlers mounts the collector's endpoints on the shared HTTP
// server:
//
//	POST /extract       - hybrid-extract one video now
//	POST /batch         - queue one video for the next batched call
//	POST /batch/process - flush the backlog immediately
//	GET  /batch/status  - queue and scheduler introspection
//	GET  /quota         - per-credential usage
func RegisterHandlers(server *monitoring.HealthServer, agent *CollectorAgent) {
	server.Handle("/extract", agent.handleExtract)
	server.Handle("/batch", agent.handleBatchAdd)
	server.Handle("/batch/process", agent.handleBatchProcess)
	server.Handle("/batch/status", agent.handleBatchStatus)
	server.Handle("/quota", agent.handleQuota)
}

func (a *CollectorAgent) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"url\": \"...\"}")
		return
	}

	result, err := a.hybrid.Extract(r.Context(), req.URL)
	status := http.StatusOK
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrInvalidURL):
			status = http.StatusBadRequest
		default:
			status = http.StatusBadGateway
		}
	}
	writeJSON(w, status, result)
}

func (a *CollectorAgent) handleBatchAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"url\": \"...\"}")
		return
	}

	ack, err := a.batch.Add(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, extract.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}

func (a *CollectorAgent) handleBatchProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	result, err := a.batch.ForceProcess(r.Context())
	if err != nil {
		if errors.Is(err, batch.ErrFlushInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *CollectorAgent) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	writeJSON(w, http.StatusOK, a.batch.Status())
}

func (a *CollectorAgent) handleQuota(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	writeJSON(w, http.StatusOK, a.pool.UsageStatus())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
