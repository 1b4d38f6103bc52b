// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"chartsight/core/shared/types"
)

// analyzeRequest is the POST /api/v1/analyze body.
type analyzeRequest struct {
	Image       string          `json:"image"` // base64
	FileName    string          `json:"file_name"`
	MimeType    string          `json:"mime_type"`
	Description string          `json:"description,omitempty"`
	Options     AnalysisOptions `json:"options"`
}

// Handlers serves the HTTP surface over a Service.
type Handlers struct {
	service *Service
}

// NewHandlers wraps a service for HTTP.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// Register attaches all routes to the router.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/health", h.healthHandler).Methods("GET")
	r.HandleFunc("/metrics", h.metricsHandler).Methods("GET")
	r.Handle("/prometheus", h.service.monitor.PrometheusHandler()).Methods("GET")
	r.HandleFunc("/api/v1/analyze", h.analyzeHandler).Methods("POST")
	r.HandleFunc("/api/v1/breaker", h.breakerHandler).Methods("GET")
	r.HandleFunc("/api/v1/budget/{user_id}", h.budgetHandler).Methods("GET")
}

func (h *Handlers) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Options.UserID == "" {
		sendError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.Options.SpeedMode != "" {
		if err := req.Options.SpeedMode.Validate(); err != nil {
			sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		sendError(w, "image must be base64 encoded", http.StatusBadRequest)
		return
	}

	meta := types.FileMetadata{
		OriginalName: req.FileName,
		MimeType:     req.MimeType,
		Size:         int64(len(image)),
	}

	result := h.service.Analyze(r.Context(), image, meta, req.Description, req.Options)

	status := http.StatusOK
	if !result.Success {
		status = statusForCode(result)
	}
	writeJSON(w, status, result)
}

// statusForCode maps a classified failure to an HTTP status.
func statusForCode(result *AnalysisResult) int {
	if result.Error == nil {
		return http.StatusInternalServerError
	}
	switch result.Error.Code {
	case "file_too_large":
		return http.StatusRequestEntityTooLarge
	case "invalid_format", "corrupted_image", "validation_error":
		return http.StatusUnprocessableEntity
	case "budget_exceeded", "rate_limited", "quota_exceeded":
		return http.StatusTooManyRequests
	case "auth_failed":
		return http.StatusBadGateway
	case "backend_unavailable", "network_timeout":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) healthHandler(w http.ResponseWriter, r *http.Request) {
	report := h.service.Report()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        report.HealthLabel,
		"service":       "chartsight-orchestrator",
		"health_score":  report.HealthScore,
		"circuit_state": report.CircuitState,
		"timestamp":     time.Now().UTC(),
	})
}

func (h *Handlers) metricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Report())
}

func (h *Handlers) breakerHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.BreakerSnapshot())
}

func (h *Handlers) budgetHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["user_id"]
	if userID == "" {
		sendError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	tier := types.SubscriptionTier(r.URL.Query().Get("tier"))
	if tier == "" {
		tier = types.TierFree
	}

	status, err := h.service.BudgetStatus(r.Context(), userID, tier)
	if err != nil {
		sendError(w, "failed to read budget: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
