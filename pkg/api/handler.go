// Package api exposes the webhook ingestion endpoint and the operator
// query surface over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/workstream/workstream/pkg/workstream"
)

const (
	// DefaultSignatureHeader carries the HMAC signature of the raw body.
	DefaultSignatureHeader = "X-Hub-Signature-256"

	// maxBodyBytes bounds inbound webhook bodies.
	maxBodyBytes = 1 << 20
)

// Config holds handler configuration.
type Config struct {
	// Pipeline is the webhook pipeline instance (required).
	Pipeline *workstream.Pipeline

	// SignatureHeader names the header carrying the payload signature.
	// Default: DefaultSignatureHeader.
	SignatureHeader string

	// Logger receives request-level logs. Default: NoopLogger.
	Logger workstream.Logger
}

// Handler provides the HTTP endpoints for the pipeline.
type Handler struct {
	config Config
}

// NewHandler creates a Handler.
func NewHandler(config Config) (*Handler, error) {
	if config.Pipeline == nil {
		return nil, errors.New("api: pipeline is required")
	}
	if config.SignatureHeader == "" {
		config.SignatureHeader = DefaultSignatureHeader
	}
	if config.Logger == nil {
		config.Logger = &workstream.NoopLogger{}
	}
	return &Handler{config: config}, nil
}

// Routes mounts all endpoints on a chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(Recoverer(h.config.Logger))
	r.Use(RequestLogger(h.config.Logger))
	r.Post("/webhook", h.HandleWebhook)
	r.Get("/statistics", h.GetStatistics)
	r.Get("/metrics", h.GetDetailedMetrics)
	r.Get("/alerts", h.GetAlertStatus)
	r.Post("/alerts/config", h.ConfigureAlerts)
	r.Post("/queue/clear", h.ClearQueue)
	r.Post("/statistics/reset", h.ResetStatistics)
	return r
}

// HandleWebhook ingests one webhook delivery. Pre-queue rejections are
// returned as structured JSON; nothing past acceptance is observable here.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, workstream.IngestResult{
			Success: false,
			Error:   "unreadable body",
		})
		return
	}

	result := h.config.Pipeline.Ingest(r.Context(), body, r.Header.Get(h.config.SignatureHeader))

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
		if isSignatureFailure(result.Error) {
			status = http.StatusUnauthorized
		}
	}
	writeJSON(w, status, result)
}

// GetStatistics returns the rolling statistics snapshot.
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.config.Pipeline.Statistics())
}

// GetDetailedMetrics returns the operator metrics view for
// ?timeframe=<N>h|<N>d|<N>w|<N>m (default "24h").
func (h *Handler) GetDetailedMetrics(w http.ResponseWriter, r *http.Request) {
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = "24h"
	}
	metrics, err := h.config.Pipeline.DetailedMetrics(timeframe)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// GetAlertStatus evaluates thresholds and returns active alerts, history
// and configuration.
func (h *Handler) GetAlertStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.config.Pipeline.AlertStatus())
}

// ConfigureAlerts merges a partial threshold update from the request body.
func (h *Handler) ConfigureAlerts(w http.ResponseWriter, r *http.Request) {
	var patch workstream.AlertThresholdPatch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed threshold patch"})
		return
	}
	writeJSON(w, http.StatusOK, h.config.Pipeline.ConfigureAlerts(patch))
}

// ClearQueue discards queued events and cancels any pending flush.
func (h *Handler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	dropped := h.config.Pipeline.ClearQueue()
	writeJSON(w, http.StatusOK, map[string]int{"dropped": dropped})
}

// ResetStatistics zeroes the rolling counters.
func (h *Handler) ResetStatistics(w http.ResponseWriter, r *http.Request) {
	h.config.Pipeline.ResetStatistics()
	w.WriteHeader(http.StatusNoContent)
}

// isSignatureFailure matches the message prefix every SignatureError
// carries; IngestResult holds only the rendered message.
func isSignatureFailure(msg string) bool {
	return strings.HasPrefix(msg, "signature:")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
