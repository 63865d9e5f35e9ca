package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sudhan/stockpicks/internal/aggregator"
	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/internal/orchestrator"
	"github.com/sudhan/stockpicks/internal/universe"
	"github.com/sudhan/stockpicks/pkg/logger"
)

// Runner starts one analysis run
type Runner interface {
	Run(ctx context.Context, desc universe.Descriptor) (contracts.RunReport, error)
}

// Finalizer merges stored chunk results and ships the report
type Finalizer interface {
	Finalize(ctx context.Context) (aggregator.Summary, error)
}

// AnalysisHandler handles analysis API endpoints
// ⭐ SSOT: 분석 API 핸들러는 여기서만
type AnalysisHandler struct {
	runner    Runner
	finalizer Finalizer
	runs      orchestrator.RunStore
	logger    *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(runner Runner, finalizer Finalizer, runs orchestrator.RunStore, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		runner:    runner,
		finalizer: finalizer,
		runs:      runs,
		logger:    log,
	}
}

// Analyze launches an analysis run. The request body is an optional
// universe descriptor; an empty body means the full universe.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var desc universe.Descriptor
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	report, err := h.runner.Run(r.Context(), desc)
	if err != nil {
		h.logger.WithError(err).Error("Analysis run failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, report)
}

// Finalize forces an aggregation pass immediately
func (h *AnalysisHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	summary, err := h.finalizer.Finalize(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Finalize failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GetRun returns the recorded status of one run
func (h *AnalysisHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]

	report, err := h.runs.Get(r.Context(), runID)
	if errors.Is(err, orchestrator.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Run lookup failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
