package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudhan/stockpicks/internal/aggregator"
	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/internal/orchestrator"
	"github.com/sudhan/stockpicks/internal/universe"
	"github.com/sudhan/stockpicks/pkg/logger"
)

type stubRunner struct {
	gotDesc universe.Descriptor
	report  contracts.RunReport
	err     error
}

func (s *stubRunner) Run(ctx context.Context, desc universe.Descriptor) (contracts.RunReport, error) {
	s.gotDesc = desc
	return s.report, s.err
}

type stubFinalizer struct {
	summary aggregator.Summary
	err     error
}

func (s *stubFinalizer) Finalize(ctx context.Context) (aggregator.Summary, error) {
	return s.summary, s.err
}

func newHandler(runner *stubRunner, fin *stubFinalizer, runs orchestrator.RunStore) *AnalysisHandler {
	if runs == nil {
		runs = orchestrator.NewMemoryRunStore()
	}
	return NewAnalysisHandler(runner, fin, runs, logger.NewNop())
}

func TestAnalyzeAcceptsDescriptor(t *testing.T) {
	runner := &stubRunner{report: contracts.RunReport{RunID: "run_abc", Mode: contracts.RunModeSequential}}
	h := newHandler(runner, &stubFinalizer{}, nil)

	body := `{"test_mode": true, "test_symbols": ["AAPL", "MSFT"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, runner.gotDesc.TestMode)
	assert.Equal(t, []string{"AAPL", "MSFT"}, runner.gotDesc.TestSymbols)

	var report contracts.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "run_abc", report.RunID)
}

func TestAnalyzeEmptyBodyMeansFullUniverse(t *testing.T) {
	runner := &stubRunner{}
	h := newHandler(runner, &stubFinalizer{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.False(t, runner.gotDesc.TestMode)
	assert.Empty(t, runner.gotDesc.Records)
}

func TestAnalyzeBadBody(t *testing.T) {
	h := newHandler(&stubRunner{}, &stubFinalizer{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeRunError(t *testing.T) {
	h := newHandler(&stubRunner{err: errors.New("universe unavailable")}, &stubFinalizer{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFinalizeReturnsSummary(t *testing.T) {
	fin := &stubFinalizer{summary: aggregator.Summary{ChunksMerged: 3, TotalRows: 120, EmailSent: true}}
	h := newHandler(&stubRunner{}, fin, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/finalize", nil)
	rec := httptest.NewRecorder()

	h.Finalize(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var summary aggregator.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.ChunksMerged)
	assert.True(t, summary.EmailSent)
}

func TestGetRun(t *testing.T) {
	runs := orchestrator.NewMemoryRunStore()
	require.NoError(t, runs.Save(context.Background(), contracts.RunReport{
		RunID: "run_known", Mode: contracts.RunModeDistributed, ChunksLaunched: 5,
	}))
	h := newHandler(&stubRunner{}, &stubFinalizer{}, runs)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/run_known", nil)
	req = mux.SetURLVars(req, map[string]string{"run_id": "run_known"})
	rec := httptest.NewRecorder()

	h.GetRun(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var report contracts.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 5, report.ChunksLaunched)
}

func TestGetRunNotFound(t *testing.T) {
	h := newHandler(&stubRunner{}, &stubFinalizer{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil)
	req = mux.SetURLVars(req, map[string]string{"run_id": "missing"})
	rec := httptest.NewRecorder()

	h.GetRun(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
