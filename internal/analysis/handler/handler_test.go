package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biorempp/internal/analysis"
	"biorempp/internal/pipeline/models"
	"biorempp/internal/platform/middleware"
	"biorempp/internal/progress"
	"biorempp/internal/tabular"
	dErrors "biorempp/pkg/domain-errors"
)

const testSessionID = "11111111-2222-3333-4444-555555555555"

type stubService struct {
	submission *analysis.Submission
	submitErr  error
	lastRaw    []byte

	view        *analysis.ProgressView
	progressErr error

	session   *analysis.Session
	resultErr error

	table       *tabular.Table
	contentType string
	exportErr   error
	lastTable   string
	lastFormat  string
}

func (s *stubService) Submit(_ context.Context, raw []byte) (*analysis.Submission, error) {
	s.lastRaw = raw
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return s.submission, nil
}

func (s *stubService) Progress(_ context.Context, _ string) (*analysis.ProgressView, error) {
	if s.progressErr != nil {
		return nil, s.progressErr
	}
	return s.view, nil
}

func (s *stubService) Result(_ context.Context, _ string) (*analysis.Session, error) {
	if s.resultErr != nil {
		return nil, s.resultErr
	}
	return s.session, nil
}

func (s *stubService) Export(_ context.Context, _, tableName, format string) (*tabular.Table, string, error) {
	s.lastTable = tableName
	s.lastFormat = format
	if s.exportErr != nil {
		return nil, "", s.exportErr
	}
	return s.table, s.contentType, nil
}

type staticValidator struct {
	sessionID string
}

func (v staticValidator) ValidateSessionToken(string) (string, error) {
	return v.sessionID, nil
}

func newAnalysisRouter(t *testing.T, svc Service, tokenSession string, maxBody int64) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auth := middleware.RequireSession(staticValidator{sessionID: tokenSession}, logger)
	h := New(svc, logger, auth, maxBody)
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func testSubmission() *analysis.Submission {
	return &analysis.Submission{
		SessionID: testSessionID,
		Token:     "bearer-token",
		Samples:   2,
		KOs:       3,
		Encoding:  "utf-8",
		Warnings:  []string{"line 4: ignoring invalid identifier \"K1\""},
	}
}

func TestHandleSubmit_RawBody(t *testing.T) {
	stub := &stubService{submission: testSubmission()}
	router := newAnalysisRouter(t, stub, testSessionID, 1<<20)

	content := ">Sample_A\nK00001\nK00002\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader(content))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []byte(content), stub.lastRaw)

	var resp SubmitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, testSessionID, resp.SessionID)
	assert.Equal(t, "bearer-token", resp.Token)
	assert.Equal(t, "queued", resp.Status)
	assert.Equal(t, 2, resp.Samples)
	assert.Len(t, resp.Warnings, 1)
}

func TestHandleSubmit_JSONBody(t *testing.T) {
	stub := &stubService{submission: testSubmission()}
	router := newAnalysisRouter(t, stub, testSessionID, 1<<20)

	body, err := json.Marshal(map[string]string{"content": ">Sample_A\nK00001\n"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []byte(">Sample_A\nK00001\n"), stub.lastRaw)
}

func TestHandleSubmit_JSONBodyMissingContent(t *testing.T) {
	stub := &stubService{submission: testSubmission()}
	router := newAnalysisRouter(t, stub, testSessionID, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader(`{"content":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "empty_content")
	assert.Nil(t, stub.lastRaw, "service should not be called")
}

func TestHandleSubmit_OversizedRawBody(t *testing.T) {
	stub := &stubService{submission: testSubmission()}
	router := newAnalysisRouter(t, stub, testSessionID, 16)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader(strings.Repeat("K00001\n", 100)))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "byte limit")
}

func TestHandleSubmit_ServiceRejection(t *testing.T) {
	stub := &stubService{submitErr: dErrors.New(dErrors.CodeSampleLimitExceeded, "too many samples: 5001 exceeds the limit of 5000")}
	router := newAnalysisRouter(t, stub, testSessionID, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader(">S\nK00001\n"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "sample_limit_exceeded")
}

func TestReadEndpointsRequireToken(t *testing.T) {
	stub := &stubService{}
	router := newAnalysisRouter(t, stub, testSessionID, 1<<20)

	for _, path := range []string{"/progress", "/result", "/export"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+testSessionID+path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "path %s", path)
	}
}

func TestSessionMismatchForbidden(t *testing.T) {
	stub := &stubService{view: &analysis.ProgressView{}}
	router := newAnalysisRouter(t, stub, "a-different-session", 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+testSessionID+"/progress", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "forbidden")
}

func TestHandleProgress(t *testing.T) {
	remaining := 2.5
	stub := &stubService{view: &analysis.ProgressView{
		SessionID: testSessionID,
		Status:    analysis.StatusProcessing,
		Snapshot: progress.Snapshot{
			Stage:            1,
			StagePercent:     40,
			OverallPercent:   17,
			Message:          "merging biorempp database",
			ElapsedSeconds:   0.8,
			RemainingSeconds: &remaining,
		},
	}}
	router := newAnalysisRouter(t, stub, testSessionID, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+testSessionID+"/progress", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, testSessionID, resp["session_id"])
	assert.Equal(t, "processing", resp["status"])
	assert.Equal(t, float64(1), resp["stage"])
	assert.Equal(t, float64(17), resp["overall_percent"])
	assert.Equal(t, "merging biorempp database", resp["message"])
	assert.Equal(t, 2.5, resp["estimated_remaining_seconds"])
}

func TestHandleResult(t *testing.T) {
	primary := tabular.MustNew([]string{"sample", "ko", "genesymbol"})
	require.NoError(t, primary.AppendRow([]string{"Sample_A", "K00001", "adhA"}))

	now := time.Now().UTC()
	stub := &stubService{session: &analysis.Session{
		ID:        testSessionID,
		Status:    analysis.StatusCompleted,
		CreatedAt: now.Add(-time.Second),
		UpdatedAt: now,
		Samples:   1,
		KOs:       1,
		Result: &models.MergeResult{
			Primary:      primary,
			Matches:      1,
			TotalRecords: 1,
			Duration:     340 * time.Millisecond,
		},
	}}
	router := newAnalysisRouter(t, stub, testSessionID, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+testSessionID+"/result", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID  string          `json:"session_id"`
		Status     string          `json:"status"`
		Matches    int             `json:"matches"`
		DurationMS int64           `json:"duration_ms"`
		Primary    json.RawMessage `json:"primary"`
		Pathways   json.RawMessage `json:"pathways"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 1, resp.Matches)
	assert.Equal(t, int64(340), resp.DurationMS)
	assert.Contains(t, string(resp.Primary), "K00001")
	assert.Nil(t, resp.Pathways, "skipped tables are omitted")
}

func TestHandleResult_StillRunning(t *testing.T) {
	stub := &stubService{resultErr: dErrors.New(dErrors.CodeConflict, "analysis is still running")}
	router := newAnalysisRouter(t, stub, testSessionID, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+testSessionID+"/result", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "still running")
}

func TestHandleExport(t *testing.T) {
	table := tabular.MustNew([]string{"sample", "ko"})
	require.NoError(t, table.AppendRow([]string{"Sample_A", "K00001"}))
	stub := &stubService{table: table, contentType: "text/csv; charset=utf-8"}
	router := newAnalysisRouter(t, stub, testSessionID, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+testSessionID+"/export?table=primary&format=csv", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "biorempp_primary_11111111.csv")
	assert.Equal(t, "sample,ko\nSample_A,K00001\n", rec.Body.String())
}

func TestHandleExport_Defaults(t *testing.T) {
	table := tabular.MustNew([]string{"sample", "ko"})
	stub := &stubService{table: table, contentType: "text/csv; charset=utf-8"}
	router := newAnalysisRouter(t, stub, testSessionID, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+testSessionID+"/export", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "primary", stub.lastTable)
	assert.Equal(t, "csv", stub.lastFormat)
}

func TestHandleExport_UnknownFormat(t *testing.T) {
	stub := &stubService{exportErr: dErrors.New(dErrors.CodeInvalidInput, `unknown export format "xlsx", supported: csv, json, tsv`)}
	router := newAnalysisRouter(t, stub, testSessionID, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+testSessionID+"/export?format=xlsx", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_input")
}
