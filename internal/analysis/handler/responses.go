package handler

import (
	"time"

	"biorempp/internal/analysis"
	"biorempp/internal/progress"
	"biorempp/internal/tabular"
)

// SubmitResponse is the HTTP response for POST /api/v1/analyses.
type SubmitResponse struct {
	SessionID string   `json:"session_id"`
	Token     string   `json:"token"`
	Status    string   `json:"status"`
	Samples   int      `json:"samples"`
	KOs       int      `json:"kos"`
	Encoding  string   `json:"encoding"`
	Warnings  []string `json:"warnings,omitempty"`
}

// FromSubmission converts an accepted submission to an HTTP response.
func FromSubmission(sub *analysis.Submission) *SubmitResponse {
	return &SubmitResponse{
		SessionID: sub.SessionID,
		Token:     sub.Token,
		Status:    string(analysis.StatusQueued),
		Samples:   sub.Samples,
		KOs:       sub.KOs,
		Encoding:  sub.Encoding,
		Warnings:  sub.Warnings,
	}
}

// ProgressResponse is the HTTP response for the progress endpoint. The
// tracker snapshot fields are flattened into the body.
type ProgressResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	progress.Snapshot
}

// FromProgress converts a progress view to an HTTP response.
func FromProgress(view *analysis.ProgressView) *ProgressResponse {
	return &ProgressResponse{
		SessionID: view.SessionID,
		Status:    string(view.Status),
		Snapshot:  view.Snapshot,
	}
}

// ResultResponse is the HTTP response for the result endpoint.
type ResultResponse struct {
	SessionID    string         `json:"session_id"`
	Status       string         `json:"status"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	CompletedAt  time.Time      `json:"completed_at"`
	Samples      int            `json:"samples"`
	KOs          int            `json:"kos"`
	Matches      int            `json:"matches"`
	TotalRecords int            `json:"total_records"`
	FromCache    bool           `json:"from_cache"`
	DurationMS   int64          `json:"duration_ms"`
	Warnings     []string       `json:"warnings,omitempty"`
	Primary      *tabular.Table `json:"primary"`
	Pathways     *tabular.Table `json:"pathways,omitempty"`
	Hadeg        *tabular.Table `json:"hadeg,omitempty"`
}

// FromSession converts a completed session to an HTTP response.
func FromSession(session *analysis.Session) *ResultResponse {
	result := session.Result
	return &ResultResponse{
		SessionID:    session.ID,
		Status:       string(session.Status),
		SubmittedAt:  session.CreatedAt,
		CompletedAt:  session.UpdatedAt,
		Samples:      session.Samples,
		KOs:          session.KOs,
		Matches:      result.Matches,
		TotalRecords: result.TotalRecords,
		FromCache:    result.FromCache,
		DurationMS:   result.Duration.Milliseconds(),
		Warnings:     session.Warnings,
		Primary:      result.Primary,
		Pathways:     result.Pathways,
		Hadeg:        result.Hadeg,
	}
}
