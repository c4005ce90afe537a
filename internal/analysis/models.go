// Package analysis coordinates the lifecycle of a submitted sample file:
// decoding, parsing, background enrichment through the merge pipeline, and
// retrieval of progress and results.
package analysis

import (
	"time"

	"biorempp/internal/pipeline/models"
	"biorempp/internal/progress"
)

// Status describes where a session is in its lifecycle.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the session has finished, successfully or not.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Session is the server-side record of one submitted analysis. The result is
// attached once the pipeline finishes; until then only the parse summary is
// populated.
type Session struct {
	ID        string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time

	Encoding string
	Samples  int
	KOs      int
	Warnings []string

	Result *models.MergeResult

	ErrorCode    string
	ErrorMessage string
}

// Submission is returned to the client when an upload is accepted. The token
// authorizes subsequent progress, result and export reads for this session.
type Submission struct {
	SessionID string
	Token     string
	Samples   int
	KOs       int
	Encoding  string
	Warnings  []string
}

// ProgressView combines the stored session status with the live tracker
// snapshot for the progress endpoint.
type ProgressView struct {
	SessionID string
	Status    Status
	Snapshot  progress.Snapshot
}
