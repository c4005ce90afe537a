// Package audit records the auditable actions taken on analysis sessions:
// submissions, run outcomes, exports and admin operations. Records are
// emitted from domain logic through a Publisher so stores can fan out.
package audit

import "time"

// Action identifies what happened. Values are stable strings; stored
// records are queried by them.
type Action string

const (
	ActionSubmissionAccepted Action = "submission_accepted"
	ActionSubmissionRejected Action = "submission_rejected"
	ActionAnalysisCompleted  Action = "analysis_completed"
	ActionAnalysisFailed     Action = "analysis_failed"
	ActionResultExported     Action = "result_exported"
	ActionCacheCleared       Action = "cache_cleared"
	ActionTableReloaded      Action = "table_reloaded"
)

// Outcome values for Record.Outcome.
const (
	OutcomeOK       = "ok"
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Record captures one auditable action. Keep it transport-agnostic so
// stores and sinks can fan out.
type Record struct {
	Timestamp time.Time
	SessionID string
	Action    Action
	Outcome   string
	// Reason carries the failure detail; empty on success.
	Reason string
	// Counts describing the audited work. Zero when not applicable.
	Samples    int
	KOs        int
	Matches    int
	DurationMS int64
	// Request correlation and client forensics.
	RequestID string
	ClientIP  string
	Device    string
}
