package admin

import (
	"time"

	"biorempp/internal/audit"
	"biorempp/internal/reftable"
	"biorempp/pkg/platform/circuit"
)

// CacheClearResponse is the HTTP response for POST /admin/cache/clear.
type CacheClearResponse struct {
	ClearedEntries int       `json:"cleared_entries"`
	ClearedAt      time.Time `json:"cleared_at"`
}

// TablesResponse wraps the reference table listing.
type TablesResponse struct {
	Tables []reftable.TableStats `json:"tables"`
}

// TableReloadResponse is the HTTP response for a table reload.
type TableReloadResponse struct {
	Table      reftable.TableStats `json:"table"`
	ReloadedAt time.Time           `json:"reloaded_at"`
}

// BreakersResponse wraps the circuit breaker listing.
type BreakersResponse struct {
	Breakers []circuit.Snapshot `json:"breakers"`
}

// AuditRecordResponse is one audit entry in the admin listing.
type AuditRecordResponse struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id,omitempty"`
	Action     string    `json:"action"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Samples    int       `json:"samples,omitempty"`
	KOs        int       `json:"kos,omitempty"`
	Matches    int       `json:"matches,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	Device     string    `json:"device,omitempty"`
}

// AuditListResponse wraps the audit listing.
type AuditListResponse struct {
	Records []AuditRecordResponse `json:"records"`
	Total   int                   `json:"total"`
}

// FromAuditRecords converts audit records to the HTTP listing response.
func FromAuditRecords(records []audit.Record) AuditListResponse {
	out := AuditListResponse{Records: make([]AuditRecordResponse, 0, len(records))}
	for _, rec := range records {
		out.Records = append(out.Records, AuditRecordResponse{
			Timestamp:  rec.Timestamp,
			SessionID:  rec.SessionID,
			Action:     string(rec.Action),
			Outcome:    rec.Outcome,
			Reason:     rec.Reason,
			Samples:    rec.Samples,
			KOs:        rec.KOs,
			Matches:    rec.Matches,
			DurationMS: rec.DurationMS,
			RequestID:  rec.RequestID,
			ClientIP:   rec.ClientIP,
			Device:     rec.Device,
		})
	}
	out.Total = len(out.Records)
	return out
}
