package handler

import (
	"strings"

	dErrors "biorempp/pkg/domain-errors"
)

// SubmitRequest is the JSON request body for POST /api/v1/analyses. Clients
// that cannot post the raw file use this envelope instead.
type SubmitRequest struct {
	Content string `json:"content"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Content) == "" {
		return dErrors.New(dErrors.CodeEmptyContent, "content is required")
	}
	return nil
}

// ContentBytes returns the upload as raw bytes for the decoding step.
func (r *SubmitRequest) ContentBytes() []byte {
	return []byte(r.Content)
}
