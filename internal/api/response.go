package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/triagekit/triagekit/internal/errors"
	"github.com/triagekit/triagekit/internal/logging"
)

// ErrorResponse is the stable error envelope returned by every endpoint.
type ErrorResponse struct {
	CorrelationID string            `json:"correlationId"`
	ErrorCode     string            `json:"errorCode"`
	Message       string            `json:"message"`
	Timestamp     time.Time         `json:"timestamp"`
	Details       map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]string) {
	writeJSON(w, status, ErrorResponse{
		CorrelationID: logging.RequestID(r.Context()),
		ErrorCode:     code,
		Message:       message,
		Timestamp:     time.Now().UTC(),
		Details:       details,
	})
}

// writePipelineError maps an error chain onto the HTTP contract: parse and
// validation failures are the caller's fault (400), everything else is a
// pipeline failure (500).
func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errors.KindOf(err)
	switch kind {
	case errors.KindParse, errors.KindValidation:
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), map[string]string{
			"kind": string(kind),
		})
	default:
		writeError(w, r, http.StatusInternalServerError, "PIPELINE_ERROR", err.Error(), map[string]string{
			"kind": string(kind),
		})
	}
}
