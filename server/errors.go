package server

import (
	"encoding/json"
	"net/http"

	"github.com/teranos/floorcheck/errors"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP status codes. Conflict carries the
// fixed message the kiosk frontend matches on.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	var msg string

	switch {
	case errors.IsAlreadyProcessed(err):
		status = http.StatusConflict
		msg = "task already processed"
	case errors.IsNotFound(err):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.IsInvalidRequest(err):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, errors.ErrUnauthenticated):
		status = http.StatusUnauthorized
		msg = "not authenticated"
	case errors.Is(err, errors.ErrConflict):
		status = http.StatusConflict
		msg = err.Error()
	default:
		status = http.StatusInternalServerError
		msg = "internal error"
		s.logger.Errorw("Request failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warnw("Failed to encode response", "error", err)
	}
}
