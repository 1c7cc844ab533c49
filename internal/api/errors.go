package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/uwillc/backroom/internal/directory"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// writeDomainError maps a directory error kind to an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch directory.Kind(err) {
	case directory.ErrNotFound:
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	case directory.ErrConflict:
		httpError(w, http.StatusConflict, "conflict", "%v", err)
	case directory.ErrInvalidInput:
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case directory.ErrUnavailable:
		slog.Error("backend unavailable", "error", err)
		httpError(w, http.StatusServiceUnavailable, "unavailable", "%v", err)
	default:
		slog.Error("unclassified error", "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
