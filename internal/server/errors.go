package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hyperjump/hanashi/internal/knowledge"
	"github.com/hyperjump/hanashi/internal/llm"
	"github.com/hyperjump/hanashi/internal/models"
	"github.com/hyperjump/hanashi/internal/storage"
)

const (
	msgGenerationError = "AI generation error."
	msgInternalError   = "Internal server error."
)

// statusFor maps a service error to an HTTP status and client-facing message.
// Internal details never reach the client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrEmptyQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, knowledge.ErrEmptyDocument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, llm.ErrGeneration):
		return http.StatusInternalServerError, msgGenerationError
	default:
		return http.StatusInternalServerError, msgInternalError
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondErr(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	respondError(w, status, msg)
}
