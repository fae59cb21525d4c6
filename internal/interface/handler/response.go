package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"flight-tracker-service/internal/domain/repository"
	"flight-tracker-service/pkg/logger"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// envelope is the JSON body of every API response
type envelope map[string]interface{}

func respondJSON(w http.ResponseWriter, status int, body envelope) {
	body["success"] = true
	writeJSON(w, status, body)
}

// respondError maps an error kind to its HTTP status. Unclassified errors
// are logged and reported without detail.
func respondError(w http.ResponseWriter, log logger.Logger, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
		message = "internal server error"
	}
	writeJSON(w, status, envelope{"success": false, "error": message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, repository.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON strictly decodes a request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", repository.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", repository.ErrValidation, err)
	}
	return nil
}
