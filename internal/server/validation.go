package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tunedeck/internal/catalog"

	"github.com/sirupsen/logrus"
)

// maxFilenameLength matches the common filesystem limit on a name
const maxFilenameLength = 255

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// respondJSON writes v as a JSON body with the given status
func (ms *MusicServer) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ms.logger.WithError(err).Warn("Failed to write JSON response")
	}
}

// respondWithValidationError sends a structured validation error response
func (ms *MusicServer) respondWithValidationError(w http.ResponseWriter, r *http.Request, errors []ValidationError) {
	ms.logger.WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"errors":     errors,
		"request_id": requestIDFromContext(r.Context()),
	}).Warn("Validation failed")

	ms.respondJSON(w, http.StatusBadRequest, ValidationResult{
		Valid:  false,
		Errors: errors,
	})
}

// respondWithError sends a structured error response
func (ms *MusicServer) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := ms.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
		"request_id":  requestIDFromContext(r.Context()),
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	ms.respondJSON(w, statusCode, map[string]interface{}{
		"error":   message,
		"code":    statusCode,
		"success": false,
	})
}

// validateFilename checks the filename query parameter of the per-song endpoints
func (ms *MusicServer) validateFilename(filename string) *ValidationError {
	if filename == "" {
		return &ValidationError{
			Field:   "filename",
			Message: "Filename is required",
			Code:    "MISSING_FILENAME",
		}
	}

	if len(filename) > maxFilenameLength {
		return &ValidationError{
			Field:   "filename",
			Message: fmt.Sprintf("Filename too long (max %d characters)", maxFilenameLength),
			Code:    "FILENAME_TOO_LONG",
		}
	}

	if !catalog.ValidFilename(filename) {
		return &ValidationError{
			Field:   "filename",
			Message: "Filename must be a plain file name inside the music directory",
			Code:    "PATH_TRAVERSAL_DENIED",
		}
	}

	if !ms.catalog.IsAudioFile(filename) {
		return &ValidationError{
			Field:   "filename",
			Message: "Unsupported file type",
			Code:    "UNSUPPORTED_FILE_TYPE",
		}
	}

	return nil
}
