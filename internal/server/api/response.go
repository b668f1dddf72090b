// Package api holds the REST handlers served under /api.
package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/goodtune/zentube/internal/notify"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string        `json:"error"`
	Message string        `json:"message,omitempty"`
	Code    int           `json:"code"`
	Toast   *notify.Toast `json:"toast,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// writeFailure writes an error response carrying a failure toast for the
// client to show.
func writeFailure(w http.ResponseWriter, statusCode int, title string, err error) {
	toast := notify.Failure(title, err)
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: err.Error(),
		Code:    statusCode,
		Toast:   &toast,
	})
}

// WriteJSON is writeJSON for the server package.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, statusCode, data)
}

// WriteError is writeError for the server package.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	writeError(w, statusCode, message)
}
