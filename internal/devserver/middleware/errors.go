// ABOUTME: JSON error response helper shared by middleware and handlers
// ABOUTME: Error bodies carry a message field the catalog client reads verbatim

package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrorBody is the JSON body of every non-success response.
type ErrorBody struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`

	// RetryAfter is set on 429 responses, in seconds.
	RetryAfter int `json:"retry_after,omitempty"`
}

// WriteJSONError writes an error response as JSON with the given status code.
func WriteJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorBody{
		Status:  false,
		Message: message,
		Code:    code,
	})
}

// WriteRetryError writes a 429 with a Retry-After header and the same delay in the body.
func WriteRetryError(w http.ResponseWriter, message string, seconds int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(ErrorBody{
		Status:     false,
		Message:    message,
		Code:       http.StatusTooManyRequests,
		RetryAfter: seconds,
	})
}
