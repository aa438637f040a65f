// ABOUTME: Access-token middleware for the catalogue endpoints
// ABOUTME: Verifies the access-token header and stores the token subject in the request context

package middleware

import (
	"context"
	"log/slog"
	"net/http"
)

// AccessTokenHeader is the request header carrying the credential.
const AccessTokenHeader = "access-token"

// VerifyFunc validates a token and returns its subject.
type VerifyFunc func(token string) (string, error)

type contextKey string

const subjectKey contextKey = "subject"

// RequireToken rejects requests whose access-token header is missing or fails verify.
func RequireToken(verify VerifyFunc) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(AccessTokenHeader)
			if token == "" {
				WriteJSONError(w, "Access token is required", http.StatusUnauthorized)
				return
			}

			subject, err := verify(token)
			if err != nil {
				slog.Debug("Access token rejected", "error", err)
				WriteJSONError(w, "Invalid or expired access token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next(w, r.WithContext(ctx))
		}
	}
}

// Subject returns the token subject stored by RequireToken.
func Subject(r *http.Request) string {
	s, _ := r.Context().Value(subjectKey).(string)
	return s
}
