// ABOUTME: HTTP handlers for login, OTP validation and product listing
// ABOUTME: Response bodies follow the auth-user and catalogue service envelope

package devserver

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/markalston/catalog-browser/internal/devserver/middleware"
)

type envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

type loginRequest struct {
	Email string `json:"email"`
}

type validateOTPRequest struct {
	UserValidationID string `json:"user_validation_id"`
	OTP              string `json:"otp"`
}

// Login starts an OTP session for a well-formed email address.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		middleware.WriteJSONError(w, "Email is required", http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		middleware.WriteJSONError(w, "Invalid email address", http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	s.pending.Set(id, pendingLogin{
		Email:     email,
		ExpiresAt: s.now().Add(s.cfg.PendingTTL),
	})
	s.log.Info("OTP session created", "email", email, "ttl", s.cfg.PendingTTL)

	writeJSON(w, http.StatusOK, envelope{
		Status:  true,
		Message: "OTP sent",
		Data:    map[string]string{"user_validation_id": id},
	})
}

// ValidateOTP exchanges a pending session id and the OTP for an access token.
func (s *Server) ValidateOTP(w http.ResponseWriter, r *http.Request) {
	var req validateOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserValidationID == "" || req.OTP == "" {
		middleware.WriteJSONError(w, "user_validation_id and otp are required", http.StatusBadRequest)
		return
	}

	s.otpMu.Lock()
	p, ok := s.pending.Get(req.UserValidationID)
	if !ok {
		s.otpMu.Unlock()
		middleware.WriteJSONError(w, "OTP session expired or not found", http.StatusUnauthorized)
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.OTP), []byte(s.cfg.OTP)) != 1 {
		p.Attempts++
		if p.Attempts >= MaxOTPAttempts {
			s.pending.Clear(req.UserValidationID)
			s.otpMu.Unlock()
			s.log.Warn("OTP session locked", "email", p.Email, "attempts", p.Attempts)
			middleware.WriteJSONError(w, "Too many invalid attempts, please log in again", http.StatusUnauthorized)
			return
		}
		s.pending.SetWithTTL(req.UserValidationID, p, p.ExpiresAt.Sub(s.now()))
		s.otpMu.Unlock()
		s.log.Warn("Invalid OTP", "email", p.Email, "attempts", p.Attempts)
		middleware.WriteJSONError(w, "Invalid OTP", http.StatusUnauthorized)
		return
	}

	// A pending session is redeemed at most once.
	p, ok = s.pending.Take(req.UserValidationID)
	s.otpMu.Unlock()
	if !ok {
		middleware.WriteJSONError(w, "OTP session expired or not found", http.StatusUnauthorized)
		return
	}

	token, err := s.signer.issue(p.Email)
	if err != nil {
		s.log.Error("Failed to issue token", "error", err)
		middleware.WriteJSONError(w, "Failed to issue access token", http.StatusInternalServerError)
		return
	}
	s.log.Info("OTP validated", "email", p.Email)

	writeJSON(w, http.StatusOK, envelope{
		Status:  true,
		Message: "OTP verified",
		Data: map[string]string{
			"access_token": token,
			"email":        p.Email,
		},
	})
}

// ProductList serves the catalog to holders of a valid access token.
func (s *Server) ProductList(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("Product list requested", "subject", middleware.Subject(r), "count", len(s.products))
	writeJSON(w, http.StatusOK, envelope{
		Status: true,
		Data:   s.products,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
