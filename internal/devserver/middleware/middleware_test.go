// ABOUTME: Tests for dev server middleware
// ABOUTME: Covers path sanitization, request IDs, chaining, attempt throttling and token checks

package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "newline injection", input: "/api/v1/login\nAdmin access granted", want: "/api/v1/loginAdmin access granted"},
		{name: "carriage return", input: "/api/test\rmalicious", want: "/api/testmalicious"},
		{name: "null byte", input: "/api/test\x00value", want: "/api/testvalue"},
		{name: "escape sequence", input: "/api/test\x1b[31mred", want: "/api/test[31mred"},
		{name: "DEL character", input: "/api/test\x7fvalue", want: "/api/testvalue"},
		{name: "normal path", input: "/api/v1/catalogue/product-list", want: "/api/v1/catalogue/product-list"},
		{name: "encoded chars", input: "/api/v1/apps%2Ftest", want: "/api/v1/apps%2Ftest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizePath(tt.input); got != tt.want {
				t.Errorf("sanitizePath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLogRequest_SetsRequestIDHeader(t *testing.T) {
	handler := LogRequest(nil)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	requestID := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(requestID); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID: %v", requestID, err)
	}
}

func TestLogRequest_CapturesStatusCode(t *testing.T) {
	handler := LogRequest(nil)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/test", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.HandlerFunc) http.HandlerFunc {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next(w, r)
			}
		}
	}

	h := Chain(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}, mw("first"), nil, mw("second"))

	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"first", "second", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONError(rec, "Invalid OTP", http.StatusUnauthorized)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", rec.Code)
	}
	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "Invalid OTP" || body.Code != http.StatusUnauthorized {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestThrottle_RejectsOverLimit(t *testing.T) {
	th := NewThrottle(2, time.Minute, nil)

	th.Attempt("email:user@example.com")
	th.Attempt("email:user@example.com")

	allowed, wait := th.Attempt("email:user@example.com")
	if allowed {
		t.Fatal("Third attempt should be rejected")
	}
	if wait <= 0 || wait > time.Minute {
		t.Errorf("Expected wait between 0 and 60s, got %v", wait)
	}

	if ok, _ := th.Attempt("email:other@example.com"); !ok {
		t.Error("Another address should have its own quota")
	}
}

func TestThrottle_PeriodReset(t *testing.T) {
	th := NewThrottle(1, 50*time.Millisecond, nil)

	th.Attempt("pending:abc")
	if allowed, _ := th.Attempt("pending:abc"); allowed {
		t.Fatal("Second attempt should be rejected")
	}

	time.Sleep(60 * time.Millisecond)

	if allowed, _ := th.Attempt("pending:abc"); !allowed {
		t.Fatal("Attempt after the period should be allowed")
	}
}

func TestThrottle_ConcurrentAttempts(t *testing.T) {
	th := NewThrottle(100, time.Minute, nil)

	var wg sync.WaitGroup
	allowed := make([]bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			allowed[idx], _ = th.Attempt("email:user@example.com")
		}(i)
	}
	wg.Wait()

	count := 0
	for _, a := range allowed {
		if a {
			count++
		}
	}
	if count != 100 {
		t.Errorf("Expected exactly 100 allowed attempts, got %d", count)
	}
}

func TestNewThrottle_ZeroDisables(t *testing.T) {
	if th := NewThrottle(0, time.Minute, nil); th != nil {
		t.Fatal("Expected nil throttle for zero limit")
	}

	h := Throttled(nil, EmailKey, "login")(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@example.com"}`)))
	if rec.Code != http.StatusNoContent {
		t.Errorf("Status = %d, want 204", rec.Code)
	}
}

func TestThrottled_KeysLoginByEmail(t *testing.T) {
	var seen []string
	h := Throttled(NewThrottle(1, time.Minute, nil), EmailKey, "login")(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("handler could not read body: %v", err)
		}
		seen = append(seen, body["email"])
		w.WriteHeader(http.StatusOK)
	})

	login := func(email string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth-user/login", strings.NewReader(`{"email":"`+email+`"}`)))
		return rec
	}

	if rec := login("user@example.com"); rec.Code != http.StatusOK {
		t.Fatalf("first Status = %d, want 200", rec.Code)
	}
	rec := login(" USER@example.com ")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second Status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}

	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(body.Message, "Too many login attempts, try again in ") {
		t.Errorf("Message = %q", body.Message)
	}
	if body.RetryAfter < 1 || body.Code != http.StatusTooManyRequests {
		t.Errorf("unexpected body %+v", body)
	}

	if rec := login("other@example.com"); rec.Code != http.StatusOK {
		t.Errorf("other address Status = %d, want 200", rec.Code)
	}
	if len(seen) != 2 || seen[1] != "other@example.com" {
		t.Errorf("handler saw %v", seen)
	}
}

func TestAttemptKeys(t *testing.T) {
	tests := []struct {
		name string
		key  AttemptKey
		body string
		want string
	}{
		{name: "email normalized", key: EmailKey, body: `{"email":" User@Example.com "}`, want: "email:user@example.com"},
		{name: "email missing", key: EmailKey, body: `{}`, want: ""},
		{name: "email not json", key: EmailKey, body: `nope`, want: ""},
		{name: "pending id", key: PendingLoginKey, body: `{"user_validation_id":"Abc-1","otp":"1"}`, want: "pending:Abc-1"},
		{name: "pending id not a string", key: PendingLoginKey, body: `{"user_validation_id":7}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if got := tt.key(req); got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
			rest, _ := io.ReadAll(req.Body)
			if string(rest) != tt.body {
				t.Errorf("body after keying = %q, want %q", rest, tt.body)
			}
		})
	}
}

func TestRequireToken(t *testing.T) {
	verify := func(token string) (string, error) {
		if token == "good" {
			return "user@example.com", nil
		}
		return "", errors.New("bad signature")
	}

	var subject string
	h := RequireToken(verify)(func(w http.ResponseWriter, r *http.Request) {
		subject = Subject(r)
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "missing", token: "", status: http.StatusUnauthorized},
		{name: "invalid", token: "forged", status: http.StatusUnauthorized},
		{name: "valid", token: "good", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/catalogue/product-list", nil)
			if tt.token != "" {
				req.Header.Set(AccessTokenHeader, tt.token)
			}
			rec := httptest.NewRecorder()
			h(rec, req)
			if rec.Code != tt.status {
				t.Errorf("Status = %d, want %d", rec.Code, tt.status)
			}
		})
	}

	if subject != "user@example.com" {
		t.Errorf("Subject = %q, want user@example.com", subject)
	}
}
