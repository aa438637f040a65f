// ABOUTME: Tests for the auth-user and catalogue API client
// ABOUTME: Uses httptest to mock backend responses

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/markalston/catalog-browser/internal/apperr"
	"github.com/markalston/catalog-browser/internal/catalog"
)

func TestLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != LoginPath {
			t.Errorf("expected path %s, got %s", LoginPath, r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("language-id"); got != "1" {
			t.Errorf("expected language-id 1, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected JSON content type, got %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["email"] != "user@example.com" {
			t.Errorf("expected email user@example.com, got %q", body["email"])
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"user_validation_id": "pending-1"},
		})
	}))
	defer server.Close()

	c := New(server.URL)
	id, err := c.Login(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "pending-1" {
		t.Errorf("expected pending-1, got %s", id)
	}
}

func TestLogin_PendingIDFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "nested validation id", body: `{"data":{"user_validation_id":"v-1"}}`, want: "v-1"},
		{name: "top-level validation id", body: `{"user_validation_id":"v-2"}`, want: "v-2"},
		{name: "nested access token", body: `{"data":{"access_token":"a-1"}}`, want: "a-1"},
		{name: "numeric id", body: `{"data":{"user_validation_id":17}}`, want: "17"},
		{name: "null nested id falls back", body: `{"data":{"user_validation_id":null},"user_validation_id":"v-3"}`, want: "v-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			got, err := New(server.URL).Login(context.Background(), "user@example.com")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestLogin_MissingPendingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":true,"data":{}}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Login(context.Background(), "user@example.com")
	if kind := apperr.KindOf(err); kind != apperr.KindMalformedResponse {
		t.Errorf("expected malformed response, got %s (%v)", kind, err)
	}
}

func TestLogin_ServerRejected(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "message field", status: http.StatusBadRequest, body: `{"message":"User not registered"}`, wantMsg: "User not registered"},
		{name: "error field", status: http.StatusInternalServerError, body: `{"error":"internal error"}`, wantMsg: "internal error"},
		{name: "empty object", status: http.StatusUnauthorized, body: `{}`, wantMsg: "Login failed"},
		{name: "not json", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantMsg: "Login failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(server.URL).Login(context.Background(), "user@example.com")
			if kind := apperr.KindOf(err); kind != apperr.KindServerRejected {
				t.Fatalf("expected server rejected, got %s (%v)", kind, err)
			}
			if msg := apperr.UserMessage(err, ""); msg != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, msg)
			}
		})
	}
}

func TestLogin_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(url).Login(context.Background(), "user@example.com")
	if kind := apperr.KindOf(err); kind != apperr.KindNetworkFailure {
		t.Errorf("expected network failure, got %s (%v)", kind, err)
	}
}

func TestLogin_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(server.URL).Login(ctx, "user@example.com")
	if kind := apperr.KindOf(err); kind != apperr.KindNetworkFailure {
		t.Fatalf("expected network failure, got %s (%v)", kind, err)
	}
	if msg := apperr.UserMessage(err, ""); msg != "request canceled" {
		t.Errorf("expected 'request canceled', got %q", msg)
	}
}

func TestLogin_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := New(server.URL, WithTimeout(20*time.Millisecond))
	_, err := c.Login(context.Background(), "user@example.com")
	if msg := apperr.UserMessage(err, ""); msg != "request timed out" {
		t.Errorf("expected 'request timed out', got %q (%v)", msg, err)
	}
}

func TestValidateOTP_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ValidateOTPPath {
			t.Errorf("expected path %s, got %s", ValidateOTPPath, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["user_validation_id"] != "pending-1" {
			t.Errorf("expected user_validation_id pending-1, got %q", body["user_validation_id"])
		}
		if body["otp"] != "123456" {
			t.Errorf("expected otp 123456, got %q", body["otp"])
		}
		if got := r.Header.Get(LanguageIDHeader); got != "" {
			t.Errorf("expected no language-id on OTP validation, got %q", got)
		}
		w.Write([]byte(`{"data":{"access_token":"tok-abc"}}`))
	}))
	defer server.Close()

	token, err := New(server.URL).ValidateOTP(context.Background(), "pending-1", "123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-abc" {
		t.Errorf("expected tok-abc, got %s", token)
	}
}

func TestValidateOTP_MissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"access_token":""},"access_token":"top-level"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).ValidateOTP(context.Background(), "pending-1", "123456")
	if kind := apperr.KindOf(err); kind != apperr.KindMalformedResponse {
		t.Errorf("expected malformed response, got %s (%v)", kind, err)
	}
}

func TestValidateOTP_RejectedUsesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := New(server.URL).ValidateOTP(context.Background(), "pending-1", "000000")
	if msg := apperr.UserMessage(err, ""); msg != "OTP validation failed" {
		t.Errorf("expected fallback message, got %q", msg)
	}
}

func TestListProducts_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ProductListPath {
			t.Errorf("expected path %s, got %s", ProductListPath, r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get(AccessTokenHeader); got != "tok-abc" {
			t.Errorf("expected access-token tok-abc, got %q", got)
		}
		if got := r.Header.Get(LanguageIDHeader); got != "" {
			t.Errorf("expected no language-id on product list, got %q", got)
		}
		w.Write([]byte(`{"data":[
			{"product_id":1,"product_name":"Zeta","company_name":"Acme"},
			{"product_id":"2","product_name":"Alpha","product_category":"tools"}
		]}`))
	}))
	defer server.Close()

	products, err := New(server.URL).ListProducts(context.Background(), "tok-abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []catalog.Product{
		{ID: "1", Name: "Zeta", CompanyName: "Acme"},
		{ID: "2", Name: "Alpha", Category: "tools"},
	}
	if len(products) != len(want) {
		t.Fatalf("expected %d products, got %d", len(want), len(products))
	}
	for i := range want {
		if products[i] != want[i] {
			t.Errorf("product %d: expected %+v, got %+v", i, want[i], products[i])
		}
	}
}

func TestListProducts_EmptyData(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "empty data array", body: `{"status":true,"data":[]}`, want: 0},
		{name: "empty data wins over products", body: `{"data":[],"products":[{"product_id":1}]}`, want: 0},
		{name: "null data falls back to products", body: `{"data":null,"products":[{"product_id":1}]}`, want: 1},
		{name: "empty top-level products", body: `{"products":[]}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			products, err := New(server.URL).ListProducts(context.Background(), "tok-abc")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(products) != tt.want {
				t.Errorf("expected %d products, got %+v", tt.want, products)
			}
		})
	}
}

func TestListProducts_TopLevelArrayPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"products":[{"product_id":5,"product_name":"Five"}]}`))
	}))
	defer server.Close()

	products, err := New(server.URL).ListProducts(context.Background(), "tok-abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 || products[0].ID != "5" {
		t.Errorf("expected one product with id 5, got %+v", products)
	}
}

func TestListProducts_CustomPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"items":[{"product_id":9,"product_name":"Nine"}]}}`))
	}))
	defer server.Close()

	c := New(server.URL, WithPaths("", "", "result.items"))
	products, err := c.ListProducts(context.Background(), "tok-abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Nine" {
		t.Errorf("expected Nine, got %+v", products)
	}
}

func TestListProducts_NotAnArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"count":0}}`))
	}))
	defer server.Close()

	_, err := New(server.URL).ListProducts(context.Background(), "tok-abc")
	if kind := apperr.KindOf(err); kind != apperr.KindMalformedResponse {
		t.Errorf("expected malformed response, got %s (%v)", kind, err)
	}
}

func TestListProducts_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := New(server.URL).ListProducts(context.Background(), "tok-abc")
	if kind := apperr.KindOf(err); kind != apperr.KindMalformedResponse {
		t.Errorf("expected malformed response, got %s (%v)", kind, err)
	}
}

func TestListProducts_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"Token expired"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).ListProducts(context.Background(), "tok-abc")
	if msg := apperr.UserMessage(err, ""); msg != "Token expired" {
		t.Errorf("expected 'Token expired', got %q", msg)
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New("")
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("expected default base URL, got %s", c.BaseURL())
	}
	if c.httpClient.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", c.httpClient.Timeout)
	}

	c = New("http://api.example.com/", WithLanguageID("2"), WithTimeout(5*time.Second))
	if c.BaseURL() != "http://api.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", c.BaseURL())
	}
	if c.languageID != "2" {
		t.Errorf("expected language id 2, got %s", c.languageID)
	}
	if c.httpClient.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", c.httpClient.Timeout)
	}
}
