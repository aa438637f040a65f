// ABOUTME: HTTP client for the auth-user and catalogue APIs
// ABOUTME: Classifies transport and server failures and extracts fields with JMESPath

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/markalston/catalog-browser/internal/apperr"
	"github.com/markalston/catalog-browser/internal/catalog"
	"github.com/markalston/catalog-browser/internal/session"
)

// API paths.
const (
	LoginPath       = "/api/v1/auth-user/login"
	ValidateOTPPath = "/api/v1/auth-user/validate-otp"
	ProductListPath = "/api/v1/catalogue/product-list"
)

// Defaults for the options below.
const (
	DefaultBaseURL        = "http://localhost:8001"
	DefaultTimeout        = 30 * time.Second
	DefaultLanguageID     = "1"
	DefaultPendingIDPath  = "not_null(data.user_validation_id, user_validation_id, data.access_token, access_token)"
	DefaultCredentialPath = "not_null(data.access_token, access_token)"
	DefaultProductsPath   = "not_null(data, products)"
)

// The default expressions use not_null rather than ||, which treats an empty
// array or string as missing.

// Request headers. language-id is sent on login only.
const (
	AccessTokenHeader = "access-token"
	LanguageIDHeader  = "language-id"
)

// Client is the API client for the login, OTP and catalog endpoints
type Client struct {
	baseURL        string
	httpClient     *http.Client
	languageID     string
	pendingIDPath  string
	credentialPath string
	productsPath   string
	log            *slog.Logger
}

var (
	_ session.Authenticator = (*Client)(nil)
	_ catalog.Source        = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLanguageID sets the language-id header value sent on login.
func WithLanguageID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.languageID = id
		}
	}
}

// WithPaths overrides the JMESPath expressions used to read the pending-session id,
// the access credential and the product list. Empty values keep the defaults.
func WithPaths(pendingID, credential, products string) Option {
	return func(c *Client) {
		if pendingID != "" {
			c.pendingIDPath = pendingID
		}
		if credential != "" {
			c.credentialPath = credential
		}
		if products != "" {
			c.productsPath = products
		}
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a new API client with the given base URL
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		languageID:     DefaultLanguageID,
		pendingIDPath:  DefaultPendingIDPath,
		credentialPath: DefaultCredentialPath,
		productsPath:   DefaultProductsPath,
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "client")
	return c
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ErrorResponse is the body of a non-success response
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

type loginRequest struct {
	Email string `json:"email"`
}

type validateOTPRequest struct {
	UserValidationID string `json:"user_validation_id"`
	OTP              string `json:"otp"`
}

// Login calls POST /api/v1/auth-user/login and returns the pending-session id
func (c *Client) Login(ctx context.Context, email string) (string, error) {
	header := http.Header{}
	header.Set(LanguageIDHeader, c.languageID)
	data, err := c.call(ctx, http.MethodPost, LoginPath, loginRequest{Email: email}, header, session.MsgLoginFailed)
	if err != nil {
		return "", err
	}
	return extractString(data, c.pendingIDPath, "validation id")
}

// ValidateOTP calls POST /api/v1/auth-user/validate-otp and returns the access credential
func (c *Client) ValidateOTP(ctx context.Context, pendingID, code string) (string, error) {
	body := validateOTPRequest{UserValidationID: pendingID, OTP: code}
	data, err := c.call(ctx, http.MethodPost, ValidateOTPPath, body, nil, session.MsgOTPFailed)
	if err != nil {
		return "", err
	}
	return extractString(data, c.credentialPath, "access token")
}

// ListProducts calls GET /api/v1/catalogue/product-list with the access credential
func (c *Client) ListProducts(ctx context.Context, credential string) ([]catalog.Product, error) {
	header := http.Header{}
	if credential != "" {
		header.Set(AccessTokenHeader, credential)
	}
	data, err := c.call(ctx, http.MethodGet, ProductListPath, nil, header, catalog.MsgFetchFailed)
	if err != nil {
		return nil, err
	}

	raw, err := jmespath.Search(c.productsPath, data)
	if err != nil {
		return nil, apperr.MalformedResponse("invalid product list expression", err)
	}
	if _, ok := raw.([]any); !ok {
		return nil, apperr.MalformedResponse("Product list response did not include a product array", nil)
	}

	// Round-trip through JSON so Product's decoding rules apply to the selected array.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, apperr.MalformedResponse("invalid response from backend", err)
	}
	var products []catalog.Product
	if err := json.Unmarshal(encoded, &products); err != nil {
		return nil, apperr.MalformedResponse("invalid product in response", err)
	}
	return products, nil
}

// call issues one request and returns the decoded JSON body of a 2xx response.
func (c *Client) call(ctx context.Context, method, path string, payload any, header http.Header, fallback string) (any, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal input: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("Request failed", "method", method, "path", path, "error", err)
		return nil, c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	c.log.Debug("Request completed", "method", method, "path", path, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.handleErrorResponse(resp, fallback)
	}

	var data any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, apperr.MalformedResponse("invalid response from backend", err)
	}
	return data, nil
}

// handleRequestError converts transport errors to user-friendly messages
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return apperr.NetworkFailure("request canceled", err)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.NetworkFailure("request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.NetworkFailure("request timed out", err)
	}
	return apperr.NetworkFailure(fmt.Sprintf("cannot connect to backend at %s", c.baseURL), err)
}

// handleErrorResponse parses API error responses
func (c *Client) handleErrorResponse(resp *http.Response, fallback string) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		c.log.Debug("Undecodable error response", "status", resp.StatusCode, "error", err)
		return apperr.ServerRejected(fallback)
	}
	switch {
	case errResp.Message != "":
		return apperr.ServerRejected(errResp.Message)
	case errResp.Error != "":
		return apperr.ServerRejected(errResp.Error)
	default:
		return apperr.ServerRejected(fallback)
	}
}

// extractString evaluates expr against data and returns a non-empty string result.
// Numeric results are accepted in their shortest textual form.
func extractString(data any, expr, what string) (string, error) {
	v, err := jmespath.Search(expr, data)
	if err != nil {
		return "", apperr.MalformedResponse("invalid "+what+" expression", err)
	}
	switch val := v.(type) {
	case string:
		if val != "" {
			return val, nil
		}
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	}
	return "", apperr.MalformedResponse("Response did not include a "+what, nil)
}
