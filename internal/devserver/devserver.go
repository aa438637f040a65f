// ABOUTME: Local stand-in for the auth-user and catalogue backend services
// ABOUTME: Issues OTP sessions and signed access tokens and serves a sample catalog

package devserver

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/markalston/catalog-browser/internal/config"
	"github.com/markalston/catalog-browser/internal/devserver/cache"
	"github.com/markalston/catalog-browser/internal/devserver/middleware"
	"golang.org/x/sync/errgroup"
)

// API paths served.
const (
	LoginPath       = "/api/v1/auth-user/login"
	ValidateOTPPath = "/api/v1/auth-user/validate-otp"
	ProductListPath = "/api/v1/catalogue/product-list"
)

// MaxOTPAttempts is how many wrong codes a pending login tolerates before it is dropped.
const MaxOTPAttempts = 5

const shutdownTimeout = 5 * time.Second

// Route defines an API endpoint with its HTTP method and handler.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

type pendingLogin struct {
	Email     string
	Attempts  int
	ExpiresAt time.Time
}

// Server implements the three backend endpoints in memory.
type Server struct {
	cfg      config.DevServerConfig
	log      *slog.Logger
	pending  *cache.Cache[pendingLogin]
	signer   tokenSigner
	products []Product
	throttle *middleware.Throttle
	now      func() time.Time

	// otpMu serializes OTP checks so attempt counts are exact.
	otpMu sync.Mutex
}

// New creates a Server. An empty signing key is replaced by a random one, so tokens
// do not survive a restart.
func New(cfg config.DevServerConfig, log *slog.Logger) (*Server, error) {
	cfg.Sanitize()
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "devserver")

	key := []byte(cfg.SigningKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		log.Warn("No signing key configured, using an ephemeral key")
	}

	return &Server{
		cfg:      cfg,
		log:      log,
		pending:  cache.New[pendingLogin](cfg.PendingTTL),
		signer:   tokenSigner{key: key, ttl: cfg.TokenTTL, now: time.Now},
		products: SampleProducts(),
		throttle: middleware.NewThrottle(cfg.RateLimit, time.Minute, log),
		now:      time.Now,
	}, nil
}

// SetProducts replaces the served catalog. A nil catalog is served as an empty array.
func (s *Server) SetProducts(products []Product) {
	if products == nil {
		products = []Product{}
	}
	s.products = products
}

// Routes returns all API routes for registration.
func (s *Server) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: LoginPath, Handler: middleware.Throttled(s.throttle, middleware.EmailKey, "login")(s.Login)},
		{Method: http.MethodPost, Path: ValidateOTPPath, Handler: middleware.Throttled(s.throttle, middleware.PendingLoginKey, "OTP")(s.ValidateOTP)},
		{Method: http.MethodGet, Path: ProductListPath, Handler: middleware.RequireToken(s.signer.verify)(s.ProductList)},
	}
}

// Handler returns the routed, logged HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, route := range s.Routes() {
		mux.HandleFunc(route.Method+" "+route.Path, middleware.Chain(route.Handler, middleware.LogRequest(s.log)))
	}
	return mux
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully. Expired
// pending logins and spent attempt quotas are swept while serving.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("Server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return s.pending.Run(gctx, cache.DefaultSweepInterval)
	})

	if s.throttle != nil {
		g.Go(func() error {
			return s.throttle.Run(gctx)
		})
	}

	return g.Wait()
}
