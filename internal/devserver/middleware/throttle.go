// ABOUTME: Attempt throttling for the login and OTP endpoints
// ABOUTME: Counts attempts per email address or pending login and answers 429 once a quota is spent

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/markalston/catalog-browser/internal/devserver/cache"
)

// maxKeyedBody caps how much of a request body is read to find the attempt key.
const maxKeyedBody = 64 << 10

type attempts struct {
	count   int
	resetAt time.Time
}

// Throttle allows limit attempts per key in each period. The period starts at a key's
// first attempt.
type Throttle struct {
	mu     sync.Mutex
	seen   *cache.Cache[attempts]
	limit  int
	period time.Duration
	log    *slog.Logger
}

// NewThrottle returns nil when limit is zero or less; Throttled treats nil as disabled.
func NewThrottle(limit int, period time.Duration, log *slog.Logger) *Throttle {
	if limit <= 0 {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	return &Throttle{
		seen:   cache.New[attempts](period),
		limit:  limit,
		period: period,
		log:    log,
	}
}

// Attempt records an attempt for key. Once the quota is spent it returns false and
// the time left until the key may try again.
func (t *Throttle) Attempt(key string) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	a, ok := t.seen.Get(key)
	if !ok {
		t.seen.Set(key, attempts{count: 1, resetAt: now.Add(t.period)})
		return true, 0
	}
	if a.count >= t.limit {
		return false, a.resetAt.Sub(now)
	}
	a.count++
	t.seen.SetWithTTL(key, a, a.resetAt.Sub(now))
	return true, 0
}

// Run drops spent periods until ctx is done.
func (t *Throttle) Run(ctx context.Context) error {
	return t.seen.Run(ctx, t.period)
}

// AttemptKey names whose attempt a request is. An empty key is not throttled.
type AttemptKey func(r *http.Request) string

// EmailKey keys login attempts by the normalized "email" of the JSON body.
func EmailKey(r *http.Request) string {
	email := strings.ToLower(bodyField(r, "email"))
	if email == "" {
		return ""
	}
	return "email:" + email
}

// PendingLoginKey keys OTP attempts by the "user_validation_id" of the JSON body.
func PendingLoginKey(r *http.Request) string {
	id := bodyField(r, "user_validation_id")
	if id == "" {
		return ""
	}
	return "pending:" + id
}

// bodyField reads a string field from a JSON body and puts the body back for the handler.
func bodyField(r *http.Request, name string) string {
	if r.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxKeyedBody))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return ""
	}
	v, _ := fields[name].(string)
	return strings.TrimSpace(v)
}

// Throttled rejects requests whose key has spent its quota. what names the attempt in
// the error message, e.g. "login" or "OTP".
func Throttled(t *Throttle, key AttemptKey, what string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if t == nil || key == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next(w, r)
				return
			}

			allowed, wait := t.Attempt(k)
			if allowed {
				next(w, r)
				return
			}

			seconds := max(int(math.Ceil(wait.Seconds())), 1)
			t.log.Warn("Attempts throttled", "attempt", what, "key", k, "retry_after", seconds)
			WriteRetryError(w, fmt.Sprintf("Too many %s attempts, try again in %d seconds", what, seconds), seconds)
		}
	}
}
