// ABOUTME: Session controller driving the email + OTP login state machine
// ABOUTME: Owns the access credential and exposes its state as immutable snapshots

package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/markalston/catalog-browser/internal/apperr"
	"golang.org/x/sync/semaphore"
)

// Phase is the authentication state of a Controller.
type Phase int

const (
	PhaseUnauthenticated Phase = iota
	PhaseOTPPending
	PhaseAuthenticated
)

// String returns the string representation of a Phase
func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseOTPPending:
		return "otp_pending"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Fallback messages shown when a failure carries no reason of its own.
const (
	MsgLoginFailed = "Login failed"
	MsgOTPFailed   = "OTP validation failed"
)

// ErrSuperseded is returned when a logout or OTP cancel happened while the call was in flight.
// The call's outcome is discarded.
var ErrSuperseded = errors.New("session: attempt superseded")

// Authenticator performs the two remote login steps.
type Authenticator interface {
	// Login starts a login for email and returns the pending-session id used by ValidateOTP.
	Login(ctx context.Context, email string) (string, error)
	// ValidateOTP exchanges the pending-session id and code for an access credential.
	ValidateOTP(ctx context.Context, pendingID, code string) (string, error)
}

// Snapshot is a point-in-time copy of a Controller's state.
// Email is set while OTP is pending and kept once authenticated.
// Credential is non-empty only in PhaseAuthenticated.
type Snapshot struct {
	Phase      Phase
	Email      string
	Credential string
	Err        error
	ErrMessage string
}

// Authenticated reports whether the snapshot holds a credential.
func (s Snapshot) Authenticated() bool {
	return s.Phase == PhaseAuthenticated && s.Credential != ""
}

type state struct {
	phase      Phase
	email      string
	pendingID  string
	credential string
	err        error
	errMessage string
}

// Controller is the session state machine. Login and OTP submissions are serialized
// per instance; Snapshot may be called from any goroutine.
type Controller struct {
	auth Authenticator
	log  *slog.Logger

	calls *semaphore.Weighted

	mu    sync.RWMutex
	state state
	epoch uint64
}

// New creates an unauthenticated Controller.
func New(auth Authenticator, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		auth:  auth,
		log:   log.With("component", "session"),
		calls: semaphore.NewWeighted(1),
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Phase:      c.state.phase,
		Email:      c.state.email,
		Credential: c.state.credential,
		Err:        c.state.err,
		ErrMessage: c.state.errMessage,
	}
}

// Credential returns the access credential and whether one is held.
func (c *Controller) Credential() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.phase != PhaseAuthenticated || c.state.credential == "" {
		return "", false
	}
	return c.state.credential, true
}

// SubmitLogin requests an OTP for email.
//
// On success the controller moves to PhaseOTPPending(email). A failure leaves
// Unauthenticated and OTPPending unchanged; from Authenticated a failed
// re-authentication drops the credential and returns to Unauthenticated.
func (c *Controller) SubmitLogin(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return c.fail(apperr.InvalidInput("Email is required"), MsgLoginFailed)
	}

	release, err := c.acquire(ctx)
	if err != nil {
		return c.fail(err, MsgLoginFailed)
	}
	defer release()

	epoch, from := c.begin()
	c.log.Debug("Login submitted", "from", from.String())

	pendingID, err := c.auth.Login(ctx, email)
	if err == nil && pendingID == "" {
		err = apperr.MalformedResponse("Login response did not include a validation id", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		c.log.Info("Login outcome discarded", "reason", "superseded")
		return ErrSuperseded
	}

	if err != nil {
		if c.state.phase == PhaseAuthenticated {
			c.state = state{}
		}
		c.setErrLocked(err, MsgLoginFailed)
		c.log.Warn("Login failed", "kind", apperr.KindOf(err), "phase", c.state.phase.String(), "error", err)
		return err
	}

	c.state = state{
		phase:     PhaseOTPPending,
		email:     email,
		pendingID: pendingID,
	}
	c.log.Info("Login accepted, awaiting OTP", "email", email)
	return nil
}

// SubmitOTP validates code for the pending login.
//
// On success the controller moves to PhaseAuthenticated with the returned credential.
// A success response without a credential is a MalformedResponse. Failures keep the
// controller in PhaseOTPPending so the user may retry.
func (c *Controller) SubmitOTP(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return c.fail(apperr.InvalidInput("OTP is required"), MsgOTPFailed)
	}

	release, err := c.acquire(ctx)
	if err != nil {
		return c.fail(err, MsgOTPFailed)
	}
	defer release()

	c.mu.RLock()
	phase, pendingID, epoch := c.state.phase, c.state.pendingID, c.epoch
	c.mu.RUnlock()

	if phase != PhaseOTPPending {
		return c.fail(apperr.PreconditionFailed("No login is awaiting an OTP"), MsgOTPFailed)
	}

	credential, err := c.auth.ValidateOTP(ctx, pendingID, code)
	if err == nil && credential == "" {
		err = apperr.MalformedResponse("OTP validation response did not include an access token", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		c.log.Info("OTP outcome discarded", "reason", "superseded")
		return ErrSuperseded
	}

	if err != nil {
		c.setErrLocked(err, MsgOTPFailed)
		c.log.Warn("OTP validation failed", "kind", apperr.KindOf(err), "error", err)
		return err
	}

	c.state = state{
		phase:      PhaseAuthenticated,
		email:      c.state.email,
		credential: credential,
	}
	c.log.Info("Authenticated", "email", c.state.email)
	return nil
}

// CancelOTP abandons a pending login and returns to PhaseUnauthenticated.
func (c *Controller) CancelOTP() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.phase != PhaseOTPPending {
		err := apperr.PreconditionFailed("No login is awaiting an OTP")
		c.setErrLocked(err, "")
		return err
	}
	c.epoch++
	c.state = state{}
	c.log.Info("OTP entry cancelled")
	return nil
}

// Logout drops any credential or pending login and returns to PhaseUnauthenticated.
// Outcomes of calls still in flight are discarded.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	from := c.state.phase
	c.state = state{}
	c.log.Info("Logged out", "from", from.String())
}

// acquire serializes submissions; a cancelled wait is reported as a network failure
// since no call was made.
func (c *Controller) acquire(ctx context.Context) (func(), error) {
	if err := c.calls.Acquire(ctx, 1); err != nil {
		return nil, apperr.NetworkFailure("request canceled", err)
	}
	return func() { c.calls.Release(1) }, nil
}

func (c *Controller) begin() (uint64, Phase) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch, c.state.phase
}

func (c *Controller) fail(err error, fallback string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setErrLocked(err, fallback)
	c.log.Warn("Session operation rejected", "kind", apperr.KindOf(err), "error", err)
	return err
}

func (c *Controller) setErrLocked(err error, fallback string) {
	c.state.err = err
	c.state.errMessage = apperr.UserMessage(err, fallback)
}
