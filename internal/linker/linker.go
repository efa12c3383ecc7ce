// Package linker walks a user through linking a marketplace account:
// identifier in, verification code in, cookies out. Each user has at most
// one live linking session, and each session exclusively owns at most one
// browser-backed automation driver.
package linker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/rs/zerolog"

	"github.com/akozyrev/marketlink/internal/automation"
	"github.com/akozyrev/marketlink/internal/notifier"
	"github.com/akozyrev/marketlink/internal/store"
	"github.com/akozyrev/marketlink/internal/types"
)

var (
	// ErrSessionAlreadyActive means the user already has a linking session
	// in progress; it must finish or time out before a new one starts.
	ErrSessionAlreadyActive = errors.New("linking session already active")

	// ErrNoActiveSession means the user has no linking session to act on.
	ErrNoActiveSession = errors.New("no active linking session")

	// ErrInvalidStep means the requested operation does not match the
	// session's current step.
	ErrInvalidStep = errors.New("operation not valid in current step")
)

// Session tracks one user's linking progress. The driver is owned
// exclusively by the session and released exactly once.
type Session struct {
	UserID      string
	Marketplace types.Marketplace
	Step        types.LoginStep
	Identifier  string
	UpdatedAt   time.Time

	// busy marks an operation in flight. take rejects a second submit for
	// the same session while it is set, and Sweep leaves busy sessions
	// alone, so only one goroutine ever holds the driver.
	busy bool

	driver  automation.Driver
	release sync.Once
}

// closeDriver releases the owned browser session. Guarded so every exit
// path can call it without double-closing.
func (s *Session) closeDriver() {
	s.release.Do(func() {
		if s.driver != nil {
			s.driver.Close()
		}
	})
}

// Registry is the per-user linking session map. It is the single writer
// for each key; Begin enforces the one-active-session-per-user invariant.
type Registry struct {
	drivers     automation.Factory
	store       store.Store
	notify      notifier.Notifier
	idleTimeout time.Duration
	log         zerolog.Logger

	// browserCtx bounds the lifetime of every launched browser. Drivers
	// must survive the request that launched them (the code arrives in a
	// later call), so launches never use a caller's context.
	browserCtx   context.Context
	stopBrowsers context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry. idleTimeout bounds how long an abandoned
// session may pin a browser before Sweep reclaims it.
func NewRegistry(drivers automation.Factory, st store.Store, notify notifier.Notifier, idleTimeout time.Duration, log zerolog.Logger) *Registry {
	browserCtx, stopBrowsers := context.WithCancel(context.Background())
	return &Registry{
		drivers:      drivers,
		store:        st,
		notify:       notify,
		idleTimeout:  idleTimeout,
		log:          log.With().Str("component", "linker").Logger(),
		browserCtx:   browserCtx,
		stopBrowsers: stopBrowsers,
		sessions:     make(map[string]*Session),
	}
}

// Begin starts a linking session for the user. Fails with
// ErrSessionAlreadyActive while a previous one is still live.
func (r *Registry) Begin(userID string, m types.Marketplace) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[userID]; ok {
		return ErrSessionAlreadyActive
	}
	r.sessions[userID] = &Session{
		UserID:      userID,
		Marketplace: m,
		Step:        types.StepAwaitingIdentifier,
		UpdatedAt:   time.Now(),
	}
	r.log.Info().Str("user_id", userID).Str("marketplace", m.String()).Msg("linking session started")
	r.notify.LoginStepChanged(userID, m, types.StepAwaitingIdentifier)
	return nil
}

// take returns the user's session if it is at the expected step and marks
// it busy. The session stays registered; callers must finish by advancing
// the step (clearing busy) or by destroy.
func (r *Registry) take(userID string, expect types.LoginStep) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok {
		return nil, ErrNoActiveSession
	}
	if s.busy || s.Step != expect {
		return nil, ErrInvalidStep
	}
	s.busy = true
	return s, nil
}

// destroy removes the session and releases its browser.
func (r *Registry) destroy(s *Session) {
	r.mu.Lock()
	delete(r.sessions, s.UserID)
	r.mu.Unlock()
	s.closeDriver()
}

// SubmitIdentifier launches a browser, submits the phone/email and waits
// for the verification-code form. On any failure the session is torn down
// and the user has to Begin again.
func (r *Registry) SubmitIdentifier(ctx context.Context, userID, identifier string) error {
	s, err := r.take(userID, types.StepAwaitingIdentifier)
	if err != nil {
		return err
	}

	driver, err := r.drivers(r.browserCtx, s.Marketplace)
	if err != nil {
		r.destroy(s)
		r.log.Error().Err(err).Str("user_id", userID).Msg("driver launch failed")
		r.notify.LoginFailed(userID, s.Marketplace, types.ReasonInternal)
		return err
	}

	r.mu.Lock()
	if r.sessions[userID] != s {
		// cancelled while the browser was launching
		r.mu.Unlock()
		driver.Close()
		return ErrNoActiveSession
	}
	s.driver = driver
	r.mu.Unlock()

	if err := driver.StartLogin(ctx, identifier); err != nil {
		reason := automation.ReasonFor(err)
		r.destroy(s)
		r.log.Warn().Err(err).Str("user_id", userID).Str("reason", string(reason)).Msg("login start failed")
		r.notify.LoginFailed(userID, s.Marketplace, reason)
		return err
	}

	r.mu.Lock()
	if r.sessions[userID] != s {
		r.mu.Unlock()
		s.closeDriver()
		return ErrNoActiveSession
	}
	s.Step = types.StepAwaitingCode
	s.Identifier = identifier
	s.UpdatedAt = time.Now()
	s.busy = false
	r.mu.Unlock()

	r.notify.LoginStepChanged(userID, s.Marketplace, types.StepAwaitingCode)
	return nil
}

// SubmitCode verifies the code and, on success, persists the exported
// cookie jar as the user's browser credentials for this marketplace. The
// session ends either way; a rejected code requires a fresh Begin.
func (r *Registry) SubmitCode(ctx context.Context, userID, code string) error {
	s, err := r.take(userID, types.StepAwaitingCode)
	if err != nil {
		return err
	}

	if err := s.driver.SubmitCode(ctx, code); err != nil {
		reason := automation.ReasonFor(err)
		r.destroy(s)
		r.log.Warn().Err(err).Str("user_id", userID).Str("reason", string(reason)).Msg("code verification failed")
		r.notify.LoginFailed(userID, s.Marketplace, reason)
		return err
	}

	cookies, err := s.driver.ExportCookies()
	if err != nil {
		r.destroy(s)
		r.log.Error().Err(err).Str("user_id", userID).Msg("cookie export failed")
		r.notify.LoginFailed(userID, s.Marketplace, types.ReasonInternal)
		return err
	}

	if err := r.saveCookies(userID, s.Marketplace, cookies); err != nil {
		r.destroy(s)
		r.log.Error().Err(err).Str("user_id", userID).Msg("credential save failed")
		r.notify.LoginFailed(userID, s.Marketplace, types.ReasonInternal)
		return err
	}

	r.destroy(s)
	r.log.Info().Str("user_id", userID).Str("marketplace", s.Marketplace.String()).Msg("account linked")
	r.notify.LoginStepChanged(userID, s.Marketplace, types.StepDone)
	return nil
}

// saveCookies merges the fresh cookie jar into any existing credentials so
// stored API keys survive an interactive re-login.
func (r *Registry) saveCookies(userID string, m types.Marketplace, cookies []*network.Cookie) error {
	creds, err := r.store.Credentials(userID, m)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		creds = &types.Credentials{}
	}
	creds.Cookies = cookies
	creds.SavedAt = time.Now()
	return r.store.SaveCredentials(userID, m, creds)
}

// Cancel tears down the user's session, if any.
func (r *Registry) Cancel(userID string) {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	if ok {
		delete(r.sessions, userID)
	}
	r.mu.Unlock()
	if ok {
		s.closeDriver()
		r.log.Info().Str("user_id", userID).Msg("linking session cancelled")
	}
}

// Active returns the user's current step, if a session exists.
func (r *Registry) Active(userID string) (types.LoginStep, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		return "", false
	}
	return s.Step, true
}

// Sweep destroys sessions idle beyond the timeout so abandoned flows
// cannot pin browsers forever. Intended to run on a schedule.
func (r *Registry) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-r.idleTimeout)

	r.mu.Lock()
	var expired []*Session
	for userID, s := range r.sessions {
		// a busy session is actively progressing, not abandoned
		if s.busy {
			continue
		}
		if s.UpdatedAt.Before(cutoff) {
			delete(r.sessions, userID)
			expired = append(expired, s)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.closeDriver()
		r.log.Info().Str("user_id", s.UserID).Msg("linking session timed out")
		r.notify.LoginFailed(s.UserID, s.Marketplace, types.ReasonTimeout)
	}
	return nil
}

// Shutdown cancels the browser launch context and releases every remaining
// session. Used on daemon exit.
func (r *Registry) Shutdown() {
	r.stopBrowsers()

	r.mu.Lock()
	remaining := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		remaining = append(remaining, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range remaining {
		s.closeDriver()
	}
}
