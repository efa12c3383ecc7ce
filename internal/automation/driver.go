// Package automation drives the marketplace login and checkout UIs through
// a browser session. The flow shape is shared; everything marketplace
// specific lives in the per-marketplace profiles.
package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/rs/zerolog"

	"github.com/akozyrev/marketlink/internal/browser"
	"github.com/akozyrev/marketlink/internal/types"
)

// Driver is the capability a linking session or order execution acquires.
// A Driver owns its browser session exclusively; Close releases it and is
// idempotent.
type Driver interface {
	// StartLogin submits the identifier and waits for one of the known
	// outcomes. nil means the verification-code form is showing.
	StartLogin(ctx context.Context, identifier string) error

	// SubmitCode enters the verification code and decides login success
	// via the marketplace's signal set.
	SubmitCode(ctx context.Context, code string) error

	// ExportCookies returns the browser's cookie jar for persistence.
	ExportCookies() ([]*network.Cookie, error)

	// ImportCookies restores a previously saved jar so checkout can skip
	// interactive login.
	ImportCookies(cookies []*network.Cookie) error

	// Checkout adds the cart's items and places the order, returning the
	// marketplace's own order number.
	Checkout(ctx context.Context, cart *types.Cart) (string, error)

	// Close releases the underlying browser session.
	Close()
}

// Factory creates a Driver for a marketplace. The context bounds the
// browser session's lifetime.
type Factory func(ctx context.Context, m types.Marketplace) (Driver, error)

// Config holds the time budgets for the flows. Every blocking point is
// bounded by one of these, so no login or checkout can hang indefinitely.
type Config struct {
	Headless       bool
	ProfileDir     string
	DiagnosticsDir string

	NavTimeout      time.Duration // per page navigation
	SelectorBudget  time.Duration // total budget to resolve one element
	PerCandidateCap time.Duration // cap per selector candidate
	FormProbeBudget time.Duration // login-form detection per entry URL
	LoginBudget     time.Duration // outcome race after a submit
	CheckoutBudget  time.Duration // order confirmation wait
}

// DefaultConfig returns budgets that tolerate slow marketplace pages
// without letting an abandoned flow pin a browser for long.
func DefaultConfig() Config {
	return Config{
		Headless:        true,
		NavTimeout:      30 * time.Second,
		SelectorBudget:  10 * time.Second,
		PerCandidateCap: 3 * time.Second,
		FormProbeBudget: 8 * time.Second,
		LoginBudget:     45 * time.Second,
		CheckoutBudget:  60 * time.Second,
	}
}

// NewFactory returns a Factory that launches a stealth browser session per
// driver.
func NewFactory(cfg Config, log zerolog.Logger) Factory {
	return func(ctx context.Context, m types.Marketplace) (Driver, error) {
		prof, err := profileFor(m)
		if err != nil {
			return nil, err
		}
		sess, err := browser.Launch(ctx, browser.Profile{
			Headless:   cfg.Headless,
			ProfileDir: cfg.ProfileDir,
			NavTimeout: cfg.NavTimeout,
		}, log.With().Str("component", "browser").Str("marketplace", m.String()).Logger())
		if err != nil {
			return nil, err
		}
		return newDriver(sess, prof, cfg, log), nil
	}
}

type driver struct {
	page     page
	profile  profile
	cfg      Config
	resolver browser.Resolver
	log      zerolog.Logger
}

func newDriver(p page, prof profile, cfg Config, log zerolog.Logger) *driver {
	return &driver{
		page:     p,
		profile:  prof,
		cfg:      cfg,
		resolver: browser.Resolver{PerCandidateCap: cfg.PerCandidateCap},
		log:      log.With().Str("component", "automation").Str("marketplace", prof.marketplace.String()).Logger(),
	}
}

func (d *driver) Close() { d.page.Close() }

func (d *driver) ExportCookies() ([]*network.Cookie, error) {
	cookies, err := d.page.Cookies()
	if err != nil {
		return nil, fmt.Errorf("%w: export cookies: %s", ErrAutomation, err)
	}
	return cookies, nil
}

func (d *driver) ImportCookies(cookies []*network.Cookie) error {
	if err := d.page.ImportCookies(cookies); err != nil {
		return fmt.Errorf("%w: import cookies: %s", ErrAutomation, err)
	}
	return nil
}

// diagnose captures a screenshot at the single failure seam. Its own
// failure is swallowed inside CaptureDiagnostic.
func (d *driver) diagnose(label string) {
	if d.cfg.DiagnosticsDir == "" {
		return
	}
	d.page.CaptureDiagnostic(d.cfg.DiagnosticsDir, d.profile.marketplace.String()+"-"+label)
}
