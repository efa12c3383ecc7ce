package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rs/zerolog"
)

// ErrSessionNotReady is returned when an operation is attempted before
// Launch or after Close. This is a lifecycle bug in the caller, not a
// transient condition.
var ErrSessionNotReady = errors.New("browser session not ready")

// Profile configures one browser session.
type Profile struct {
	Headless    bool
	ProfileDir  string
	NavTimeout  time.Duration // per-navigation budget
	EvalTimeout time.Duration // per-interaction budget (type, click, read)
}

func (p Profile) withDefaults() Profile {
	if p.NavTimeout <= 0 {
		p.NavTimeout = 30 * time.Second
	}
	if p.EvalTimeout <= 0 {
		p.EvalTimeout = 10 * time.Second
	}
	return p
}

// Session owns exactly one browser tab. It is never shared between
// concurrent flows: the linking session or the order execution call that
// launched it holds it exclusively until Close.
type Session struct {
	profile Profile
	log     zerolog.Logger

	mu          sync.Mutex
	ctx         context.Context
	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
	launched    bool
	closed      bool
}

// Launch starts a browser tab with the stealth configuration. The parent
// context bounds the whole session lifetime; cancelling it tears the
// browser down.
func Launch(parent context.Context, profile Profile, log zerolog.Logger) (*Session, error) {
	profile = profile.withDefaults()

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, Options(profile.Headless, profile.ProfileDir)...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)

	// Force chromedp to start the browser now so launch failures surface
	// here instead of on the first navigation.
	if err := chromedp.Run(ctx); err != nil {
		ctxCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	log.Debug().Bool("headless", profile.Headless).Msg("browser session launched")

	return &Session{
		profile:     profile,
		log:         log,
		ctx:         ctx,
		allocCancel: allocCancel,
		ctxCancel:   ctxCancel,
		launched:    true,
	}, nil
}

// Close tears down the browser. Safe to call multiple times; only the
// first call does anything.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.ctxCancel != nil {
		s.ctxCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.log.Debug().Msg("browser session closed")
}

// ready returns the live chromedp context, or ErrSessionNotReady.
func (s *Session) ready() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.launched || s.closed {
		return nil, ErrSessionNotReady
	}
	return s.ctx, nil
}

func (s *Session) run(budget time.Duration, actions ...chromedp.Action) error {
	ctx, err := s.ready()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads a URL and waits for the load event.
func (s *Session) Navigate(url string) error {
	if err := s.run(s.profile.NavTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// AwaitVisible blocks until the locator matches a visible element or the
// timeout elapses.
func (s *Session) AwaitVisible(loc Locator, timeout time.Duration) error {
	return s.run(timeout, chromedp.WaitVisible(loc.Query, chromedp.ByQuery))
}

// Visible reports whether the locator currently matches a rendered element,
// without waiting.
func (s *Session) Visible(loc Locator) (bool, error) {
	var visible bool
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el !== null && el.offsetParent !== null;
	})()`, loc.Query)
	if err := s.run(s.profile.EvalTimeout, chromedp.Evaluate(js, &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

// Type clears any prefilled value, then types text into the element.
func (s *Session) Type(loc Locator, text string) error {
	err := s.run(s.profile.EvalTimeout,
		chromedp.Focus(loc.Query, chromedp.ByQuery),
		chromedp.SetValue(loc.Query, "", chromedp.ByQuery),
		chromedp.SendKeys(loc.Query, text, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("type into %s: %w", loc.Label, err)
	}
	return nil
}

// Click clicks the element matching the locator.
func (s *Session) Click(loc Locator) error {
	if err := s.run(s.profile.EvalTimeout, chromedp.Click(loc.Query, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", loc.Label, err)
	}
	return nil
}

// PressEnter sends an Enter keypress to the focused element. Used as the
// submit fallback when no submit control can be found.
func (s *Session) PressEnter() error {
	return s.run(s.profile.EvalTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchKeyEvent(input.KeyDown).
			WithKey(kb.Enter).
			WithCode("Enter").
			WithWindowsVirtualKeyCode(13).
			Do(ctx)
	}))
}

// Text returns the trimmed text content of the element.
func (s *Session) Text(loc Locator) (string, error) {
	var out string
	if err := s.run(s.profile.EvalTimeout, chromedp.Text(loc.Query, &out, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read %s: %w", loc.Label, err)
	}
	return out, nil
}

// URL returns the current page location.
func (s *Session) URL() (string, error) {
	var url string
	if err := s.run(s.profile.EvalTimeout, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Cookies exports all cookies from the browser.
func (s *Session) Cookies() ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := s.run(s.profile.EvalTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("export cookies: %w", err)
	}
	return cookies, nil
}

// ImportCookies injects a previously exported cookie jar, letting a flow
// resume an authenticated marketplace session without interactive login.
func (s *Session) ImportCookies(cookies []*network.Cookie) error {
	err := s.run(s.profile.EvalTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				WithSameSite(c.SameSite).
				Do(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("import cookies: %w", err)
	}
	return nil
}

// CaptureDiagnostic takes a screenshot into dir. Best effort: its own
// failure is logged and swallowed so it can never mask the error that
// triggered it.
func (s *Session) CaptureDiagnostic(dir, label string) {
	var buf []byte
	if err := s.run(s.profile.EvalTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		s.log.Debug().Err(err).Msg("diagnostic screenshot failed")
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Debug().Err(err).Msg("diagnostic dir create failed")
		return
	}
	name := fmt.Sprintf("%s-%s.png", time.Now().Format("2006-01-02T15-04-05"), label)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		s.log.Debug().Err(err).Msg("diagnostic write failed")
		return
	}
	s.log.Info().Str("path", path).Msg("diagnostic screenshot captured")
}
