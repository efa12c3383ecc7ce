package automation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/akozyrev/marketlink/internal/browser"
	"github.com/akozyrev/marketlink/internal/types"
)

// Outcome names for the post-submit race.
const (
	outcomeCode    = "code_input"
	outcomeCaptcha = "captcha"
	outcomeError   = "validation_error"
)

// settleInterval is how often the logged-in predicate is re-evaluated
// while waiting for the post-code-submit page transition.
const settleInterval = 500 * time.Millisecond

// StartLogin normalizes the identifier, finds a login form across the known
// entry points, submits the identifier and races the three known outcomes:
// verification-code form, captcha, validation error.
func (d *driver) StartLogin(ctx context.Context, identifier string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s", ErrAutomation, err)
	}

	id := d.profile.normalizeIdentifier(identifier)
	d.log.Info().Msg("starting login")

	input, err := d.findLoginForm()
	if err != nil {
		d.diagnose("login-form")
		return err
	}

	if err := d.page.Type(input, id); err != nil {
		d.diagnose("identifier-fill")
		return fmt.Errorf("%w: %s", ErrAutomation, err)
	}
	if err := d.submit(d.profile.loginSubmits); err != nil {
		d.diagnose("identifier-submit")
		return fmt.Errorf("%w: %s", ErrAutomation, err)
	}

	winner, err := d.resolver.Race(d.page, d.cfg.LoginBudget,
		browser.Outcome{Name: outcomeCode, Locators: d.profile.codeInputs},
		browser.Outcome{Name: outcomeCaptcha, Locators: d.profile.captchaMarkers},
		browser.Outcome{Name: outcomeError, Locators: d.profile.errorMarkers},
	)
	if err != nil {
		d.diagnose("login-outcome")
		if errors.Is(err, browser.ErrNoMatchingSelector) {
			return ErrLoginTimeout
		}
		return fmt.Errorf("%w: %s", ErrAutomation, err)
	}

	switch winner {
	case outcomeCode:
		d.log.Info().Msg("verification code requested")
		return nil
	case outcomeCaptcha:
		d.diagnose("captcha")
		return ErrCaptchaRequired
	default:
		return ErrInvalidIdentifier
	}
}

// findLoginForm tries each known entry URL until one shows a recognizable
// identifier input. Attempts are bounded by the URL list and each carries
// its own navigation timeout.
func (d *driver) findLoginForm() (browser.Locator, error) {
	for _, url := range d.profile.loginURLs {
		if err := d.page.Navigate(url); err != nil {
			if errors.Is(err, browser.ErrSessionNotReady) {
				return browser.Locator{}, fmt.Errorf("%w: %s", ErrAutomation, err)
			}
			d.log.Debug().Err(err).Str("url", url).Msg("login entry point unreachable")
			continue
		}
		loc, err := d.resolver.Resolve(d.page, d.profile.identifierInputs, d.cfg.FormProbeBudget)
		if err == nil {
			return loc, nil
		}
		if errors.Is(err, browser.ErrSessionNotReady) {
			return browser.Locator{}, fmt.Errorf("%w: %s", ErrAutomation, err)
		}
		d.log.Debug().Str("url", url).Msg("no login form at entry point")
	}
	return browser.Locator{}, ErrLoginFormNotFound
}

// submit clicks the first resolvable submit control, falling back to an
// Enter keypress when none is found.
func (d *driver) submit(buttons []browser.Locator) error {
	btn, err := d.resolver.Resolve(d.page, buttons, d.cfg.SelectorBudget)
	if err == nil {
		return d.page.Click(btn)
	}
	if errors.Is(err, browser.ErrNoMatchingSelector) {
		d.log.Debug().Msg("no submit control found, sending Enter")
		return d.page.PressEnter()
	}
	return err
}

// SubmitCode types the verification code, submits it and polls the
// marketplace's success signal set until the page settles.
func (d *driver) SubmitCode(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s", ErrAutomation, err)
	}

	input, err := d.resolver.Resolve(d.page, d.profile.codeInputs, d.cfg.SelectorBudget)
	if err != nil {
		d.diagnose("code-form")
		if errors.Is(err, browser.ErrNoMatchingSelector) {
			return ErrLoginTimeout
		}
		return fmt.Errorf("%w: %s", ErrAutomation, err)
	}
	if err := d.page.Type(input, code); err != nil {
		d.diagnose("code-fill")
		return fmt.Errorf("%w: %s", ErrAutomation, err)
	}
	if err := d.submit(d.profile.codeSubmits); err != nil {
		d.diagnose("code-submit")
		return fmt.Errorf("%w: %s", ErrAutomation, err)
	}

	return d.awaitLoggedIn()
}

// awaitLoggedIn polls the logged-in predicate until it turns definite or
// the budget elapses. A still-ambiguous state at the deadline is a failure:
// assuming success here would persist a dead cookie jar that only breaks
// much later, at checkout.
func (d *driver) awaitLoggedIn() error {
	deadline := time.Now().Add(d.cfg.LoginBudget)
	sawLoginPage := false
	for {
		loggedIn, definiteNo := d.loggedIn()
		if loggedIn {
			d.log.Info().Msg("login confirmed")
			return nil
		}
		if definiteNo {
			sawLoginPage = true
		}
		if time.Now().After(deadline) {
			d.diagnose("code-verdict")
			if sawLoginPage {
				return ErrCodeRejected
			}
			return ErrLoginAmbiguous
		}
		time.Sleep(settleInterval)
	}
}

// loggedIn is the marketplace's named success predicate. Checked in order:
// auth cookie present, URL on a known logged-in destination, then the
// explicit "still on the login page" markers. No universal signal exists,
// so the signal sets come from the profile.
func (d *driver) loggedIn() (loggedIn bool, definiteNo bool) {
	if cookies, err := d.page.Cookies(); err == nil {
		for _, c := range cookies {
			for _, name := range d.profile.authCookieNames {
				if c.Name == name && c.Value != "" {
					return true, false
				}
			}
		}
	}
	if url, err := d.page.URL(); err == nil {
		for _, frag := range d.profile.loggedInURLFragments {
			if strings.Contains(url, frag) {
				return true, false
			}
		}
	}
	for _, loc := range d.profile.loginPageMarkers {
		if visible, err := d.page.Visible(loc); err == nil && visible {
			return false, true
		}
	}
	return false, false
}

var orderNumberPattern = regexp.MustCompile(`\d[\d-]*\d|\d`)

// Checkout runs the marketplace's add-to-cart and checkout sequence for
// every cart line and extracts the marketplace order number.
func (d *driver) Checkout(ctx context.Context, cart *types.Cart) (string, error) {
	if cart == nil || cart.Empty() {
		return "", fmt.Errorf("%w: empty cart", ErrCheckoutFailed)
	}

	for _, item := range cart.Items() {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %s", ErrCheckoutFailed, err)
		}
		if err := d.addToCart(item); err != nil {
			d.diagnose("add-to-cart")
			return "", err
		}
	}

	if err := d.page.Navigate(d.profile.cartURL); err != nil {
		d.diagnose("cart-page")
		return "", fmt.Errorf("%w: %s", ErrCheckoutFailed, err)
	}

	if err := d.resolveAndClick(d.profile.checkoutButtons, d.cfg.SelectorBudget); err != nil {
		d.diagnose("checkout")
		return "", fmt.Errorf("%w: %s", ErrCheckoutFailed, err)
	}
	if len(d.profile.confirmButtons) > 0 {
		if err := d.resolveAndClick(d.profile.confirmButtons, d.cfg.SelectorBudget); err != nil {
			d.diagnose("confirm")
			return "", fmt.Errorf("%w: %s", ErrCheckoutFailed, err)
		}
	}

	loc, err := d.resolver.Resolve(d.page, d.profile.orderNumberLocs, d.cfg.CheckoutBudget)
	if err != nil {
		d.diagnose("order-number")
		return "", fmt.Errorf("%w: order confirmation not found", ErrCheckoutFailed)
	}
	text, err := d.page.Text(loc)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrCheckoutFailed, err)
	}
	number := orderNumberPattern.FindString(text)
	if number == "" {
		return "", fmt.Errorf("%w: no order number in %q", ErrCheckoutFailed, text)
	}

	d.log.Info().Str("marketplace_order_id", number).Msg("checkout completed")
	return number, nil
}

func (d *driver) addToCart(item types.CartItem) error {
	if err := d.page.Navigate(d.profile.productURL(item.ProductRef)); err != nil {
		return fmt.Errorf("%w: %s", ErrCheckoutFailed, err)
	}
	if err := d.resolveAndClick(d.profile.addToCartButtons, d.cfg.SelectorBudget); err != nil {
		return fmt.Errorf("%w: %s", ErrCheckoutFailed, err)
	}
	for i := 1; i < item.Quantity; i++ {
		if err := d.resolveAndClick(d.profile.qtyIncrements, d.cfg.SelectorBudget); err != nil {
			return fmt.Errorf("%w: quantity increment: %s", ErrCheckoutFailed, err)
		}
	}
	return nil
}

func (d *driver) resolveAndClick(candidates []browser.Locator, budget time.Duration) error {
	loc, err := d.resolver.Resolve(d.page, candidates, budget)
	if err != nil {
		return err
	}
	return d.page.Click(loc)
}
