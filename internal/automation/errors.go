package automation

import (
	"errors"

	"github.com/akozyrev/marketlink/internal/types"
)

// Every failure leaving this package is one of these sentinels (possibly
// wrapped). Raw chromedp errors never escape to the linker or orchestrator.
var (
	// ErrCaptchaRequired is terminal: the flow is never retried
	// automatically, the user has to intervene.
	ErrCaptchaRequired = errors.New("captcha challenge detected")

	// ErrInvalidIdentifier means the marketplace rejected the phone/email
	// with a validation message.
	ErrInvalidIdentifier = errors.New("marketplace rejected identifier")

	// ErrLoginTimeout means no known outcome (code form, captcha, error)
	// appeared inside the budget. Transient: a fresh login may be started.
	ErrLoginTimeout = errors.New("login outcome timed out")

	// ErrLoginFormNotFound means none of the known entry points produced a
	// recognizable login form.
	ErrLoginFormNotFound = errors.New("login form not found")

	// ErrCodeRejected means the marketplace kept the user on the login page
	// after the verification code was submitted.
	ErrCodeRejected = errors.New("verification code rejected")

	// ErrLoginAmbiguous means no success or failure signal was observed
	// after code submission. Treated as failure: a false positive here
	// would persist a dead cookie jar and break checkout much later.
	ErrLoginAmbiguous = errors.New("login state ambiguous after code submit")

	// ErrCheckoutFailed wraps any failure inside the add-to-cart/checkout
	// sequence.
	ErrCheckoutFailed = errors.New("checkout sequence failed")

	// ErrAutomation wraps unexpected browser-level failures that do not
	// map to a more specific category.
	ErrAutomation = errors.New("automation failure")
)

// ReasonFor translates an automation error into the short category shown to
// the user. Technical detail stays in the logs.
func ReasonFor(err error) types.FailReason {
	switch {
	case errors.Is(err, ErrCaptchaRequired):
		return types.ReasonCaptchaRequired
	case errors.Is(err, ErrInvalidIdentifier):
		return types.ReasonInvalidIdentifier
	case errors.Is(err, ErrCodeRejected), errors.Is(err, ErrLoginAmbiguous):
		return types.ReasonCodeRejected
	case errors.Is(err, ErrLoginTimeout), errors.Is(err, ErrLoginFormNotFound):
		return types.ReasonTimeout
	default:
		return types.ReasonInternal
	}
}
