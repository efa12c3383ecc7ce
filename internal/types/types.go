// Package types holds the plain data shared between the linking, ordering
// and marketplace layers.
package types

import (
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
)

// Marketplace identifies one of the supported platforms.
type Marketplace string

const (
	Wildberries Marketplace = "wildberries"
	Ozon        Marketplace = "ozon"
)

// ParseMarketplace validates a marketplace name from config or chat input.
func ParseMarketplace(s string) (Marketplace, error) {
	switch Marketplace(s) {
	case Wildberries, Ozon:
		return Marketplace(s), nil
	}
	return "", fmt.Errorf("unknown marketplace %q", s)
}

func (m Marketplace) String() string { return string(m) }

// Credentials is what the record store keeps per (user, marketplace):
// either seller API credentials (ClientID used by Ozon only) or a browser
// cookie jar exported after an interactive login. Both may be present.
type Credentials struct {
	APIKey   string            `json:"api_key,omitempty"`
	ClientID string            `json:"client_id,omitempty"`
	Cookies  []*network.Cookie `json:"cookies,omitempty"`
	SavedAt  time.Time         `json:"saved_at"`
}

// HasAPI reports whether the API execution path is available.
func (c *Credentials) HasAPI() bool {
	return c != nil && c.APIKey != ""
}

// HasCookies reports whether a saved browser session can be restored.
func (c *Credentials) HasCookies() bool {
	return c != nil && len(c.Cookies) > 0
}

// LoginStep is the user-visible progress of an account-linking session.
type LoginStep string

const (
	StepAwaitingIdentifier LoginStep = "awaiting_identifier"
	StepAwaitingCode       LoginStep = "awaiting_code"
	StepDone               LoginStep = "done"
)

// FailReason is the short category reported to the presentation layer when a
// login fails. Raw automation errors never cross this boundary.
type FailReason string

const (
	ReasonCaptchaRequired   FailReason = "captcha_required"
	ReasonInvalidIdentifier FailReason = "invalid_identifier"
	ReasonCodeRejected      FailReason = "code_rejected"
	ReasonTimeout           FailReason = "timeout"
	ReasonInternal          FailReason = "internal_error"
)
