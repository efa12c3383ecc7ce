package automation

import (
	"fmt"

	"github.com/akozyrev/marketlink/internal/browser"
	"github.com/akozyrev/marketlink/internal/types"
)

// profile bundles everything marketplace-specific: login entry points,
// selector candidate lists, success signals and the checkout sequence
// data. The flow engine in flow.go is shared; adding a marketplace means
// adding a profile, not new control flow.
type profile struct {
	marketplace types.Marketplace

	// Login entry points, tried in order until a login form is detected.
	loginURLs []string

	// normalizeIdentifier rewrites the user-supplied phone/email into the
	// format the marketplace's form expects.
	normalizeIdentifier func(string) string

	identifierInputs []browser.Locator
	loginSubmits     []browser.Locator
	codeInputs       []browser.Locator
	codeSubmits      []browser.Locator

	captchaMarkers []browser.Locator
	errorMarkers   []browser.Locator

	// Success signal set for the logged-in predicate. No single
	// authoritative signal exists across marketplaces, so each supplies
	// its own: cookie names, destination URL fragments, and markers that
	// mean "still on the login page".
	authCookieNames      []string
	loggedInURLFragments []string
	loginPageMarkers     []browser.Locator

	// Checkout.
	productURL       func(ref string) string
	addToCartButtons []browser.Locator
	qtyIncrements    []browser.Locator
	cartURL          string
	checkoutButtons  []browser.Locator
	confirmButtons   []browser.Locator
	orderNumberLocs  []browser.Locator
}

func profileFor(m types.Marketplace) (profile, error) {
	switch m {
	case types.Wildberries:
		return wildberriesProfile, nil
	case types.Ozon:
		return ozonProfile, nil
	}
	return profile{}, fmt.Errorf("no automation profile for marketplace %q", m)
}
