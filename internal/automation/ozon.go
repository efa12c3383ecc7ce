package automation

import (
	"strings"

	"github.com/akozyrev/marketlink/internal/browser"
	"github.com/akozyrev/marketlink/internal/types"
)

// Ozon DOM selectors and flow data. Ozon accepts either a phone number or
// an email on the same form; phone numbers get the same +7 normalization,
// emails pass through untouched.

var ozonProfile = profile{
	marketplace: types.Ozon,

	loginURLs: []string{
		"https://www.ozon.ru/my/main",
		"https://id.ozon.ru/signin",
	},

	normalizeIdentifier: normalizeOzonIdentifier,

	identifierInputs: []browser.Locator{
		browser.Loc(`input[name="otpEmail"]`, "identifier input (otp form)"),
		browser.Loc(`input[type="tel"]`, "phone input"),
		browser.Loc(`form input[type="text"]`, "identifier input (generic)"),
	},
	loginSubmits: []browser.Locator{
		browser.Loc(`form button[type="submit"]`, "login submit"),
		browser.Loc(`button[data-widget="loginButton"]`, "login submit (widget)"),
	},
	codeInputs: []browser.Locator{
		browser.Loc(`input[autocomplete="one-time-code"]`, "code input (otp)"),
		browser.Loc(`input[name="otp"]`, "code input (named)"),
		browser.Loc(`form input[inputmode="numeric"]`, "code input (numeric)"),
	},
	codeSubmits: []browser.Locator{
		browser.Loc(`form button[type="submit"]`, "code submit"),
	},

	captchaMarkers: []browser.Locator{
		browser.Loc(`#challenge-form`, "challenge form"),
		browser.Loc(`iframe[src*="captcha"]`, "captcha iframe"),
		browser.Loc(`div[data-widget="smartCaptcha"]`, "smart captcha widget"),
	},
	errorMarkers: []browser.Locator{
		browser.Loc(`form [class*="error"]`, "form error text"),
		browser.Loc(`div[data-widget="loginError"]`, "login error widget"),
	},

	authCookieNames:      []string{"__Secure-access-token", "__Secure-refresh-token"},
	loggedInURLFragments: []string{"/my/main", "ozon.ru/my"},
	loginPageMarkers: []browser.Locator{
		browser.Loc(`input[name="otpEmail"]`, "identifier input still shown"),
		browser.Loc(`input[autocomplete="one-time-code"]`, "code input still shown"),
	},

	productURL: ozonProductURL,
	addToCartButtons: []browser.Locator{
		browser.Loc(`div[data-widget="webAddToCart"] button`, "add to cart widget"),
		browser.Loc(`button[aria-label*="корзин"]`, "add to cart (aria label)"),
	},
	qtyIncrements: []browser.Locator{
		browser.Loc(`div[data-widget="webAddToCart"] button[aria-label="Увеличить"]`, "quantity plus (widget)"),
		browser.Loc(`button[aria-label="Увеличить количество"]`, "quantity plus (aria)"),
	},
	cartURL: "https://www.ozon.ru/cart",
	checkoutButtons: []browser.Locator{
		browser.Loc(`div[data-widget="total"] button`, "proceed to checkout"),
		browser.Loc(`button[data-widget="orderButton"]`, "proceed to checkout (order button)"),
	},
	confirmButtons: []browser.Locator{
		browser.Loc(`div[data-widget="createOrderButton"] button`, "confirm order"),
	},
	orderNumberLocs: []browser.Locator{
		browser.Loc(`div[data-widget="orderCompleted"] a[href*="/my/orderdetails"]`, "order link (completed widget)"),
		browser.Loc(`[data-widget="orderNumber"]`, "order number widget"),
	},
}

func normalizeOzonIdentifier(identifier string) string {
	id := strings.TrimSpace(identifier)
	if strings.Contains(id, "@") {
		return strings.ToLower(id)
	}
	return normalizeRussianPhone(id)
}

func ozonProductURL(ref string) string {
	return "https://www.ozon.ru/product/" + ref + "/"
}
