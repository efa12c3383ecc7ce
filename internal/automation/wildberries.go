package automation

import (
	"strings"

	"github.com/akozyrev/marketlink/internal/browser"
	"github.com/akozyrev/marketlink/internal/types"
)

// Wildberries DOM selectors and flow data.
// Selectors are isolated here because the marketplace changes its markup
// frequently and inconsistently across A/B tests. Update these when a flow
// breaks; keep several independently-sourced candidates per element.

var wildberriesProfile = profile{
	marketplace: types.Wildberries,

	loginURLs: []string{
		"https://www.wildberries.ru/security/login",
		"https://www.wildberries.ru/lk",
	},

	normalizeIdentifier: normalizeRussianPhone,

	identifierInputs: []browser.Locator{
		browser.Loc(`input[inputmode="tel"]`, "phone input (inputmode)"),
		browser.Loc(`input[autocomplete="tel"]`, "phone input (autocomplete)"),
		browser.Loc(`.input-item input[type="tel"]`, "phone input (legacy form)"),
		browser.Loc(`form input[type="text"]`, "phone input (generic)"),
	},
	loginSubmits: []browser.Locator{
		browser.Loc(`button#requestCode`, "request code button"),
		browser.Loc(`button[data-link*="requestCode"]`, "request code button (data-link)"),
		browser.Loc(`form button[type="submit"]`, "login submit (generic)"),
	},
	codeInputs: []browser.Locator{
		browser.Loc(`input[inputmode="numeric"]`, "sms code input (inputmode)"),
		browser.Loc(`.login__code input`, "sms code input (login block)"),
		browser.Loc(`input[autocomplete="one-time-code"]`, "sms code input (otp)"),
	},
	codeSubmits: []browser.Locator{
		browser.Loc(`.login__btn--confirm`, "confirm code button"),
		browser.Loc(`form button[type="submit"]`, "code submit (generic)"),
	},

	captchaMarkers: []browser.Locator{
		browser.Loc(`.captcha__container`, "captcha container"),
		browser.Loc(`iframe[src*="captcha"]`, "captcha iframe"),
		browser.Loc(`#smart-captcha`, "smart captcha widget"),
	},
	errorMarkers: []browser.Locator{
		browser.Loc(`.form-block__message--error`, "form error message"),
		browser.Loc(`.login__error`, "login error text"),
	},

	authCookieNames:      []string{"WILDAUTHNEW_V3", "wbx-validation-key"},
	loggedInURLFragments: []string{"/lk", "/profile"},
	loginPageMarkers: []browser.Locator{
		browser.Loc(`input[inputmode="numeric"]`, "code input still shown"),
		browser.Loc(`button#requestCode`, "request code still shown"),
	},

	productURL: wildberriesProductURL,
	addToCartButtons: []browser.Locator{
		browser.Loc(`.product-page__order-buttons button[data-link*="basket"]`, "add to cart (order buttons)"),
		browser.Loc(`.btn-main.j-add-to-basket`, "add to cart (main button)"),
		browser.Loc(`button[data-wba-content-type="toCart"]`, "add to cart (analytics tag)"),
	},
	qtyIncrements: []browser.Locator{
		browser.Loc(`.product-page__count .count__plus`, "quantity plus"),
		browser.Loc(`button[aria-label="Увеличить количество"]`, "quantity plus (aria)"),
	},
	cartURL: "https://www.wildberries.ru/lk/basket",
	checkoutButtons: []browser.Locator{
		browser.Loc(`.basket-order__b-btn button`, "place order button"),
		browser.Loc(`button.b-btn-do-order`, "place order button (legacy)"),
	},
	confirmButtons: nil, // checkout confirms in one step
	orderNumberLocs: []browser.Locator{
		browser.Loc(`.order-success__number`, "order number (success page)"),
		browser.Loc(`[data-order-id]`, "order number (data attribute)"),
	},
}

// normalizeRussianPhone rewrites a leading "8" to the "+7" country code and
// strips formatting, since the form validates the international format.
func normalizeRussianPhone(identifier string) string {
	id := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(identifier))

	if strings.HasPrefix(id, "8") && len(id) == 11 {
		return "+7" + id[1:]
	}
	if strings.HasPrefix(id, "7") && len(id) == 11 {
		return "+" + id
	}
	return id
}

func wildberriesProductURL(ref string) string {
	return "https://www.wildberries.ru/catalog/" + ref + "/detail.aspx"
}
