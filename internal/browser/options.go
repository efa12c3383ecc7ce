// Package browser owns the chromedp session primitives shared by every
// automation flow, including the anti-bot-detection launch configuration.
package browser

import "github.com/chromedp/chromedp"

// DefaultUserAgent is a realistic Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// DefaultLocale is sent as the browser UI language and Accept-Language.
// Both marketplaces serve their login pages in Russian.
const DefaultLocale = "ru-RU"

// Options returns chromedp allocator options with anti-bot-detection
// measures. All browser sessions use this so the fingerprint stays
// consistent between login and checkout.
func Options(headless bool, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),

		// Prevent navigator.webdriver = true detection. Both marketplaces
		// check this before showing the SMS-code form.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		chromedp.UserAgent(DefaultUserAgent),
		chromedp.Flag("lang", DefaultLocale),

		// Realistic window size
		chromedp.WindowSize(1920, 1080),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	if profileDir != "" {
		opts = append(opts, chromedp.UserDataDir(profileDir))
	}

	if headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}

	return opts
}
