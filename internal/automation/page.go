package automation

import (
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/akozyrev/marketlink/internal/browser"
)

// page is the slice of browser.Session the flows depend on. Kept as an
// interface so flow logic is testable against a scripted fake without a
// real browser.
type page interface {
	Navigate(url string) error
	AwaitVisible(loc browser.Locator, timeout time.Duration) error
	Visible(loc browser.Locator) (bool, error)
	Type(loc browser.Locator, text string) error
	Click(loc browser.Locator) error
	PressEnter() error
	Text(loc browser.Locator) (string, error)
	URL() (string, error)
	Cookies() ([]*network.Cookie, error)
	ImportCookies(cookies []*network.Cookie) error
	CaptureDiagnostic(dir, label string)
	Close()
}

var _ page = (*browser.Session)(nil)
