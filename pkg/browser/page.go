// Package browser owns the browser session lifecycle: launching
// sessions behind rotating proxies, verifying the proxy took effect,
// and navigating with rate-limited rotation and interstitial
// detection. Flows depend on the PageSession capability surface, never
// on the automation engine underneath it.
package browser

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors surfaced by PageSession implementations.
var (
	// ErrNoElement means the selector matched nothing.
	ErrNoElement = errors.New("no element matches selector")

	// ErrTimeout means a navigation or bounded wait ran out of time.
	// It is a soft failure: the underlying browser call is not
	// aborted, the caller just stops waiting for it.
	ErrTimeout = errors.New("timed out")
)

// Cookie is one browser cookie record. Expires is kept when saving so
// the on-disk jar is faithful, and stripped when restoring so replayed
// sessions never expire client-side.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Element is a handle to a DOM element on the current page.
type Element interface {
	// Text returns the element's text content.
	Text() (string, error)

	// Click clicks the element.
	Click() error

	// Fill focuses the element and replaces its value.
	Fill(value string) error

	// FindAll returns the element's descendants matching selector.
	FindAll(selector string) ([]Element, error)
}

// PageSession is the capability surface the scraping flows use to
// drive one live page. The contexts passed in bound how long callers
// wait, not the browser calls themselves.
type PageSession interface {
	// Navigate loads url and blocks until the page settles or times
	// out. Timeouts are reported as ErrTimeout.
	Navigate(ctx context.Context, url string) error

	// Find returns the first element matching selector, or
	// ErrNoElement.
	Find(selector string) (Element, error)

	// FindAll returns all elements matching selector. No match is an
	// empty slice, not an error.
	FindAll(selector string) ([]Element, error)

	// WaitFor polls for selector to be present, up to timeout.
	// Expiry is reported as ErrTimeout.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// Cookies returns the session's current cookie set.
	Cookies() ([]Cookie, error)

	// AddCookie applies one cookie to the session.
	AddCookie(cookie Cookie) error

	// Refresh reloads the current page.
	Refresh(ctx context.Context) error

	// CurrentURL returns the URL the page ended up on, which may
	// differ from the one navigated to.
	CurrentURL() string

	// Content returns the current page HTML.
	Content() (string, error)

	// Quit releases the session and every browser resource under it.
	Quit() error
}
