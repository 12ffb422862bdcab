package browser

import "time"

// Defaults applied by SessionOptions.withDefaults.
const (
	// DefaultTimeout bounds individual page operations.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is a desktop Chrome identity. Mobile site
	// variants render different markup, so sessions pin a known
	// desktop agent instead of whatever the bundled browser reports.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/102.0.5005.61 Safari/537.36"

	// DefaultViewportWidth and DefaultViewportHeight fix the window
	// to a common desktop resolution.
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
)

// Viewport is the browser window size in pixels.
type Viewport struct {
	Width  int
	Height int
}

// SessionOptions configures launched sessions.
type SessionOptions struct {
	// Headless runs the browser without a visible window.
	Headless bool

	// UserAgent overrides the browser's user agent string.
	UserAgent string

	// Viewport is the window size. Zero values take the defaults.
	Viewport Viewport

	// Timeout bounds individual page operations such as navigations
	// and element queries.
	Timeout time.Duration

	// DisableImages blocks image requests to cut proxy bandwidth.
	DisableImages bool
}

// withDefaults fills unset fields.
func (o SessionOptions) withDefaults() SessionOptions {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Viewport.Width <= 0 {
		o.Viewport.Width = DefaultViewportWidth
	}
	if o.Viewport.Height <= 0 {
		o.Viewport.Height = DefaultViewportHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}
