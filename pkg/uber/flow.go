// Package uber drives the m.uber.com web flows: the login state
// machine and the fare extraction loop, both built on the browser
// package's navigation and session primitives.
package uber

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/farescout/pkg/browser"
)

// Target URLs.
const (
	LoginURL  = "https://auth.uber.com/v2/"
	SearchURL = "https://m.uber.com/looking"
)

// Page markers. The site's hashed utility classes are stable per
// deployment and tracked here in one place.
const (
	loggedInMarker   = "._css-ipKQbc"
	phoneField       = "#PHONE_NUMBER_or_EMAIL_ADDRESS"
	forwardButton    = "#forward-button"
	passwordOption   = "#alt-PASSWORD"
	passwordField    = "#PASSWORD"
	otpField         = "#PHONE_SMS_OTP-0"
	rideListSelector = "//ul[contains(@class, 'css-')]"
	rideEntrySel     = "li"

	rideNameSelector     = "h6._css-eMXiub:nth-child(1)"
	rideEstimateSelector = "h6._css-eMXiub:nth-child(2)"
	baseFareSelector     = "div._css-kROmvp:nth-child(2) > p:nth-child(2)"
	minimumFareSelector  = "div._css-kROmvp:nth-child(3) > p:nth-child(2)"
	perMinuteSelector    = "div._css-kROmvp:nth-child(4) > p:nth-child(2)"
	perKmSelector        = "div._css-kROmvp:nth-child(5) > p:nth-child(2)"
	waitChargeSelector   = "._css-lcvSVT"
)

// Unavailable is the sentinel recorded for any fare field that could
// not be extracted, so a partial record is still emitted.
const Unavailable = "unavailable"

// Default waits.
const (
	// DefaultElementWait bounds individual marker and field lookups.
	DefaultElementWait = 5 * time.Second

	// DefaultLoginWait bounds the logged-in marker check.
	DefaultLoginWait = 10 * time.Second

	// DefaultSettleDelay is the pause after selecting a ride type so
	// the fare panel can re-render.
	DefaultSettleDelay = time.Second
)

// maxLoginAttempts bounds one Authenticate invocation.
const maxLoginAttempts = 3

// waitChargePattern pulls the charge amount out of the free-text
// waiting notice, currency prefix included.
var waitChargePattern = regexp.MustCompile(`EGP (\d+\.\d+)`)

// Flow-fatal errors. The orchestration layer compensates for these
// once (see Run); they are never retried internally.
var (
	ErrAuthenticationFailed = errors.New("authentication failed after multiple attempts")
	ErrNotAuthenticated     = errors.New("not logged in")
	ErrNoRideTypes          = errors.New("no ride types found")
)

// Nav is the navigation surface the flows drive. *browser.Navigator
// satisfies it. Page must be re-fetched after every Navigate because
// rotation can swap the session underneath.
type Nav interface {
	Navigate(ctx context.Context, url string) (browser.NavResult, error)
	Page() browser.PageSession
}

// CookieSaver persists session cookies after login and extraction.
// It is satisfied by the cookies package's Store.
type CookieSaver interface {
	Save(page browser.PageSession) error
}

// Quote is one extracted fare record.
type Quote struct {
	RideName     string
	Estimate     string
	BaseFare     string
	MinimumFare  string
	PerMinute    string
	PerKilometer string
	WaitCharge   string
	Date         string
	Time         string
}

// QuoteSink receives each completed record, keyed by ride name.
type QuoteSink interface {
	Write(quote Quote) error
}

// FlowConfig carries credentials and timing for the scraping flows.
type FlowConfig struct {
	// Phone is the account's phone number or email address.
	Phone string

	// Password is the account password.
	Password string

	// ElementWait bounds individual marker and field lookups. Zero
	// takes DefaultElementWait.
	ElementWait time.Duration

	// LoginWait bounds the logged-in marker check. Zero takes
	// DefaultLoginWait.
	LoginWait time.Duration

	// SettleDelay is the pause after selecting a ride type. Zero
	// takes DefaultSettleDelay.
	SettleDelay time.Duration
}

// Flow drives the authenticated scraping flows over one navigator.
type Flow struct {
	nav   Nav
	saver CookieSaver
	otp   OTPProvider
	sink  QuoteSink

	phone    string
	password string

	elementWait time.Duration
	loginWait   time.Duration
	settleDelay time.Duration

	log *zap.Logger
}

// NewFlow wires the scraping flows over a navigator. otp may be nil
// when the account never receives OTP challenges.
func NewFlow(nav Nav, saver CookieSaver, otp OTPProvider, sink QuoteSink, cfg FlowConfig, log *zap.Logger) *Flow {
	if cfg.ElementWait <= 0 {
		cfg.ElementWait = DefaultElementWait
	}
	if cfg.LoginWait <= 0 {
		cfg.LoginWait = DefaultLoginWait
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Flow{
		nav:         nav,
		saver:       saver,
		otp:         otp,
		sink:        sink,
		phone:       cfg.Phone,
		password:    cfg.Password,
		elementWait: cfg.ElementWait,
		loginWait:   cfg.LoginWait,
		settleDelay: cfg.SettleDelay,
		log:         log,
	}
}

// loggedIn waits for the post-login marker on the current page.
func (f *Flow) loggedIn(ctx context.Context) bool {
	page := f.nav.Page()
	if page == nil {
		return false
	}
	_, err := page.WaitFor(ctx, loggedInMarker, f.loginWait)
	return err == nil
}

// settle pauses between a ride-type click and field extraction.
// Swapped out in tests.
var settle = func(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
