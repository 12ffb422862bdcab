package browser

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/entrhq/farescout/pkg/retry"
)

// DefaultRotationThreshold replaces the session every sixth navigation
// attempt.
const DefaultRotationThreshold = 6

// ErrSoftBlocked means the site diverted the session to a CAPTCHA or
// rate-limit interstitial instead of the requested page. The attempt
// is worth retrying on a fresh session.
var ErrSoftBlocked = errors.New("soft blocked by interstitial")

// NavOutcome classifies where a navigation attempt landed.
type NavOutcome string

const (
	// NavSuccess means the requested page loaded.
	NavSuccess NavOutcome = "success"

	// NavTimeout means the page did not settle in time.
	NavTimeout NavOutcome = "timeout"

	// NavDriverError means the browser itself failed.
	NavDriverError NavOutcome = "driver_error"
)

// NavResult reports one navigation.
type NavResult struct {
	Outcome NavOutcome

	// URL is where the session actually landed, which may differ from
	// the requested URL.
	URL string
}

// OK reports whether the requested page loaded.
func (r NavResult) OK() bool {
	return r.Outcome == NavSuccess
}

// SessionSource creates replacement sessions during rotation.
// *Factory satisfies it.
type SessionSource interface {
	Create(ctx context.Context) (*SessionHandle, error)
}

// CookieLoader restores persisted cookies into a live page session.
// It is satisfied by the cookies package's Store.
type CookieLoader interface {
	LoadInto(ctx context.Context, page PageSession) int
}

// NavigatorConfig tunes navigation behavior.
type NavigatorConfig struct {
	// RotationThreshold replaces the session every N navigation
	// attempts. Zero takes DefaultRotationThreshold.
	RotationThreshold int

	// Interstitials overrides the URL patterns treated as soft
	// blocks.
	Interstitials []string

	// Retry overrides the navigation retry policy.
	Retry retry.Policy
}

// Navigator owns the current session and wraps page navigation with
// pre-emptive session rotation, cookie restoration, and interstitial
// detection. Navigations that land on an interstitial are retried on
// a fresh attempt; timeouts and driver failures are absorbed into the
// returned NavResult for the caller to act on.
type Navigator struct {
	source     SessionSource
	cookies    CookieLoader
	classifier *URLClassifier
	threshold  int
	retry      retry.Policy
	log        *zap.Logger

	calls   int
	session *SessionHandle
}

// NewNavigator builds a navigator drawing sessions from source.
// cookies may be nil to skip cookie restoration.
func NewNavigator(source SessionSource, cookies CookieLoader, cfg NavigatorConfig, log *zap.Logger) (*Navigator, error) {
	if cfg.RotationThreshold <= 0 {
		cfg.RotationThreshold = DefaultRotationThreshold
	}
	patterns := cfg.Interstitials
	if len(patterns) == 0 {
		patterns = DefaultInterstitialPatterns
	}
	classifier, err := NewURLClassifier(patterns)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Navigator{
		source:     source,
		cookies:    cookies,
		classifier: classifier,
		threshold:  cfg.RotationThreshold,
		retry:      cfg.Retry,
		log:        log,
	}, nil
}

// Navigate drives the current session to url, rotating the session
// first when the attempt counter crosses the rotation threshold. Soft
// blocks are retried up to the retry budget; exhausting it surfaces
// ErrSoftBlocked. Timeouts and driver failures come back as a
// non-success NavResult with a nil error.
func (n *Navigator) Navigate(ctx context.Context, url string) (NavResult, error) {
	var result NavResult
	err := retry.Do(ctx, n.retry, "navigate", func(ctx context.Context) error {
		r, err := n.navigateOnce(ctx, url)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return NavResult{}, err
	}
	return result, nil
}

func (n *Navigator) navigateOnce(ctx context.Context, url string) (NavResult, error) {
	n.calls++
	if n.session == nil || n.calls%n.threshold == 0 {
		if err := n.rotate(ctx); err != nil {
			return NavResult{}, err
		}
	}

	page := n.session.Page()
	n.session.recordNav()
	if err := page.Navigate(ctx, url); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return NavResult{}, err
		}
		if errors.Is(err, ErrTimeout) {
			n.log.Warn("navigation timed out", zap.String("url", url), zap.Int("call", n.calls))
			return NavResult{Outcome: NavTimeout, URL: page.CurrentURL()}, nil
		}
		n.log.Warn("navigation failed", zap.String("url", url), zap.Int("call", n.calls), zap.Error(err))
		return NavResult{Outcome: NavDriverError, URL: page.CurrentURL()}, nil
	}

	if n.cookies != nil {
		n.cookies.LoadInto(ctx, page)
	}

	landed := page.CurrentURL()
	if n.classifier.Interstitial(landed) {
		n.logInterstitial(page, landed)
		return NavResult{}, fmt.Errorf("%s: %w", landed, ErrSoftBlocked)
	}

	return NavResult{Outcome: NavSuccess, URL: landed}, nil
}

// rotate closes the current session and creates a replacement so
// exactly one session is ever live.
func (n *Navigator) rotate(ctx context.Context) error {
	if n.session != nil {
		if err := n.session.Close(); err != nil {
			n.log.Warn("closing rotated session", zap.String("session_id", n.session.ID), zap.Error(err))
		}
		n.session = nil
	}

	handle, err := n.source.Create(ctx)
	if err != nil {
		return fmt.Errorf("replacing session: %w", err)
	}
	n.session = handle

	n.log.Debug("session rotated", zap.String("session_id", handle.ID), zap.Int("call", n.calls))
	return nil
}

func (n *Navigator) logInterstitial(page PageSession, landed string) {
	title := ""
	if content, err := page.Content(); err == nil {
		title = pageTitle(content)
	}
	n.log.Warn("interstitial detected", zap.String("url", landed), zap.String("title", title))
}

// Page returns the current session's live page, nil before the first
// Navigate. Callers must re-fetch it after every Navigate because
// rotation swaps the session underneath.
func (n *Navigator) Page() PageSession {
	if n.session == nil {
		return nil
	}
	return n.session.Page()
}

// Session returns the current session handle, nil before the first
// Navigate.
func (n *Navigator) Session() *SessionHandle {
	return n.session
}

// Close releases the current session, if any.
func (n *Navigator) Close() error {
	if n.session == nil {
		return nil
	}
	err := n.session.Close()
	n.session = nil
	return err
}
