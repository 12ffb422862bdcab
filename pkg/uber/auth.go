package uber

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/entrhq/farescout/pkg/browser"
)

// authStep names a position in the login state machine, for logs.
type authStep string

const (
	stepStart               authStep = "start"
	stepPhoneEntered        authStep = "phone_entered"
	stepChallengeDetected   authStep = "challenge_detected"
	stepCredentialSubmitted authStep = "credential_submitted"
	stepLoggedIn            authStep = "logged_in"
)

// challengeKind is which second step the site demanded after phone
// entry.
type challengeKind string

const (
	challengePassword challengeKind = "password"
	challengeOTP      challengeKind = "otp"
)

// authState tracks one authenticate invocation. It is transient and
// never persisted.
type authState struct {
	step      authStep
	challenge challengeKind
}

func (s *authState) advance(log *zap.Logger, step authStep) {
	s.step = step
	log.Debug("auth state", zap.String("step", string(step)), zap.String("challenge", string(s.challenge)))
}

// Authenticate drives the login state machine: phone entry, a branch
// on the password-vs-OTP challenge, credential submission, then cookie
// persistence off the search page. Already logged-in sessions
// short-circuit. Each attempt's failure is logged and absorbed until
// the attempt budget runs out, which surfaces
// ErrAuthenticationFailed.
func (f *Flow) Authenticate(ctx context.Context) error {
	f.log.Info("authentication called")

	result, err := f.nav.Navigate(ctx, LoginURL)
	if err != nil {
		return fmt.Errorf("opening login page: %w", err)
	}
	if !result.OK() {
		f.log.Warn("login page did not load cleanly", zap.String("outcome", string(result.Outcome)))
	}

	var lastErr error
	for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
		if f.loggedIn(ctx) {
			f.log.Info("already logged in")
			return nil
		}

		if err := f.loginAttempt(ctx); err != nil {
			lastErr = err
			f.log.Warn("authentication attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		return nil
	}

	return fmt.Errorf("%w: %v", ErrAuthenticationFailed, lastErr)
}

func (f *Flow) loginAttempt(ctx context.Context) error {
	state := &authState{}
	state.advance(f.log, stepStart)

	if err := f.enterPhone(ctx, state); err != nil {
		return err
	}
	if err := f.solveChallenge(ctx, state); err != nil {
		return err
	}
	if err := f.submitCredentials(state); err != nil {
		return err
	}

	// Land on the search page so the saved cookies cover it.
	if _, err := f.nav.Navigate(ctx, SearchURL); err != nil {
		return fmt.Errorf("opening search page: %w", err)
	}
	if err := f.saver.Save(f.nav.Page()); err != nil {
		return fmt.Errorf("persisting login cookies: %w", err)
	}

	state.advance(f.log, stepLoggedIn)
	f.log.Info("authentication succeeded")
	return nil
}

func (f *Flow) enterPhone(ctx context.Context, state *authState) error {
	page := f.nav.Page()

	field, err := page.Find(phoneField)
	if err != nil {
		return fmt.Errorf("locating phone field: %w", err)
	}
	if err := field.Fill(f.phone); err != nil {
		return fmt.Errorf("entering phone number: %w", err)
	}
	if err := f.clickForward(page); err != nil {
		return err
	}

	state.advance(f.log, stepPhoneEntered)
	return nil
}

// solveChallenge branches on which credential the site asks for next.
// A password option appearing within the element wait means the
// password path; a timeout means the site has already sent an OTP.
func (f *Flow) solveChallenge(ctx context.Context, state *authState) error {
	page := f.nav.Page()

	option, err := page.WaitFor(ctx, passwordOption, f.elementWait)
	switch {
	case err == nil:
		state.challenge = challengePassword
		state.advance(f.log, stepChallengeDetected)
		if err := option.Click(); err != nil {
			return fmt.Errorf("choosing password login: %w", err)
		}
		return f.enterPassword(ctx, page)

	case errors.Is(err, browser.ErrTimeout):
		state.challenge = challengeOTP
		state.advance(f.log, stepChallengeDetected)
		return f.enterOTP(ctx, page)

	default:
		return fmt.Errorf("detecting challenge: %w", err)
	}
}

func (f *Flow) enterPassword(ctx context.Context, page browser.PageSession) error {
	field, err := page.WaitFor(ctx, passwordField, f.elementWait)
	if err != nil {
		return fmt.Errorf("locating password field: %w", err)
	}
	if err := field.Fill(f.password); err != nil {
		return fmt.Errorf("entering password: %w", err)
	}
	return nil
}

func (f *Flow) enterOTP(ctx context.Context, page browser.PageSession) error {
	if f.otp == nil {
		return errors.New("otp required but no provider configured")
	}

	field, err := page.WaitFor(ctx, otpField, f.elementWait)
	if err != nil {
		return fmt.Errorf("locating otp field: %w", err)
	}
	code, err := f.otp.OTP(ctx)
	if err != nil {
		return fmt.Errorf("collecting otp: %w", err)
	}
	if err := field.Fill(code); err != nil {
		return fmt.Errorf("entering otp: %w", err)
	}

	// The observed flow still asks for the password after the code.
	return f.enterPassword(ctx, page)
}

func (f *Flow) submitCredentials(state *authState) error {
	if err := f.clickForward(f.nav.Page()); err != nil {
		return err
	}
	state.advance(f.log, stepCredentialSubmitted)
	return nil
}

func (f *Flow) clickForward(page browser.PageSession) error {
	button, err := page.Find(forwardButton)
	if err != nil {
		return fmt.Errorf("locating forward button: %w", err)
	}
	if err := button.Click(); err != nil {
		return fmt.Errorf("submitting form: %w", err)
	}
	return nil
}
