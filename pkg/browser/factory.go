package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/entrhq/farescout/pkg/proxy"
	"github.com/entrhq/farescout/pkg/retry"
)

// DefaultEchoURL is the IP echo service sessions are pointed at to
// verify their proxy took effect.
const DefaultEchoURL = "http://api64.ipify.org"

// Launcher starts a browser session routed through the given proxy
// credential. A nil credential means the direct connection. *Engine
// satisfies it.
type Launcher interface {
	Launch(ctx context.Context, opts SessionOptions, cred *proxy.Credential) (PageSession, error)
}

// FactoryConfig tunes session creation.
type FactoryConfig struct {
	// Session configures every launched browser.
	Session SessionOptions

	// RealIP is the direct egress address sessions must never expose.
	// Empty disables leak verification entirely.
	RealIP string

	// EchoURL overrides the IP echo service.
	EchoURL string

	// Retry overrides the creation retry policy.
	Retry retry.Policy
}

// Factory launches browser sessions behind the pool's proxies and
// verifies each proxy masks the real IP before handing the session
// out. The leak counter survives individual sessions so a pool where
// every proxy leaks is abandoned after one full pass.
type Factory struct {
	launcher    Launcher
	pool        *proxy.Pool
	opts        SessionOptions
	realIP      string
	echoURL     string
	leakRetries int
	retry       retry.Policy
	log         *zap.Logger
}

// NewFactory builds a session factory drawing proxies from pool.
func NewFactory(launcher Launcher, pool *proxy.Pool, cfg FactoryConfig, log *zap.Logger) *Factory {
	if cfg.EchoURL == "" {
		cfg.EchoURL = DefaultEchoURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Factory{
		launcher: launcher,
		pool:     pool,
		opts:     cfg.Session,
		realIP:   cfg.RealIP,
		echoURL:  cfg.EchoURL,
		retry:    cfg.Retry,
		log:      log,
	}
}

// Create launches a session behind the next proxy in the pool and
// verifies the proxy took effect, retrying with fresh proxies on
// recoverable failures. A pool with no working proxies left fails
// fatally with proxy.ErrAllProxiesExhausted.
func (f *Factory) Create(ctx context.Context) (*SessionHandle, error) {
	var handle *SessionHandle
	err := retry.Do(ctx, f.retry, "create session", func(ctx context.Context) error {
		h, err := f.createOnce(ctx)
		if err != nil {
			return err
		}
		handle = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

func (f *Factory) createOnce(ctx context.Context) (*SessionHandle, error) {
	var cred *proxy.Credential
	if !f.pool.Empty() {
		next := f.pool.Next()
		cred = &next
	}

	page, err := f.launcher.Launch(ctx, f.opts, cred)
	if err != nil {
		return nil, fmt.Errorf("launching session: %w", err)
	}

	handle := newSessionHandle(page, cred)
	if err := f.verifyProxy(ctx, handle); err != nil {
		if closeErr := handle.Close(); closeErr != nil {
			f.log.Warn("closing leaked session", zap.String("session_id", handle.ID), zap.Error(closeErr))
		}
		if errors.Is(err, proxy.ErrAllProxiesExhausted) {
			return nil, retry.Fatal(err)
		}
		return nil, err
	}

	f.log.Info("session created",
		zap.String("session_id", handle.ID),
		zap.String("proxy", credLabel(cred)),
	)
	return handle, nil
}

// verifyProxy confirms the session's egress IP differs from the real
// one. Direct-connection sessions and unknown real IPs skip the check.
func (f *Factory) verifyProxy(ctx context.Context, handle *SessionHandle) error {
	if handle.Proxy == nil || f.realIP == "" {
		return nil
	}

	observed := f.observedIP(ctx, handle.Page())
	count, err := f.pool.VerifyNoLeak(observed, f.realIP, f.leakRetries)
	f.leakRetries = count
	if err != nil {
		f.log.Warn("proxy leak check failed",
			zap.String("proxy", handle.Proxy.String()),
			zap.String("observed_ip", observed),
			zap.Error(err),
		)
		return err
	}

	f.log.Debug("proxy verified",
		zap.String("proxy", handle.Proxy.String()),
		zap.String("observed_ip", observed),
	)
	return nil
}

// observedIP loads the echo service through the session. When the echo
// cannot be read the session's egress is unknowable, so it reports the
// real IP and lets the leak check rotate the proxy out.
func (f *Factory) observedIP(ctx context.Context, page PageSession) string {
	if err := page.Navigate(ctx, f.echoURL); err != nil {
		return f.realIP
	}
	elem, err := page.Find("pre")
	if err != nil {
		return f.realIP
	}
	text, err := elem.Text()
	if err != nil {
		return f.realIP
	}
	return strings.TrimSpace(text)
}

func credLabel(cred *proxy.Credential) string {
	if cred == nil {
		return "direct"
	}
	return cred.String()
}
