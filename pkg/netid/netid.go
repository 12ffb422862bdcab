// Package netid resolves the host's real egress IP so the proxy layer
// can tell proxied traffic apart from leaked direct traffic.
package netid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/farescout/pkg/retry"
)

const (
	// DefaultEndpoint echoes the caller's IP as plain text.
	DefaultEndpoint = "http://api64.ipify.org"

	// Unknown is returned when the real IP cannot be resolved. It can
	// never equal a resolved proxy IP, so leak detection downstream
	// degrades to always-pass. Fail-open on purpose: a scrape without
	// leak checks beats no scrape at all, and the weakening is logged.
	Unknown = "unknown"

	requestTimeout = 10 * time.Second
	maxBodySize    = 256
)

// Resolver fetches the real egress IP from an IP-echo endpoint. The
// request deliberately uses the default HTTP client identity and no
// proxy: it has to observe the genuine network path.
type Resolver struct {
	endpoint string
	client   *http.Client
	policy   retry.Policy
	log      *zap.Logger
}

// NewResolver creates a Resolver against the given endpoint. An empty
// endpoint selects DefaultEndpoint.
func NewResolver(endpoint string, log *zap.Logger) *Resolver {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
		policy:   retry.Policy{Log: log},
		log:      log,
	}
}

// Resolve returns the host's egress IP, retrying transient failures.
// After the attempt budget is spent it returns Unknown rather than an
// error; callers must treat Unknown as "leak checks disabled".
func (r *Resolver) Resolve(ctx context.Context) string {
	var ip string
	err := retry.Do(ctx, r.policy, "resolve real ip", func(ctx context.Context) error {
		resolved, err := r.fetch(ctx)
		if err != nil {
			return err
		}
		ip = resolved
		return nil
	})
	if err != nil {
		r.log.Warn("real ip unresolved, proxy leak checks are disabled",
			zap.String("endpoint", r.endpoint),
			zap.Error(err))
		return Unknown
	}

	r.log.Debug("real ip resolved", zap.String("ip", ip))
	return ip
}

func (r *Resolver) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build ip request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", r.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %s", r.endpoint, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read ip response: %w", err)
	}

	ip := strings.TrimSpace(string(body))
	if ip == "" {
		return "", errors.New("empty ip response")
	}
	return ip, nil
}
