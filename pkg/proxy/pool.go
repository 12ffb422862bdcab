package proxy

import (
	"errors"
	"fmt"
	"sync"
)

// Leak verdicts. ErrLeakDetected is recoverable (rotate and retry
// session creation); ErrAllProxiesExhausted means one full pass over
// the pool leaked and rotating further cannot help.
var (
	ErrLeakDetected        = errors.New("proxy ip leak detected")
	ErrAllProxiesExhausted = errors.New("all proxies are down")
)

// Pool is an ordered, fixed set of proxy credentials with a
// round-robin cursor. An empty pool means direct-connection mode: no
// rotation and no leak checks.
type Pool struct {
	mu     sync.Mutex
	creds  []Credential
	cursor int
}

// NewPool builds a pool over the given credentials, preserving their
// order.
func NewPool(creds []Credential) *Pool {
	return &Pool{creds: creds}
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	return len(p.creds)
}

// Empty reports whether the pool has no credentials.
func (p *Pool) Empty() bool {
	return len(p.creds) == 0
}

// Next returns the credential under the cursor and advances it,
// wrapping modulo the pool size. Callers draw at most one credential
// per session creation so the rotation stays fair. Next must not be
// called on an empty pool.
func (p *Pool) Next() Credential {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred := p.creds[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.creds)
	return cred
}

// VerifyNoLeak compares the IP observed through the session against
// the real egress IP. On a leak it increments leakRetries and returns
// it with ErrLeakDetected while the count is within one full pass over
// the pool, then ErrAllProxiesExhausted once the count exceeds the
// pool size. No leak returns the count unchanged with a nil error.
func (p *Pool) VerifyNoLeak(observed, real string, leakRetries int) (int, error) {
	if observed != real {
		return leakRetries, nil
	}

	leakRetries++
	if leakRetries <= p.Size() {
		return leakRetries, fmt.Errorf("%w: egress ip %s matches real ip (leak %d of %d tolerated)",
			ErrLeakDetected, observed, leakRetries, p.Size())
	}
	return leakRetries, fmt.Errorf("%w: %d leaks across a pool of %d",
		ErrAllProxiesExhausted, leakRetries, p.Size())
}
