package browser

import (
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/farescout/pkg/proxy"
)

// SessionHandle is one live browser session and the proxy identity it
// was launched through. Exactly one handle is current at a time;
// rotation closes the old handle before a replacement is created.
type SessionHandle struct {
	// ID identifies the session in logs.
	ID string

	// Proxy is the credential the browser was launched with, nil when
	// the session runs on the direct connection.
	Proxy *proxy.Credential

	// CreatedAt is when the session was launched.
	CreatedAt time.Time

	page     PageSession
	navCount int
}

func newSessionHandle(page PageSession, cred *proxy.Credential) *SessionHandle {
	return &SessionHandle{
		ID:        uuid.NewString(),
		Proxy:     cred,
		CreatedAt: time.Now(),
		page:      page,
	}
}

// Page exposes the live page session.
func (s *SessionHandle) Page() PageSession {
	return s.page
}

// NavCount reports how many navigations this session has served.
func (s *SessionHandle) NavCount() int {
	return s.navCount
}

func (s *SessionHandle) recordNav() {
	s.navCount++
}

// Close releases the session's browser resources.
func (s *SessionHandle) Close() error {
	return s.page.Quit()
}
