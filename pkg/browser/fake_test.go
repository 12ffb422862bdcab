package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/farescout/pkg/proxy"
)

// fakePage is an in-memory PageSession for tests.
type fakePage struct {
	navErr    error
	landings  map[string]string
	current   string
	navigated []string
	elements  map[string][]*fakeElement
	cookies   []Cookie
	added     []Cookie
	refreshes int
	html      string
	quits     int
}

func newFakePage() *fakePage {
	return &fakePage{
		landings: map[string]string{},
		elements: map[string][]*fakeElement{},
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	if p.navErr != nil {
		return p.navErr
	}
	if landed, ok := p.landings[url]; ok {
		p.current = landed
	} else {
		p.current = url
	}
	return nil
}

func (p *fakePage) Find(selector string) (Element, error) {
	elems := p.elements[selector]
	if len(elems) == 0 {
		return nil, fmt.Errorf("%q: %w", selector, ErrNoElement)
	}
	return elems[0], nil
}

func (p *fakePage) FindAll(selector string) ([]Element, error) {
	elems := p.elements[selector]
	out := make([]Element, 0, len(elems))
	for _, e := range elems {
		out = append(out, e)
	}
	return out, nil
}

func (p *fakePage) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	elems := p.elements[selector]
	if len(elems) == 0 {
		return nil, fmt.Errorf("waiting for %q: %w", selector, ErrTimeout)
	}
	return elems[0], nil
}

func (p *fakePage) Cookies() ([]Cookie, error) {
	return p.cookies, nil
}

func (p *fakePage) AddCookie(cookie Cookie) error {
	p.added = append(p.added, cookie)
	return nil
}

func (p *fakePage) Refresh(ctx context.Context) error {
	p.refreshes++
	return nil
}

func (p *fakePage) CurrentURL() string {
	return p.current
}

func (p *fakePage) Content() (string, error) {
	return p.html, nil
}

func (p *fakePage) Quit() error {
	p.quits++
	return nil
}

// fakeElement is an in-memory Element for tests.
type fakeElement struct {
	text     string
	textErr  error
	clicks   int
	clickErr error
	filled   []string
	fillErr  error
	children map[string][]*fakeElement
}

func (e *fakeElement) Text() (string, error) {
	if e.textErr != nil {
		return "", e.textErr
	}
	return e.text, nil
}

func (e *fakeElement) Click() error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	return nil
}

func (e *fakeElement) Fill(value string) error {
	if e.fillErr != nil {
		return e.fillErr
	}
	e.filled = append(e.filled, value)
	return nil
}

func (e *fakeElement) FindAll(selector string) ([]Element, error) {
	elems := e.children[selector]
	out := make([]Element, 0, len(elems))
	for _, child := range elems {
		out = append(out, child)
	}
	return out, nil
}

// fakeLauncher hands out queued fake pages and records the proxy each
// launch was asked to use.
type fakeLauncher struct {
	pages    []*fakePage
	creds    []*proxy.Credential
	err      error
	launches int
}

func (l *fakeLauncher) Launch(ctx context.Context, opts SessionOptions, cred *proxy.Credential) (PageSession, error) {
	l.launches++
	l.creds = append(l.creds, cred)
	if l.err != nil {
		return nil, l.err
	}
	if len(l.pages) == 0 {
		return newFakePage(), nil
	}
	page := l.pages[0]
	l.pages = l.pages[1:]
	return page, nil
}

// fakeSource hands out session handles wrapping queued fake pages.
type fakeSource struct {
	pages   []*fakePage
	err     error
	creates int
	handles []*SessionHandle
}

func (s *fakeSource) Create(ctx context.Context) (*SessionHandle, error) {
	s.creates++
	if s.err != nil {
		return nil, s.err
	}
	var page *fakePage
	if len(s.pages) > 0 {
		page = s.pages[0]
		s.pages = s.pages[1:]
	} else {
		page = newFakePage()
	}
	handle := newSessionHandle(page, nil)
	s.handles = append(s.handles, handle)
	return handle, nil
}

// fakeLoader records cookie restoration calls.
type fakeLoader struct {
	calls int
	pages []PageSession
}

func (l *fakeLoader) LoadInto(ctx context.Context, page PageSession) int {
	l.calls++
	l.pages = append(l.pages, page)
	return 0
}

// echoPage builds a page whose IP echo body reports the given address.
func echoPage(ip string) *fakePage {
	page := newFakePage()
	page.elements["pre"] = []*fakeElement{{text: ip + "\n"}}
	return page
}
