package uber

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/entrhq/farescout/pkg/browser"
)

// stubPage is a static page: every selector in elements is present,
// everything else fails lookups.
type stubPage struct {
	elements map[string]*stubElement
	finds    []string
	waits    []string
	cookies  []browser.Cookie
}

func newStubPage() *stubPage {
	return &stubPage{elements: map[string]*stubElement{}}
}

func (p *stubPage) Navigate(ctx context.Context, url string) error { return nil }

func (p *stubPage) Find(selector string) (browser.Element, error) {
	p.finds = append(p.finds, selector)
	if elem, ok := p.elements[selector]; ok {
		return elem, nil
	}
	return nil, fmt.Errorf("%q: %w", selector, browser.ErrNoElement)
}

func (p *stubPage) FindAll(selector string) ([]browser.Element, error) {
	if elem, ok := p.elements[selector]; ok {
		return []browser.Element{elem}, nil
	}
	return nil, nil
}

func (p *stubPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	p.waits = append(p.waits, selector)
	if elem, ok := p.elements[selector]; ok {
		return elem, nil
	}
	return nil, fmt.Errorf("waiting for %q: %w", selector, browser.ErrTimeout)
}

func (p *stubPage) Cookies() ([]browser.Cookie, error) { return p.cookies, nil }

func (p *stubPage) AddCookie(cookie browser.Cookie) error { return nil }

func (p *stubPage) Refresh(ctx context.Context) error { return nil }

func (p *stubPage) CurrentURL() string { return "" }

func (p *stubPage) Content() (string, error) { return "", nil }

func (p *stubPage) Quit() error { return nil }

type stubElement struct {
	text     string
	textErr  error
	fills    []string
	fillErr  error
	clicks   int
	clickErr error
	children map[string][]*stubElement
}

func (e *stubElement) Text() (string, error) {
	if e.textErr != nil {
		return "", e.textErr
	}
	return e.text, nil
}

func (e *stubElement) Click() error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	return nil
}

func (e *stubElement) Fill(value string) error {
	if e.fillErr != nil {
		return e.fillErr
	}
	e.fills = append(e.fills, value)
	return nil
}

func (e *stubElement) FindAll(selector string) ([]browser.Element, error) {
	elems := e.children[selector]
	out := make([]browser.Element, 0, len(elems))
	for _, child := range elems {
		out = append(out, child)
	}
	return out, nil
}

// fakeNav reports success for every navigation and always serves the
// same page.
type fakeNav struct {
	page    *stubPage
	visited []string
	navErr  error
}

func (n *fakeNav) Navigate(ctx context.Context, url string) (browser.NavResult, error) {
	n.visited = append(n.visited, url)
	if n.navErr != nil {
		return browser.NavResult{}, n.navErr
	}
	return browser.NavResult{Outcome: browser.NavSuccess, URL: url}, nil
}

func (n *fakeNav) Page() browser.PageSession { return n.page }

type fakeSaver struct {
	saves int
	err   error
}

func (s *fakeSaver) Save(page browser.PageSession) error {
	if s.err != nil {
		return s.err
	}
	s.saves++
	return nil
}

type captureSink struct {
	quotes []Quote
	err    error
}

func (s *captureSink) Write(quote Quote) error {
	if s.err != nil {
		return s.err
	}
	s.quotes = append(s.quotes, quote)
	return nil
}

// stubSettle removes the post-click settle pause for the duration of
// a test.
func stubSettle(t *testing.T) {
	t.Helper()
	orig := settle
	settle = func(ctx context.Context, d time.Duration) {}
	t.Cleanup(func() { settle = orig })
}

func countOf(values []string, want string) int {
	n := 0
	for _, v := range values {
		if v == want {
			n++
		}
	}
	return n
}
