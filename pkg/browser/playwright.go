package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/farescout/pkg/proxy"
)

// stealthScript masks the automation properties bot detectors probe
// for. Values mirror a stock desktop Chrome install.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'vendor', { get: () => 'Google Inc.' });
Object.defineProperty(navigator, 'platform', { get: () => 'Win32' });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
const getParameter = WebGLRenderingContext.prototype.getParameter;
WebGLRenderingContext.prototype.getParameter = function (parameter) {
	if (parameter === 37445) {
		return 'Intel Inc.';
	}
	if (parameter === 37446) {
		return 'Intel Iris OpenGL Engine';
	}
	return getParameter(parameter);
};
`

// imagePattern matches requests the session drops when images are
// disabled.
const imagePattern = "**/*.{png,jpg,jpeg,gif,webp,svg,ico}"

// Engine owns the Playwright driver process shared by every session.
type Engine struct {
	pw *playwright.Playwright
}

// StartEngine installs the Playwright driver if needed and starts it.
// Driver output is discarded so it cannot interleave with our own.
func StartEngine() (*Engine, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	return &Engine{pw: pw}, nil
}

// Stop shuts the driver down. Sessions must be closed first.
func (e *Engine) Stop() error {
	if err := e.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// Launch starts an isolated browser for one session. Each session gets
// its own browser process so the proxy it was launched with applies to
// everything the session loads.
func (e *Engine) Launch(ctx context.Context, opts SessionOptions, cred *proxy.Credential) (PageSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless:          playwright.Bool(opts.Headless),
		Args:              []string{"--disable-blink-features=AutomationControlled"},
		IgnoreDefaultArgs: []string{"--enable-automation"},
	}
	if cred != nil {
		pxy := &playwright.Proxy{Server: "http://" + cred.Addr()}
		if cred.Authenticated() {
			pxy.Username = playwright.String(cred.Username)
			pxy.Password = playwright.String(cred.Password)
		}
		launchOpts.Proxy = pxy
	}

	browser, err := e.pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(opts.UserAgent),
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	browserCtx, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	if err := browserCtx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		browserCtx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to add init script: %w", err)
	}

	if opts.DisableImages {
		err := browserCtx.Route(imagePattern, func(route playwright.Route) {
			_ = route.Abort()
		})
		if err != nil {
			browserCtx.Close()
			browser.Close()
			return nil, fmt.Errorf("failed to block images: %w", err)
		}
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	return &playwrightPage{
		browser: browser,
		context: browserCtx,
		page:    page,
	}, nil
}

// playwrightPage adapts a Playwright page to the PageSession surface.
type playwrightPage struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

var _ PageSession = (*playwrightPage)(nil)

func (p *playwrightPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Goto(url); err != nil {
		return translateErr(fmt.Sprintf("navigating to %s", url), err)
	}
	return nil
}

func (p *playwrightPage) Find(selector string) (Element, error) {
	handle, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", selector, err)
	}
	if handle == nil {
		return nil, fmt.Errorf("%q: %w", selector, ErrNoElement)
	}
	return &playwrightElement{handle: handle}, nil
}

func (p *playwrightPage) FindAll(selector string) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", selector, err)
	}
	return wrapHandles(handles), nil
}

func (p *playwrightPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handle, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, translateErr(fmt.Sprintf("waiting for %q", selector), err)
	}
	if handle == nil {
		return nil, fmt.Errorf("%q: %w", selector, ErrNoElement)
	}
	return &playwrightElement{handle: handle}, nil
}

func (p *playwrightPage) Cookies() ([]Cookie, error) {
	raw, err := p.context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("reading cookies: %w", err)
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookie := Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			cookie.SameSite = string(*c.SameSite)
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

func (p *playwrightPage) AddCookie(cookie Cookie) error {
	oc := playwright.OptionalCookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		HttpOnly: playwright.Bool(cookie.HTTPOnly),
		Secure:   playwright.Bool(cookie.Secure),
	}
	if cookie.Domain != "" {
		oc.Domain = playwright.String(cookie.Domain)
	}
	if cookie.Path != "" {
		oc.Path = playwright.String(cookie.Path)
	}
	if cookie.Expires != 0 {
		oc.Expires = playwright.Float(cookie.Expires)
	}
	if attr := sameSiteAttribute(cookie.SameSite); attr != nil {
		oc.SameSite = attr
	}

	if err := p.context.AddCookies([]playwright.OptionalCookie{oc}); err != nil {
		return fmt.Errorf("adding cookie %q: %w", cookie.Name, err)
	}
	return nil
}

func (p *playwrightPage) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Reload(); err != nil {
		return translateErr("reloading page", err)
	}
	return nil
}

func (p *playwrightPage) CurrentURL() string {
	return p.page.URL()
}

func (p *playwrightPage) Content() (string, error) {
	content, err := p.page.Content()
	if err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	return content, nil
}

func (p *playwrightPage) Quit() error {
	var errs []error
	if err := p.page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.browser.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing session: %v", errs)
	}
	return nil
}

// playwrightElement adapts an element handle to the Element surface.
type playwrightElement struct {
	handle playwright.ElementHandle
}

var _ Element = (*playwrightElement)(nil)

func (e *playwrightElement) Text() (string, error) {
	text, err := e.handle.TextContent()
	if err != nil {
		return "", fmt.Errorf("reading element text: %w", err)
	}
	return text, nil
}

func (e *playwrightElement) Click() error {
	if err := e.handle.Click(); err != nil {
		return fmt.Errorf("clicking element: %w", err)
	}
	return nil
}

func (e *playwrightElement) Fill(value string) error {
	if err := e.handle.Fill(value); err != nil {
		return fmt.Errorf("filling element: %w", err)
	}
	return nil
}

func (e *playwrightElement) FindAll(selector string) ([]Element, error) {
	handles, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", selector, err)
	}
	return wrapHandles(handles), nil
}

func wrapHandles(handles []playwright.ElementHandle) []Element {
	elements := make([]Element, 0, len(handles))
	for _, handle := range handles {
		elements = append(elements, &playwrightElement{handle: handle})
	}
	return elements
}

// translateErr maps driver timeouts onto ErrTimeout so callers can
// branch on soft failures with errors.Is.
func translateErr(op string, err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func sameSiteAttribute(value string) *playwright.SameSiteAttribute {
	switch value {
	case "Strict":
		return playwright.SameSiteAttributeStrict
	case "Lax":
		return playwright.SameSiteAttributeLax
	case "None":
		return playwright.SameSiteAttributeNone
	}
	return nil
}
