package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/farescout/pkg/proxy"
	"github.com/entrhq/farescout/pkg/retry"
)

func newTestNavigator(t *testing.T, source SessionSource, cookies CookieLoader, threshold int) *Navigator {
	t.Helper()
	nav, err := NewNavigator(source, cookies, NavigatorConfig{
		RotationThreshold: threshold,
		Retry:             fastRetry(),
	}, nil)
	require.NoError(t, err)
	return nav
}

func TestNavigatorRotationThreshold(t *testing.T) {
	pages := []*fakePage{newFakePage(), newFakePage(), newFakePage()}
	source := &fakeSource{pages: pages}
	nav := newTestNavigator(t, source, nil, 3)

	// With threshold 3, calls 3 and 6 replace the session; call 1
	// only creates the initial one.
	wantCreates := []int{1, 1, 2, 2, 2, 3, 3}
	for i, want := range wantCreates {
		result, err := nav.Navigate(context.Background(), "https://example.com/ride")
		require.NoError(t, err)
		assert.True(t, result.OK())
		assert.Equal(t, want, source.creates, "after call %d", i+1)
	}

	assert.Equal(t, 1, pages[0].quits)
	assert.Equal(t, 1, pages[1].quits)
	assert.Equal(t, 0, pages[2].quits)
}

func TestNavigatorSoftBlockRetriesAndSurfaces(t *testing.T) {
	page := newFakePage()
	page.landings["https://m.uber.com/looking"] = "https://www.google.com/sorry/index?continue=https%3A%2F%2Fm.uber.com"
	source := &fakeSource{pages: []*fakePage{page}}
	nav := newTestNavigator(t, source, nil, 10)

	_, err := nav.Navigate(context.Background(), "https://m.uber.com/looking")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrSoftBlocked)
	assert.Len(t, page.navigated, 3, "soft blocks consume the whole retry budget")
	assert.Equal(t, 1, source.creates)
}

func TestNavigatorTimeoutIsAbsorbed(t *testing.T) {
	page := newFakePage()
	page.navErr = fmt.Errorf("navigating to page: %w", ErrTimeout)
	loader := &fakeLoader{}
	source := &fakeSource{pages: []*fakePage{page}}
	nav := newTestNavigator(t, source, loader, 10)

	result, err := nav.Navigate(context.Background(), "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, NavTimeout, result.Outcome)
	assert.False(t, result.OK())
	assert.Len(t, page.navigated, 1, "timeouts are results, not retried errors")
	assert.Zero(t, loader.calls)
}

func TestNavigatorDriverErrorIsAbsorbed(t *testing.T) {
	page := newFakePage()
	page.navErr = errors.New("net::ERR_TUNNEL_CONNECTION_FAILED")
	source := &fakeSource{pages: []*fakePage{page}}
	nav := newTestNavigator(t, source, nil, 10)

	result, err := nav.Navigate(context.Background(), "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, NavDriverError, result.Outcome)
	assert.False(t, result.OK())
}

func TestNavigatorRestoresCookiesAfterNavigation(t *testing.T) {
	page := newFakePage()
	loader := &fakeLoader{}
	source := &fakeSource{pages: []*fakePage{page}}
	nav := newTestNavigator(t, source, loader, 10)

	result, err := nav.Navigate(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.True(t, result.OK())

	require.Equal(t, 1, loader.calls)
	assert.Same(t, PageSession(page), loader.pages[0])
}

func TestNavigatorFatalCreateShortCircuits(t *testing.T) {
	source := &fakeSource{err: retry.Fatal(proxy.ErrAllProxiesExhausted)}
	nav := newTestNavigator(t, source, nil, 10)

	_, err := nav.Navigate(context.Background(), "https://example.com")
	require.Error(t, err)

	assert.ErrorIs(t, err, proxy.ErrAllProxiesExhausted)
	assert.Equal(t, 1, source.creates, "fatal errors must not be retried")
}

func TestNavigatorTransientCreateIsRetried(t *testing.T) {
	source := &fakeSource{err: errors.New("browser failed to launch")}
	nav := newTestNavigator(t, source, nil, 10)

	_, err := nav.Navigate(context.Background(), "https://example.com")
	require.Error(t, err)

	assert.Equal(t, 3, source.creates)
}

func TestNavigatorPageLifecycle(t *testing.T) {
	page := newFakePage()
	source := &fakeSource{pages: []*fakePage{page}}
	nav := newTestNavigator(t, source, nil, 10)

	assert.Nil(t, nav.Page())
	assert.Nil(t, nav.Session())

	_, err := nav.Navigate(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Same(t, PageSession(page), nav.Page())

	require.NoError(t, nav.Close())
	assert.Equal(t, 1, page.quits)
	assert.Nil(t, nav.Page())
	require.NoError(t, nav.Close(), "closing twice is harmless")
}
