package uber

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/farescout/pkg/browser"
)

// Coordinate is a geographic point.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// DeepLink builds the search URL embedding pickup and drop
// coordinates the way the mobile web app expects them.
func DeepLink(pickup, drop Coordinate) string {
	values := url.Values{
		"drop[0]": {coordJSON(drop)},
		"pickup":  {coordJSON(pickup)},
	}
	return SearchURL + "?" + values.Encode()
}

func coordJSON(c Coordinate) string {
	return fmt.Sprintf(`{"latitude":%s,"longitude":%s}`,
		strconv.FormatFloat(c.Latitude, 'f', -1, 64),
		strconv.FormatFloat(c.Longitude, 'f', -1, 64))
}

// GetPrices opens the fare deep link for the trip and extracts one
// quote per listed ride type, handing each to the sink as it
// completes. The session must already be authenticated; this flow
// never triggers login itself, it fails with ErrNotAuthenticated and
// leaves compensation to the caller.
func (f *Flow) GetPrices(ctx context.Context, pickup, drop Coordinate) error {
	f.log.Info("getting prices")

	link := DeepLink(pickup, drop)
	if _, err := f.nav.Navigate(ctx, link); err != nil {
		return fmt.Errorf("opening fare page: %w", err)
	}

	if !f.loggedIn(ctx) {
		return ErrNotAuthenticated
	}

	page := f.nav.Page()
	list, err := page.WaitFor(ctx, rideListSelector, f.elementWait)
	if err != nil {
		return fmt.Errorf("%w: ride list not present: %v", ErrNoRideTypes, err)
	}
	entries, err := list.FindAll(rideEntrySel)
	if err != nil {
		return fmt.Errorf("listing ride types: %w", err)
	}
	if len(entries) == 0 {
		return ErrNoRideTypes
	}

	for i, entry := range entries {
		quote, err := f.extractQuote(ctx, page, entry)
		if err != nil {
			return fmt.Errorf("extracting ride %d of %d: %w", i+1, len(entries), err)
		}
		if err := f.sink.Write(quote); err != nil {
			return fmt.Errorf("persisting %s quote: %w", quote.RideName, err)
		}
		f.log.Info("quote extracted",
			zap.String("ride", quote.RideName),
			zap.String("estimate", quote.Estimate),
		)
	}

	return f.saver.Save(page)
}

// extractQuote clicks a ride-type entry and reads the fare panel. A
// failed click aborts the flow; individual fields degrade to the
// sentinel instead.
func (f *Flow) extractQuote(ctx context.Context, page browser.PageSession, entry browser.Element) (Quote, error) {
	if err := entry.Click(); err != nil {
		return Quote{}, fmt.Errorf("selecting ride type: %w", err)
	}
	settle(ctx, f.settleDelay)

	now := time.Now()
	return Quote{
		RideName:     f.fieldText(ctx, page, "ride_name", rideNameSelector),
		Estimate:     f.fieldText(ctx, page, "ride_estimate", rideEstimateSelector),
		BaseFare:     f.fieldText(ctx, page, "base_fare", baseFareSelector),
		MinimumFare:  f.fieldText(ctx, page, "minimum_fare", minimumFareSelector),
		PerMinute:    f.fieldText(ctx, page, "plus_per_minute", perMinuteSelector),
		PerKilometer: f.fieldText(ctx, page, "plus_per_kilometer", perKmSelector),
		WaitCharge:   f.waitCharge(ctx, page),
		Date:         now.Format("2006-01-02"),
		Time:         now.Format("15:04:05"),
	}, nil
}

// fieldText reads one fare field, degrading to the sentinel when the
// element cannot be found or read in time.
func (f *Flow) fieldText(ctx context.Context, page browser.PageSession, name, selector string) string {
	elem, err := page.WaitFor(ctx, selector, f.elementWait)
	if err != nil {
		f.log.Warn("fare field unavailable",
			zap.String("field", name),
			zap.String("selector", selector),
			zap.Error(err),
		)
		return Unavailable
	}
	text, err := elem.Text()
	if err != nil {
		f.log.Warn("fare field unreadable", zap.String("field", name), zap.Error(err))
		return Unavailable
	}
	return strings.TrimSpace(text)
}

// waitCharge pulls the numeric amount out of the free-text waiting
// notice. Text without a recognizable amount degrades to the
// sentinel.
func (f *Flow) waitCharge(ctx context.Context, page browser.PageSession) string {
	text := f.fieldText(ctx, page, "wait_charge", waitChargeSelector)
	if text == Unavailable {
		return Unavailable
	}
	match := waitChargePattern.FindString(text)
	if match == "" {
		return Unavailable
	}
	return match
}
