package uber

import (
	"context"

	"go.uber.org/zap"
)

// Scraper is the surface the top-level compensation step drives.
// *Flow satisfies it.
type Scraper interface {
	Authenticate(ctx context.Context) error
	GetPrices(ctx context.Context, pickup, drop Coordinate) error
}

// Run attempts price extraction, and on any failure authenticates and
// retries extraction exactly once more. This is single-shot
// compensation, not a loop: a failed re-authentication or a second
// extraction failure propagates to the caller.
func Run(ctx context.Context, s Scraper, pickup, drop Coordinate, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	err := s.GetPrices(ctx, pickup, drop)
	if err == nil {
		return nil
	}
	log.Warn("price extraction failed, re-authenticating", zap.Error(err))

	if err := s.Authenticate(ctx); err != nil {
		return err
	}
	return s.GetPrices(ctx, pickup, drop)
}
