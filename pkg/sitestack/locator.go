package sitestack

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Locator finds distributions by the domain they serve.
type Locator struct {
	cdn    CDNAPI
	logger *zap.Logger
}

// NewLocator creates a Locator.
func NewLocator(cdn CDNAPI, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{cdn: cdn, logger: logger}
}

// FindDistributionByDomain walks every page of the listing and returns the
// first distribution whose aliases contain domain exactly. A failed page
// read is a lookup failure, never "not found".
func (l *Locator) FindDistributionByDomain(ctx context.Context, domain string) (*DistributionRecord, bool, error) {
	marker := ""
	pages := 0
	for {
		page, err := l.cdn.ListDistributions(ctx, marker)
		if err != nil {
			return nil, false, ErrLookupFailed("distribution", domain).
				WithCause(err).
				WithRetryable(IsRetryable(err))
		}
		pages++

		if rec, ok := lo.Find(page.Items, func(d DistributionRecord) bool {
			return lo.Contains(d.Aliases, domain)
		}); ok {
			l.logger.Debug("distribution located",
				zap.String("domain", domain),
				zap.String("distribution_id", rec.ID),
				zap.Int("pages", pages))
			return &rec, true, nil
		}

		if page.NextMarker == "" {
			break
		}
		marker = page.NextMarker
	}

	l.logger.Debug("no distribution serves domain", zap.String("domain", domain), zap.Int("pages", pages))
	return nil, false, nil
}
