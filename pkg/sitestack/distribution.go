package sitestack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DistributionProvisioner creates, invalidates and removes the CDN
// distribution in front of the bucket.
type DistributionProvisioner struct {
	cdn          CDNAPI
	locator      *Locator
	logger       *zap.Logger
	pollInterval time.Duration
	pollAttempts int
	sleep        Sleeper // nil waits on a real timer
	now          func() time.Time
}

// NewDistributionProvisioner creates a provisioner with the default
// propagation bounds.
func NewDistributionProvisioner(cdn CDNAPI, logger *zap.Logger) *DistributionProvisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DistributionProvisioner{
		cdn:          cdn,
		locator:      NewLocator(cdn, logger),
		logger:       logger,
		pollInterval: DefaultPollInterval,
		pollAttempts: DefaultPollAttempts,
		now:          time.Now,
	}
}

// BuildDistributionSpec returns the distribution the stack creates for a
// bucket website origin.
func BuildDistributionSpec(bucket, domain, certificateARN, region string, now time.Time) DistributionSpec {
	return DistributionSpec{
		CallerReference:        fmt.Sprintf("%s-%d", bucket, now.Unix()),
		Comment:                "CloudFront distribution for " + domain,
		Aliases:                []string{domain},
		OriginID:               bucket,
		OriginDomain:           WebsiteEndpoint(bucket, region),
		DefaultRootObject:      IndexDocument,
		CertificateARN:         certificateARN,
		MinimumProtocolVersion: MinimumProtocolVersion,
		ErrorResponses: []ErrorResponse{{
			ErrorCode:        404,
			ResponsePagePath: "/" + IndexDocument,
			ResponseCode:     "200",
			MinTTL:           300,
		}},
	}
}

// EnsureDistribution returns the distribution serving domain, creating it
// when none exists.
func (p *DistributionProvisioner) EnsureDistribution(ctx context.Context, bucket, domain, certificateARN, region string) (id, hostname string, created bool, err error) {
	existing, found, err := p.locator.FindDistributionByDomain(ctx, domain)
	if err != nil {
		return "", "", false, err
	}
	if found {
		p.logger.Info("distribution already exists",
			zap.String("distribution_id", existing.ID),
			zap.String("domain", domain))
		return existing.ID, existing.DomainName, false, nil
	}

	spec := BuildDistributionSpec(bucket, domain, certificateARN, region, p.now())
	rec, err := p.cdn.CreateDistribution(ctx, spec)
	if err != nil {
		return "", "", false, err
	}
	p.logger.Info("distribution created",
		zap.String("distribution_id", rec.ID),
		zap.String("distribution_domain", rec.DomainName),
		zap.String("origin", spec.OriginDomain))
	return rec.ID, rec.DomainName, true, nil
}

// DisableAndDelete disables the distribution, waits until the change has
// propagated and deletes it. A distribution that no longer exists is not an
// error.
func (p *DistributionProvisioner) DisableAndDelete(ctx context.Context, id string) error {
	rec, err := p.cdn.GetDistribution(ctx, id)
	if IsCategory(err, ErrCategoryNotFound) {
		p.logger.Info("distribution already gone", zap.String("distribution_id", id))
		return nil
	}
	if err != nil {
		return err
	}

	if rec.Enabled {
		p.logger.Info("disabling distribution", zap.String("distribution_id", id))
		err = p.withFreshToken(ctx, rec, func(cur *DistributionRecord) error {
			if !cur.Enabled {
				return nil
			}
			next := *cur
			next.Enabled = false
			_, err := p.cdn.UpdateDistribution(ctx, next)
			return err
		})
		if err != nil {
			return err
		}
	}

	if err := p.waitDeployed(ctx, id); err != nil {
		return err
	}

	rec, err = p.cdn.GetDistribution(ctx, id)
	if err != nil {
		return err
	}
	err = p.withFreshToken(ctx, rec, func(cur *DistributionRecord) error {
		return p.cdn.DeleteDistribution(ctx, cur.ID, cur.ETag)
	})
	if err != nil {
		return err
	}
	p.logger.Info("distribution deleted", zap.String("distribution_id", id))
	return nil
}

// withFreshToken runs mutate against rec. When the token turns out to be
// stale it re-reads the distribution and tries exactly once more.
func (p *DistributionProvisioner) withFreshToken(ctx context.Context, rec *DistributionRecord, mutate func(*DistributionRecord) error) error {
	err := mutate(rec)
	if !IsCategory(err, ErrCategoryConcurrencyConflict) {
		return err
	}

	p.logger.Warn("stale distribution token, re-reading", zap.String("distribution_id", rec.ID))
	fresh, err := p.cdn.GetDistribution(ctx, rec.ID)
	if err != nil {
		return err
	}
	return mutate(fresh)
}

func (p *DistributionProvisioner) waitDeployed(ctx context.Context, id string) error {
	attempts := 0
	err := pollUntil(ctx, p.pollInterval, p.pollAttempts, p.sleep, p.logger.With(zap.String("distribution_id", id)), func(ctx context.Context) (bool, error) {
		attempts++
		rec, err := p.cdn.GetDistribution(ctx, id)
		if err != nil {
			return false, err
		}
		p.logger.Debug("waiting for distribution",
			zap.String("distribution_id", id),
			zap.String("status", rec.Status),
			zap.Int("attempt", attempts))
		return rec.Status == DistributionStatusDeployed, nil
	})
	if errors.Is(err, ErrPollExhausted) {
		return ErrPropagationTimeout("distribution", id).
			WithDetail("attempts", attempts).
			WithDetail("interval", p.pollInterval.String())
	}
	return err
}

// Invalidate submits a purge of every path on the distribution serving
// domain. found is false when no distribution serves the domain. It does
// not wait for the invalidation to finish.
func (p *DistributionProvisioner) Invalidate(ctx context.Context, domain string) (invalidationID string, found bool, err error) {
	rec, found, err := p.locator.FindDistributionByDomain(ctx, domain)
	if err != nil {
		return "", false, err
	}
	if !found {
		p.logger.Info("no distribution to invalidate", zap.String("domain", domain))
		return "", false, nil
	}

	ref := fmt.Sprintf("invalidation-%d-%s", p.now().Unix(), uuid.NewString()[:8])
	invalidationID, err = p.cdn.CreateInvalidation(ctx, rec.ID, []string{"/*"}, ref)
	if err != nil {
		return "", true, err
	}
	p.logger.Info("invalidation submitted",
		zap.String("distribution_id", rec.ID),
		zap.String("invalidation_id", invalidationID))
	return invalidationID, true, nil
}
