package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/samber/lo"

	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

const resourceDistribution = "distribution"

type cloudFrontAPI interface {
	ListDistributions(
		ctx context.Context,
		params *cloudfront.ListDistributionsInput,
		optFns ...func(*cloudfront.Options),
	) (*cloudfront.ListDistributionsOutput, error)
	CreateDistribution(
		ctx context.Context,
		params *cloudfront.CreateDistributionInput,
		optFns ...func(*cloudfront.Options),
	) (*cloudfront.CreateDistributionOutput, error)
	GetDistribution(
		ctx context.Context,
		params *cloudfront.GetDistributionInput,
		optFns ...func(*cloudfront.Options),
	) (*cloudfront.GetDistributionOutput, error)
	UpdateDistribution(
		ctx context.Context,
		params *cloudfront.UpdateDistributionInput,
		optFns ...func(*cloudfront.Options),
	) (*cloudfront.UpdateDistributionOutput, error)
	DeleteDistribution(
		ctx context.Context,
		params *cloudfront.DeleteDistributionInput,
		optFns ...func(*cloudfront.Options),
	) (*cloudfront.DeleteDistributionOutput, error)
	CreateInvalidation(
		ctx context.Context,
		params *cloudfront.CreateInvalidationInput,
		optFns ...func(*cloudfront.Options),
	) (*cloudfront.CreateInvalidationOutput, error)
}

// CDN implements sitestack.CDNAPI on CloudFront.
type CDN struct {
	api cloudFrontAPI
}

// ListDistributions implements sitestack.CDNAPI.
func (c *CDN) ListDistributions(ctx context.Context, marker string) (*sitestack.DistributionPage, error) {
	in := &cloudfront.ListDistributionsInput{}
	if marker != "" {
		in.Marker = aws.String(marker)
	}
	out, err := c.api.ListDistributions(ctx, in)
	if err != nil {
		return nil, classify(err, resourceDistribution, marker)
	}

	page := &sitestack.DistributionPage{}
	list := out.DistributionList
	if list == nil {
		return page, nil
	}
	page.Items = lo.Map(list.Items, func(s cftypes.DistributionSummary, _ int) sitestack.DistributionRecord {
		rec := sitestack.DistributionRecord{
			ID:         aws.ToString(s.Id),
			DomainName: aws.ToString(s.DomainName),
			Enabled:    aws.ToBool(s.Enabled),
			Status:     aws.ToString(s.Status),
		}
		if s.Aliases != nil {
			rec.Aliases = s.Aliases.Items
		}
		return rec
	})
	if aws.ToBool(list.IsTruncated) {
		page.NextMarker = aws.ToString(list.NextMarker)
	}
	return page, nil
}

// distributionConfig builds the CloudFront configuration for spec.
func distributionConfig(spec sitestack.DistributionSpec) *cftypes.DistributionConfig {
	errorResponses := lo.Map(spec.ErrorResponses, func(e sitestack.ErrorResponse, _ int) cftypes.CustomErrorResponse {
		return cftypes.CustomErrorResponse{
			ErrorCode:          aws.Int32(int32(e.ErrorCode)),
			ResponsePagePath:   aws.String(e.ResponsePagePath),
			ResponseCode:       aws.String(e.ResponseCode),
			ErrorCachingMinTTL: aws.Int64(e.MinTTL),
		}
	})

	return &cftypes.DistributionConfig{
		CallerReference: aws.String(spec.CallerReference),
		Comment:         aws.String(spec.Comment),
		Enabled:         aws.Bool(true),
		Aliases: &cftypes.Aliases{
			Quantity: aws.Int32(int32(len(spec.Aliases))),
			Items:    spec.Aliases,
		},
		DefaultRootObject: aws.String(spec.DefaultRootObject),
		Origins: &cftypes.Origins{
			Quantity: aws.Int32(1),
			Items: []cftypes.Origin{{
				Id:         aws.String(spec.OriginID),
				DomainName: aws.String(spec.OriginDomain),
				CustomOriginConfig: &cftypes.CustomOriginConfig{
					HTTPPort:             aws.Int32(80),
					HTTPSPort:            aws.Int32(443),
					OriginProtocolPolicy: cftypes.OriginProtocolPolicyHttpOnly,
				},
			}},
		},
		DefaultCacheBehavior: &cftypes.DefaultCacheBehavior{
			TargetOriginId:       aws.String(spec.OriginID),
			ViewerProtocolPolicy: cftypes.ViewerProtocolPolicyRedirectToHttps,
			MinTTL:               aws.Int64(0),
			ForwardedValues: &cftypes.ForwardedValues{
				QueryString: aws.Bool(false),
				Cookies:     &cftypes.CookiePreference{Forward: cftypes.ItemSelectionNone},
			},
			TrustedSigners: &cftypes.TrustedSigners{
				Enabled:  aws.Bool(false),
				Quantity: aws.Int32(0),
			},
		},
		ViewerCertificate: &cftypes.ViewerCertificate{
			ACMCertificateArn:      aws.String(spec.CertificateARN),
			SSLSupportMethod:       cftypes.SSLSupportMethodSniOnly,
			MinimumProtocolVersion: cftypes.MinimumProtocolVersion(spec.MinimumProtocolVersion),
		},
		CustomErrorResponses: &cftypes.CustomErrorResponses{
			Quantity: aws.Int32(int32(len(errorResponses))),
			Items:    errorResponses,
		},
	}
}

func fromDistribution(d *cftypes.Distribution, etag *string) *sitestack.DistributionRecord {
	rec := &sitestack.DistributionRecord{
		ID:         aws.ToString(d.Id),
		DomainName: aws.ToString(d.DomainName),
		Status:     aws.ToString(d.Status),
		ETag:       aws.ToString(etag),
	}
	if cfg := d.DistributionConfig; cfg != nil {
		rec.Enabled = aws.ToBool(cfg.Enabled)
		if cfg.Aliases != nil {
			rec.Aliases = cfg.Aliases.Items
		}
		rec.Native = cfg
	}
	return rec
}

// CreateDistribution implements sitestack.CDNAPI.
func (c *CDN) CreateDistribution(ctx context.Context, spec sitestack.DistributionSpec) (*sitestack.DistributionRecord, error) {
	out, err := c.api.CreateDistribution(ctx, &cloudfront.CreateDistributionInput{
		DistributionConfig: distributionConfig(spec),
	})
	if err != nil {
		return nil, classify(err, resourceDistribution, spec.CallerReference)
	}
	if out.Distribution == nil {
		return nil, sitestack.ErrInternal("create distribution returned no distribution")
	}
	return fromDistribution(out.Distribution, out.ETag), nil
}

// GetDistribution implements sitestack.CDNAPI.
func (c *CDN) GetDistribution(ctx context.Context, id string) (*sitestack.DistributionRecord, error) {
	out, err := c.api.GetDistribution(ctx, &cloudfront.GetDistributionInput{Id: aws.String(id)})
	if err != nil {
		return nil, classify(err, resourceDistribution, id)
	}
	if out.Distribution == nil {
		return nil, sitestack.ErrNotFound(resourceDistribution, id)
	}
	return fromDistribution(out.Distribution, out.ETag), nil
}

// UpdateDistribution implements sitestack.CDNAPI. The configuration read by
// GetDistribution is sent back with only the enabled flag changed.
func (c *CDN) UpdateDistribution(ctx context.Context, rec sitestack.DistributionRecord) (*sitestack.DistributionRecord, error) {
	current, ok := rec.Native.(*cftypes.DistributionConfig)
	if !ok || current == nil {
		return nil, sitestack.ErrPreconditionFailed("distribution " + rec.ID + " must be read before it is updated")
	}
	cfg := *current
	cfg.Enabled = aws.Bool(rec.Enabled)

	out, err := c.api.UpdateDistribution(ctx, &cloudfront.UpdateDistributionInput{
		Id:                 aws.String(rec.ID),
		IfMatch:            aws.String(rec.ETag),
		DistributionConfig: &cfg,
	})
	if err != nil {
		return nil, classify(err, resourceDistribution, rec.ID)
	}
	if out.Distribution == nil {
		return nil, sitestack.ErrInternal("update distribution returned no distribution")
	}
	return fromDistribution(out.Distribution, out.ETag), nil
}

// DeleteDistribution implements sitestack.CDNAPI.
func (c *CDN) DeleteDistribution(ctx context.Context, id, etag string) error {
	_, err := c.api.DeleteDistribution(ctx, &cloudfront.DeleteDistributionInput{
		Id:      aws.String(id),
		IfMatch: aws.String(etag),
	})
	return classify(err, resourceDistribution, id)
}

// CreateInvalidation implements sitestack.CDNAPI.
func (c *CDN) CreateInvalidation(ctx context.Context, id string, paths []string, callerReference string) (string, error) {
	out, err := c.api.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(id),
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String(callerReference),
			Paths: &cftypes.Paths{
				Quantity: aws.Int32(int32(len(paths))),
				Items:    paths,
			},
		},
	})
	if err != nil {
		return "", classify(err, resourceDistribution, id)
	}
	if out.Invalidation == nil {
		return "", nil
	}
	return aws.ToString(out.Invalidation.Id), nil
}
