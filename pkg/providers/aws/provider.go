// Package aws implements the sitestack provider interfaces on S3,
// CloudFront, Route 53 and ACM.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

// certificateRegion is the only region CloudFront reads certificates from.
const certificateRegion = "us-east-1"

type providerOptions struct {
	awsCfg     *aws.Config
	cloudFront cloudFrontAPI
	route53    route53API
	s3         s3API
	acm        acmAPI
}

// Option configures the provider.
type Option func(*providerOptions)

// WithAWSConfig uses cfg instead of loading the default configuration.
func WithAWSConfig(cfg aws.Config) Option {
	return func(opts *providerOptions) {
		cfgCopy := cfg
		opts.awsCfg = &cfgCopy
	}
}

// WithCloudFrontAPI replaces the CloudFront client.
func WithCloudFrontAPI(api cloudFrontAPI) Option {
	return func(opts *providerOptions) {
		opts.cloudFront = api
	}
}

// WithRoute53API replaces the Route 53 client.
func WithRoute53API(api route53API) Option {
	return func(opts *providerOptions) {
		opts.route53 = api
	}
}

// WithS3API replaces the S3 client.
func WithS3API(api s3API) Option {
	return func(opts *providerOptions) {
		opts.s3 = api
	}
}

// WithACMAPI replaces the ACM client.
func WithACMAPI(api acmAPI) Option {
	return func(opts *providerOptions) {
		opts.acm = api
	}
}

// NewBackend builds a Backend for region. Clients not supplied through
// options are created from the default AWS configuration chain.
func NewBackend(ctx context.Context, region string, options ...Option) (*sitestack.Backend, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &providerOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(opts)
	}

	if opts.cloudFront == nil || opts.route53 == nil || opts.s3 == nil || opts.acm == nil {
		var cfg aws.Config
		if opts.awsCfg != nil {
			cfg = *opts.awsCfg
		} else {
			loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
			if err != nil {
				return nil, sitestack.ErrConfigMissing("aws credentials").WithCause(err)
			}
			cfg = loaded
		}
		if region != "" {
			cfg.Region = region
		}

		if opts.cloudFront == nil {
			opts.cloudFront = cloudfront.NewFromConfig(cfg)
		}
		if opts.route53 == nil {
			opts.route53 = route53.NewFromConfig(cfg)
		}
		if opts.s3 == nil {
			opts.s3 = s3.NewFromConfig(cfg)
		}
		if opts.acm == nil {
			opts.acm = acm.NewFromConfig(cfg, func(o *acm.Options) {
				o.Region = certificateRegion
			})
		}
	}

	return &sitestack.Backend{
		CDN:          &CDN{api: opts.cloudFront},
		DNS:          &DNS{api: opts.route53},
		Objects:      &Objects{api: opts.s3},
		Certificates: &Certificates{api: opts.acm},
	}, nil
}

func init() {
	if err := sitestack.RegisterFactory("aws", sitestack.ProviderFactoryFunc(
		func(ctx context.Context, cfg sitestack.SiteConfig) (*sitestack.Backend, error) {
			return NewBackend(ctx, cfg.Region)
		})); err != nil {
		panic(fmt.Sprintf("aws: %v", err))
	}
}
