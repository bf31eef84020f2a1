package sitestack

import "context"

// CDNAPI is the slice of a CDN provider the stack needs.
//
// Reads that cannot determine existence must return an error; adapters never
// translate a failed read into an empty result. GetDistribution and
// DeleteDistribution return a not_found SiteError for unknown IDs, and
// mutations presenting a stale ETag return a concurrency_conflict SiteError.
type CDNAPI interface {
	// ListDistributions returns the page starting at marker ("" for the first).
	ListDistributions(ctx context.Context, marker string) (*DistributionPage, error)

	CreateDistribution(ctx context.Context, spec DistributionSpec) (*DistributionRecord, error)

	// GetDistribution returns the distribution with a fresh ETag.
	GetDistribution(ctx context.Context, id string) (*DistributionRecord, error)

	// UpdateDistribution submits rec (its Enabled flag and Native payload)
	// with rec.ETag and returns the record with the new token.
	UpdateDistribution(ctx context.Context, rec DistributionRecord) (*DistributionRecord, error)

	DeleteDistribution(ctx context.Context, id, etag string) error

	// CreateInvalidation submits an invalidation and returns its ID.
	CreateInvalidation(ctx context.Context, id string, paths []string, callerReference string) (string, error)
}

// DNSAPI is the slice of a DNS provider the stack needs.
type DNSAPI interface {
	// FindRecord returns the first record at or after name/type in the zone's
	// ordering, or nil when the zone has none. The caller decides whether
	// the returned record is the one it asked for.
	FindRecord(ctx context.Context, zoneID, name, recordType string) (*AliasRecord, error)

	// ChangeRecord applies a single change and returns the change ID.
	ChangeRecord(ctx context.Context, zoneID string, action ChangeAction, rec AliasRecord) (string, error)
}

// ObjectStoreAPI is the slice of an object store the stack needs.
// DeleteBucket returns a not_found SiteError when the bucket is missing.
type ObjectStoreAPI interface {
	// CreateBucket maps the provider's answer onto a CreateOutcome. An
	// empty locationConstraint means the default region.
	CreateBucket(ctx context.Context, bucket, locationConstraint string) (CreateOutcome, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	PutWebsite(ctx context.Context, bucket string, website WebsiteConfig) error
	PutPublicAccessBlock(ctx context.Context, bucket string, block PublicAccessBlock) error
	PutBucketPolicy(ctx context.Context, bucket, policy string) error
	PutObject(ctx context.Context, bucket string, item UploadItem) error

	// ListObjectVersions returns one page of versions and delete markers.
	ListObjectVersions(ctx context.Context, bucket, keyMarker, versionMarker string) (*ObjectVersionPage, error)

	// DeleteObjects deletes at most DeleteBatchSize versions.
	DeleteObjects(ctx context.Context, bucket string, objects []ObjectVersion) error
	DeleteBucket(ctx context.Context, bucket string) error
}

// CertificateAPI reads TLS certificates.
type CertificateAPI interface {
	DescribeCertificate(ctx context.Context, arn string) (*CertificateRecord, error)
}

// Backend bundles the provider clients a workflow runs against.
type Backend struct {
	CDN          CDNAPI
	DNS          DNSAPI
	Objects      ObjectStoreAPI
	Certificates CertificateAPI
}

// check reports which clients are missing.
func (b *Backend) check() error {
	if b == nil {
		return ErrConfigMissing("backend")
	}
	var missing []string
	if b.CDN == nil {
		missing = append(missing, "cdn client")
	}
	if b.DNS == nil {
		missing = append(missing, "dns client")
	}
	if b.Objects == nil {
		missing = append(missing, "object store client")
	}
	if len(missing) > 0 {
		return ErrConfigMissing(missing...)
	}
	return nil
}
