package sitestack

import (
	"context"
	"encoding/json"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// OriginStore manages the bucket the site is served from.
type OriginStore struct {
	objects ObjectStoreAPI
	logger  *zap.Logger
}

// NewOriginStore creates an OriginStore.
func NewOriginStore(objects ObjectStoreAPI, logger *zap.Logger) *OriginStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OriginStore{objects: objects, logger: logger}
}

type policyStatement struct {
	Sid       string `json:"Sid"`
	Effect    string `json:"Effect"`
	Principal string `json:"Principal"`
	Action    string `json:"Action"`
	Resource  string `json:"Resource"`
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

// PublicReadPolicy returns the bucket policy granting anonymous reads.
func PublicReadPolicy(bucket string) string {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Sid:       "PublicReadGetObject",
			Effect:    "Allow",
			Principal: "*",
			Action:    "s3:GetObject",
			Resource:  "arn:aws:s3:::" + bucket + "/*",
		}},
	}
	data, _ := json.Marshal(doc)
	return string(data)
}

// EnsureBucket creates the bucket unless the caller already owns it. A name
// owned by another account is a naming collision.
func (s *OriginStore) EnsureBucket(ctx context.Context, bucket, region string) (created bool, err error) {
	outcome, err := s.objects.CreateBucket(ctx, bucket, BucketLocation(region))
	if err != nil {
		return false, err
	}
	switch outcome {
	case CreateOutcomeCreated:
		s.logger.Info("bucket created", zap.String("bucket", bucket), zap.String("region", region))
		return true, nil
	case CreateOutcomeAlreadyOwnedByCaller:
		s.logger.Info("bucket already exists", zap.String("bucket", bucket))
		return false, nil
	case CreateOutcomeConflictWithOther:
		return false, ErrNamingCollision("bucket", bucket)
	default:
		return false, ErrInternal("unknown create outcome "+outcome.String()).WithResource("bucket", bucket)
	}
}

// ConfigureWebsite enables website hosting with the stack's documents.
func (s *OriginStore) ConfigureWebsite(ctx context.Context, bucket string) error {
	if err := s.objects.PutWebsite(ctx, bucket, WebsiteConfig{
		IndexDocument: IndexDocument,
		ErrorDocument: ErrorDocument,
	}); err != nil {
		return err
	}
	s.logger.Info("website hosting configured", zap.String("bucket", bucket))
	return nil
}

// OpenPublicAccess clears all four public-access-block flags at once.
func (s *OriginStore) OpenPublicAccess(ctx context.Context, bucket string) error {
	if err := s.objects.PutPublicAccessBlock(ctx, bucket, PublicAccessBlock{}); err != nil {
		return err
	}
	s.logger.Info("public access block cleared", zap.String("bucket", bucket))
	return nil
}

// ApplyPublicReadPolicy attaches PublicReadPolicy to the bucket.
func (s *OriginStore) ApplyPublicReadPolicy(ctx context.Context, bucket string) error {
	if err := s.objects.PutBucketPolicy(ctx, bucket, PublicReadPolicy(bucket)); err != nil {
		return err
	}
	s.logger.Info("public read policy applied", zap.String("bucket", bucket))
	return nil
}

// Upload stores every item in order. The first failure stops the upload
// with an UploadError listing what was already stored.
func (s *OriginStore) Upload(ctx context.Context, bucket string, items []UploadItem) ([]string, error) {
	uploaded := make([]string, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return uploaded, &UploadError{Uploaded: uploaded, Key: item.Key, Cause: err}
		}
		if err := s.objects.PutObject(ctx, bucket, item); err != nil {
			return uploaded, &UploadError{Uploaded: uploaded, Key: item.Key, Cause: err}
		}
		s.logger.Debug("uploaded object",
			zap.String("key", item.Key),
			zap.String("content_type", item.ContentType),
			zap.Int("bytes", len(item.Body)))
		uploaded = append(uploaded, item.Key)
	}
	s.logger.Info("upload finished", zap.String("bucket", bucket), zap.Int("objects", len(uploaded)))
	return uploaded, nil
}

// Empty deletes every object version and delete marker in the bucket.
// found is false when the bucket does not exist.
func (s *OriginStore) Empty(ctx context.Context, bucket string) (deleted int, found bool, err error) {
	exists, err := s.objects.BucketExists(ctx, bucket)
	if err != nil {
		return 0, false, ErrLookupFailed("bucket", bucket).WithCause(err).WithRetryable(IsRetryable(err))
	}
	if !exists {
		s.logger.Info("bucket already gone, nothing to empty", zap.String("bucket", bucket))
		return 0, false, nil
	}

	keyMarker, versionMarker := "", ""
	for {
		page, err := s.objects.ListObjectVersions(ctx, bucket, keyMarker, versionMarker)
		if err != nil {
			return deleted, true, err
		}
		for _, batch := range lo.Chunk(page.Versions, DeleteBatchSize) {
			if err := s.objects.DeleteObjects(ctx, bucket, batch); err != nil {
				return deleted, true, err
			}
			deleted += len(batch)
		}
		if !page.Truncated {
			break
		}
		keyMarker, versionMarker = page.NextKeyMarker, page.NextVersionMarker
	}

	s.logger.Info("bucket emptied", zap.String("bucket", bucket), zap.Int("versions_deleted", deleted))
	return deleted, true, nil
}

// DeleteBucket removes the empty bucket. found is false when it was
// already gone.
func (s *OriginStore) DeleteBucket(ctx context.Context, bucket string) (found bool, err error) {
	err = s.objects.DeleteBucket(ctx, bucket)
	if IsCategory(err, ErrCategoryNotFound) {
		s.logger.Info("bucket already gone", zap.String("bucket", bucket))
		return false, nil
	}
	if err != nil {
		return true, err
	}
	s.logger.Info("bucket deleted", zap.String("bucket", bucket))
	return true, nil
}
