package aws

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/samber/lo"

	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

const resourceBucket = "bucket"

type s3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutBucketWebsite(ctx context.Context, params *s3.PutBucketWebsiteInput, optFns ...func(*s3.Options)) (*s3.PutBucketWebsiteOutput, error)
	PutPublicAccessBlock(ctx context.Context, params *s3.PutPublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.PutPublicAccessBlockOutput, error)
	PutBucketPolicy(ctx context.Context, params *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
}

// Objects implements sitestack.ObjectStoreAPI on S3.
type Objects struct {
	api s3API
}

// CreateBucket implements sitestack.ObjectStoreAPI.
func (o *Objects) CreateBucket(ctx context.Context, bucket, locationConstraint string) (sitestack.CreateOutcome, error) {
	in := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if locationConstraint != "" {
		in.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(locationConstraint),
		}
	}

	_, err := o.api.CreateBucket(ctx, in)
	switch errorCode(err) {
	case "":
		if err != nil {
			return 0, classify(err, resourceBucket, bucket)
		}
		return sitestack.CreateOutcomeCreated, nil
	case "BucketAlreadyOwnedByYou":
		return sitestack.CreateOutcomeAlreadyOwnedByCaller, nil
	case "BucketAlreadyExists":
		return sitestack.CreateOutcomeConflictWithOther, nil
	default:
		return 0, classify(err, resourceBucket, bucket)
	}
}

// BucketExists implements sitestack.ObjectStoreAPI.
func (o *Objects) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := o.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return true, nil
	}
	// HeadBucket has no error body; a 403 means the name exists under an
	// account we cannot read.
	if code := errorCode(err); code == "Forbidden" || code == "AccessDenied" {
		return false, sitestack.ErrNamingCollision(resourceBucket, bucket).
			WithCause(err).
			WithDetail("aws_error_code", code)
	}
	err = classify(err, resourceBucket, bucket)
	if sitestack.IsCategory(err, sitestack.ErrCategoryNotFound) {
		return false, nil
	}
	return false, err
}

// PutWebsite implements sitestack.ObjectStoreAPI.
func (o *Objects) PutWebsite(ctx context.Context, bucket string, website sitestack.WebsiteConfig) error {
	_, err := o.api.PutBucketWebsite(ctx, &s3.PutBucketWebsiteInput{
		Bucket: aws.String(bucket),
		WebsiteConfiguration: &s3types.WebsiteConfiguration{
			IndexDocument: &s3types.IndexDocument{Suffix: aws.String(website.IndexDocument)},
			ErrorDocument: &s3types.ErrorDocument{Key: aws.String(website.ErrorDocument)},
		},
	})
	return classify(err, resourceBucket, bucket)
}

// PutPublicAccessBlock implements sitestack.ObjectStoreAPI.
func (o *Objects) PutPublicAccessBlock(ctx context.Context, bucket string, block sitestack.PublicAccessBlock) error {
	_, err := o.api.PutPublicAccessBlock(ctx, &s3.PutPublicAccessBlockInput{
		Bucket: aws.String(bucket),
		PublicAccessBlockConfiguration: &s3types.PublicAccessBlockConfiguration{
			BlockPublicAcls:       aws.Bool(block.BlockPublicACLs),
			IgnorePublicAcls:      aws.Bool(block.IgnorePublicACLs),
			BlockPublicPolicy:     aws.Bool(block.BlockPublicPolicy),
			RestrictPublicBuckets: aws.Bool(block.RestrictPublicBuckets),
		},
	})
	return classify(err, resourceBucket, bucket)
}

// PutBucketPolicy implements sitestack.ObjectStoreAPI.
func (o *Objects) PutBucketPolicy(ctx context.Context, bucket, policy string) error {
	_, err := o.api.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(bucket),
		Policy: aws.String(policy),
	})
	return classify(err, resourceBucket, bucket)
}

// PutObject implements sitestack.ObjectStoreAPI.
func (o *Objects) PutObject(ctx context.Context, bucket string, item sitestack.UploadItem) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(item.Key),
		Body:   bytes.NewReader(item.Body),
	}
	if item.ContentType != "" {
		in.ContentType = aws.String(item.ContentType)
	}
	_, err := o.api.PutObject(ctx, in)
	return classify(err, "object", item.Key)
}

// ListObjectVersions implements sitestack.ObjectStoreAPI. Versions and
// delete markers are returned together.
func (o *Objects) ListObjectVersions(ctx context.Context, bucket, keyMarker, versionMarker string) (*sitestack.ObjectVersionPage, error) {
	in := &s3.ListObjectVersionsInput{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(sitestack.DeleteBatchSize),
	}
	if keyMarker != "" {
		in.KeyMarker = aws.String(keyMarker)
	}
	if versionMarker != "" {
		in.VersionIdMarker = aws.String(versionMarker)
	}

	out, err := o.api.ListObjectVersions(ctx, in)
	if err != nil {
		return nil, classify(err, resourceBucket, bucket)
	}

	page := &sitestack.ObjectVersionPage{
		Truncated:         aws.ToBool(out.IsTruncated),
		NextKeyMarker:     aws.ToString(out.NextKeyMarker),
		NextVersionMarker: aws.ToString(out.NextVersionIdMarker),
	}
	for _, v := range out.Versions {
		page.Versions = append(page.Versions, sitestack.ObjectVersion{Key: aws.ToString(v.Key), VersionID: aws.ToString(v.VersionId)})
	}
	for _, m := range out.DeleteMarkers {
		page.Versions = append(page.Versions, sitestack.ObjectVersion{Key: aws.ToString(m.Key), VersionID: aws.ToString(m.VersionId)})
	}
	return page, nil
}

// DeleteObjects implements sitestack.ObjectStoreAPI. Per-key failures in
// the response fail the whole call.
func (o *Objects) DeleteObjects(ctx context.Context, bucket string, objects []sitestack.ObjectVersion) error {
	if len(objects) == 0 {
		return nil
	}
	ids := lo.Map(objects, func(v sitestack.ObjectVersion, _ int) s3types.ObjectIdentifier {
		id := s3types.ObjectIdentifier{Key: aws.String(v.Key)}
		if v.VersionID != "" {
			id.VersionId = aws.String(v.VersionID)
		}
		return id
	})

	out, err := o.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &s3types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return classify(err, resourceBucket, bucket)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return sitestack.ErrInternal("delete objects failed: "+aws.ToString(first.Code)+": "+aws.ToString(first.Message)).
			WithResource("object", aws.ToString(first.Key)).
			WithDetail("failed_keys", len(out.Errors))
	}
	return nil
}

// DeleteBucket implements sitestack.ObjectStoreAPI.
func (o *Objects) DeleteBucket(ctx context.Context, bucket string) error {
	_, err := o.api.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	return classify(err, resourceBucket, bucket)
}
