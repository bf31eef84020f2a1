package aws

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"

	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

// classify maps an SDK error onto a sitestack error category. It is the
// only place provider error codes are interpreted.
func classify(err error, resourceType, resourceID string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		// No service response at all: network or signing trouble.
		return sitestack.ErrTransient("request to AWS failed").
			WithResource(resourceType, resourceID).
			WithCause(err)
	}

	var out *sitestack.SiteError
	switch code := apiErr.ErrorCode(); code {
	case "PreconditionFailed", "InvalidIfMatchVersion":
		out = sitestack.ErrConcurrencyConflict(resourceType, resourceID)
	case "NoSuchDistribution", "NoSuchBucket", "NotFound", "NoSuchHostedZone",
		"ResourceNotFoundException", "NoSuchInvalidation":
		out = sitestack.ErrNotFound(resourceType, resourceID)
	case "Throttling", "ThrottlingException", "RequestLimitExceeded", "SlowDown",
		"ServiceUnavailable", "PriorRequestNotComplete", "TooManyRequestsException",
		"InternalError", "RequestTimeout":
		out = sitestack.ErrTransient(code)
	case "CNAMEAlreadyExists", "BucketAlreadyExists":
		out = sitestack.ErrNamingCollision(resourceType, resourceID)
	case "DistributionNotDisabled", "BucketNotEmpty", "InvalidChangeBatch",
		"InvalidViewerCertificate", "InvalidRequest":
		out = sitestack.ErrPreconditionFailed(apiErr.ErrorMessage())
	default:
		if apiErr.ErrorFault() == smithy.FaultServer {
			out = sitestack.ErrTransient(code)
		} else {
			out = sitestack.ErrInternal(code + ": " + apiErr.ErrorMessage())
		}
	}
	return out.
		WithResource(resourceType, resourceID).
		WithCause(err).
		WithDetail("aws_error_code", apiErr.ErrorCode())
}

// errorCode returns the service error code, or "".
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
