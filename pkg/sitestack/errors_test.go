package sitestack

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteError_IsMatchesCategory(t *testing.T) {
	err := ErrNamingCollision("bucket", "site-bucket")

	assert.True(t, errors.Is(err, NewError(ErrCategoryNamingCollision, "")))
	assert.False(t, errors.Is(err, NewError(ErrCategoryNotFound, "")))
	assert.True(t, IsCategory(fmt.Errorf("wrapped: %w", err), ErrCategoryNamingCollision))
}

func TestSiteError_ErrorIncludesStepAndCause(t *testing.T) {
	err := ErrLookupFailed("distribution", "example.com").
		WithStep(StepEnsureDistribution).
		WithCause(errors.New("throttled"))

	assert.Equal(t, "[ensure-distribution:lookup_failed] could not determine whether distribution example.com exists: throttled", err.Error())
	assert.Equal(t, "throttled", errors.Unwrap(err).Error())
}

func TestErrConfigMissing_NamesEveryKey(t *testing.T) {
	err := ErrConfigMissing("AWS_DOMAIN_NAME", "AWS_HOSTED_ZONE_ID")

	assert.Equal(t, ErrCategoryConfigMissing, err.Category)
	assert.Contains(t, err.Error(), "AWS_DOMAIN_NAME, AWS_HOSTED_ZONE_ID")
	assert.Equal(t, []string{"AWS_DOMAIN_NAME", "AWS_HOSTED_ZONE_ID"}, err.Details["missing"])
}

func TestStepError_UnwrapsToCategory(t *testing.T) {
	cause := ErrPropagationTimeout("distribution", "E123")
	err := &StepError{
		Workflow:  WorkflowDecommission,
		Step:      StepDeleteDistribution,
		Completed: []string{StepLocateDistribution},
		Cause:     cause,
	}

	assert.True(t, IsCategory(err, ErrCategoryPropagationTimeout))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, ErrCategoryPropagationTimeout, CategoryOf(err))
	assert.Contains(t, err.Error(), `decommission failed at step "disable-and-delete-distribution" (completed: locate-distribution)`)
}

func TestUploadError_KeepsUploadedKeys(t *testing.T) {
	err := &UploadError{Uploaded: []string{"index.html"}, Key: "app.js", Cause: context.Canceled}

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "upload of app.js failed after 1 objects: context canceled", err.Error())

	var target *UploadError
	require.True(t, errors.As(fmt.Errorf("sync: %w", err), &target))
	assert.Equal(t, []string{"index.html"}, target.Uploaded)
}

func TestCategoryOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCategory(""), CategoryOf(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
