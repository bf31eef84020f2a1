package sitestack

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory categorizes errors for handling and reporting.
type ErrorCategory string

const (
	// ErrCategoryConfigMissing indicates required configuration is absent.
	ErrCategoryConfigMissing ErrorCategory = "config_missing"
	// ErrCategoryLookupFailed indicates a provider read could not determine
	// whether a resource exists. It must never be treated as "not found".
	ErrCategoryLookupFailed ErrorCategory = "lookup_failed"
	// ErrCategoryNamingCollision indicates a resource name is owned by another account.
	ErrCategoryNamingCollision ErrorCategory = "naming_collision"
	// ErrCategoryConcurrencyConflict indicates a mutation presented a stale concurrency token.
	ErrCategoryConcurrencyConflict ErrorCategory = "concurrency_conflict"
	// ErrCategoryPropagationTimeout indicates a bounded propagation wait was exceeded.
	ErrCategoryPropagationTimeout ErrorCategory = "propagation_timeout"
	// ErrCategoryTransient indicates a network or throttling failure.
	ErrCategoryTransient ErrorCategory = "transient"
	// ErrCategoryPreconditionFailed indicates a local precondition was not met.
	ErrCategoryPreconditionFailed ErrorCategory = "precondition_failed"
	// ErrCategoryNotFound indicates a resource was not found.
	ErrCategoryNotFound ErrorCategory = "not_found"
	// ErrCategoryValidation indicates invalid input.
	ErrCategoryValidation ErrorCategory = "validation"
	// ErrCategoryInternal indicates an internal or unclassified provider error.
	ErrCategoryInternal ErrorCategory = "internal"
)

// SiteError is a structured error with category and context.
type SiteError struct {
	// Category classifies the error type.
	Category ErrorCategory

	// Message is a human-readable error message.
	Message string

	// Step is the workflow step that failed, if any.
	Step string

	// ResourceType is the type of resource involved.
	ResourceType string

	// ResourceID is the ID of the resource involved.
	ResourceID string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates whether re-running the operation may succeed.
	Retryable bool

	// Details contains additional error context.
	Details map[string]interface{}
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Category, e.Message)
	if e.Step != "" {
		msg = fmt.Sprintf("[%s:%s] %s", e.Step, e.Category, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *SiteError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error's category.
func (e *SiteError) Is(target error) bool {
	var siteErr *SiteError
	if errors.As(target, &siteErr) {
		return e.Category == siteErr.Category
	}
	return false
}

// NewError creates a new SiteError.
func NewError(category ErrorCategory, message string) *SiteError {
	return &SiteError{
		Category: category,
		Message:  message,
		Details:  make(map[string]interface{}),
	}
}

// WithStep sets the workflow step.
func (e *SiteError) WithStep(step string) *SiteError {
	e.Step = step
	return e
}

// WithResource sets the resource type and ID.
func (e *SiteError) WithResource(resourceType, resourceID string) *SiteError {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithCause sets the underlying error.
func (e *SiteError) WithCause(err error) *SiteError {
	e.Cause = err
	return e
}

// WithRetryable marks the error as retryable.
func (e *SiteError) WithRetryable(retryable bool) *SiteError {
	e.Retryable = retryable
	return e
}

// WithDetail adds a detail to the error.
func (e *SiteError) WithDetail(key string, value interface{}) *SiteError {
	e.Details[key] = value
	return e
}

// Convenience constructors for common error types

// ErrConfigMissing creates a configuration error naming the missing keys.
func ErrConfigMissing(keys ...string) *SiteError {
	return NewError(ErrCategoryConfigMissing, "missing required configuration: "+strings.Join(keys, ", ")).
		WithDetail("missing", keys)
}

// ErrLookupFailed creates a lookup error.
func ErrLookupFailed(resourceType, key string) *SiteError {
	return NewError(ErrCategoryLookupFailed, fmt.Sprintf("could not determine whether %s %s exists", resourceType, key)).
		WithResource(resourceType, key)
}

// ErrNamingCollision creates a naming collision error.
func ErrNamingCollision(resourceType, name string) *SiteError {
	return NewError(ErrCategoryNamingCollision, fmt.Sprintf("%s %s already exists and is owned by someone else", resourceType, name)).
		WithResource(resourceType, name)
}

// ErrConcurrencyConflict creates a stale-token error.
func ErrConcurrencyConflict(resourceType, resourceID string) *SiteError {
	return NewError(ErrCategoryConcurrencyConflict, fmt.Sprintf("%s %s was modified concurrently", resourceType, resourceID)).
		WithResource(resourceType, resourceID)
}

// ErrPropagationTimeout creates a propagation timeout error.
func ErrPropagationTimeout(resourceType, resourceID string) *SiteError {
	return NewError(ErrCategoryPropagationTimeout, fmt.Sprintf("%s %s did not finish deploying in time", resourceType, resourceID)).
		WithResource(resourceType, resourceID).
		WithRetryable(true)
}

// ErrTransient creates a transient provider error.
func ErrTransient(message string) *SiteError {
	return NewError(ErrCategoryTransient, message).WithRetryable(true)
}

// ErrPreconditionFailed creates a precondition error.
func ErrPreconditionFailed(message string) *SiteError {
	return NewError(ErrCategoryPreconditionFailed, message)
}

// ErrNotFound creates a not found error.
func ErrNotFound(resourceType, resourceID string) *SiteError {
	return NewError(ErrCategoryNotFound, fmt.Sprintf("%s not found: %s", resourceType, resourceID)).
		WithResource(resourceType, resourceID)
}

// ErrValidation creates a validation error.
func ErrValidation(message string) *SiteError {
	return NewError(ErrCategoryValidation, message)
}

// ErrInternal creates an internal error.
func ErrInternal(message string) *SiteError {
	return NewError(ErrCategoryInternal, message)
}

// IsCategory checks if an error is of a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	var siteErr *SiteError
	if errors.As(err, &siteErr) {
		return siteErr.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var siteErr *SiteError
	if errors.As(err, &siteErr) {
		return siteErr.Retryable
	}
	return false
}

// CategoryOf returns the category of the first SiteError in the chain.
func CategoryOf(err error) ErrorCategory {
	var siteErr *SiteError
	if errors.As(err, &siteErr) {
		return siteErr.Category
	}
	return ""
}

// StepError reports the workflow step that failed and the steps that
// completed before it. Workflows never roll back, so Completed describes
// exactly what exists after the failure.
type StepError struct {
	// Workflow is the workflow that was running.
	Workflow Workflow

	// Step is the step that failed.
	Step string

	// Completed lists the steps that finished before the failure.
	Completed []string

	// Cause is the step's error.
	Cause error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s failed at step %q", e.Workflow, e.Step)
	if len(e.Completed) > 0 {
		msg = fmt.Sprintf("%s (completed: %s)", msg, strings.Join(e.Completed, ", "))
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

// Unwrap returns the step's error.
func (e *StepError) Unwrap() error {
	return e.Cause
}

// UploadError reports a partially completed upload.
type UploadError struct {
	// Uploaded lists the keys that were stored before the failure.
	Uploaded []string

	// Key is the key that failed.
	Key string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %s failed after %d objects: %v", e.Key, len(e.Uploaded), e.Cause)
}

// Unwrap returns the underlying error.
func (e *UploadError) Unwrap() error {
	return e.Cause
}
