package sitestack

import (
	"encoding/json"
	"time"
)

// Workflow identifies an orchestrator workflow.
type Workflow string

const (
	WorkflowProvision    Workflow = "provision"
	WorkflowSync         Workflow = "sync"
	WorkflowPurge        Workflow = "purge"
	WorkflowDecommission Workflow = "decommission"
)

// Step names, in the order the workflows run them.
const (
	StepEnsureBucket          = "ensure-bucket"
	StepConfigureWebsite      = "configure-website"
	StepOpenPublicAccess      = "open-public-access"
	StepApplyPublicReadPolicy = "apply-public-read-policy"
	StepEnsureDistribution    = "ensure-distribution"
	StepUpsertAlias           = "upsert-alias"

	StepUpload     = "upload"
	StepInvalidate = "invalidate"

	StepLocateDistribution = "locate-distribution"
	StepDeleteDistribution = "disable-and-delete-distribution"
	StepDeleteAlias        = "delete-alias"
	StepEmptyBucket        = "empty-bucket"
	StepDeleteBucket       = "delete-bucket"
)

// Fixed values the stack is built from.
const (
	// DefaultRegion is the region whose bucket endpoints and create calls
	// carry no region segment.
	DefaultRegion = "us-east-1"

	IndexDocument = "index.html"
	ErrorDocument = "error.html"

	// CloudFrontHostedZoneID is the zone every CloudFront alias target lives in.
	CloudFrontHostedZoneID = "Z2FDTNDATAQYW2"

	// MinimumProtocolVersion is the lowest TLS version viewers may negotiate.
	MinimumProtocolVersion = "TLSv1.2_2021"

	// RecordTypeA is the only record type the stack manages.
	RecordTypeA = "A"

	// DeleteBatchSize is the maximum number of keys per delete request.
	DeleteBatchSize = 1000

	// DefaultPollInterval and DefaultPollAttempts bound the propagation wait.
	DefaultPollInterval = 30 * time.Second
	DefaultPollAttempts = 60
)

// StepStatus describes how a workflow step ended.
type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	// StepStatusAbsent means the step found nothing to act on.
	StepStatusAbsent  StepStatus = "absent"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

// CreateOutcome is the typed result of an idempotent create call.
type CreateOutcome int

const (
	CreateOutcomeCreated CreateOutcome = iota
	CreateOutcomeAlreadyOwnedByCaller
	CreateOutcomeConflictWithOther
)

// String implements fmt.Stringer.
func (o CreateOutcome) String() string {
	switch o {
	case CreateOutcomeCreated:
		return "created"
	case CreateOutcomeAlreadyOwnedByCaller:
		return "already-owned"
	case CreateOutcomeConflictWithOther:
		return "conflict"
	default:
		return "unknown"
	}
}

// ChangeAction is a DNS change action.
type ChangeAction string

const (
	ChangeActionUpsert ChangeAction = "UPSERT"
	ChangeActionDelete ChangeAction = "DELETE"
)

// DistributionStatus values reported by the CDN.
const (
	DistributionStatusDeployed   = "Deployed"
	DistributionStatusInProgress = "InProgress"
)

// DistributionRecord is a CDN distribution as last read from the provider.
type DistributionRecord struct {
	ID         string   `json:"id"`
	DomainName string   `json:"domain_name"`
	Enabled    bool     `json:"enabled"`
	Aliases    []string `json:"aliases,omitempty"`
	Status     string   `json:"status,omitempty"`

	// ETag is the concurrency token every update or delete must present.
	ETag string `json:"-"`

	// Native is the provider's own configuration payload. Adapters read it
	// back on update so fields the stack does not model survive.
	Native any `json:"-"`
}

// DistributionPage is one page of a distribution listing.
type DistributionPage struct {
	Items []DistributionRecord

	// NextMarker is empty on the last page.
	NextMarker string
}

// ErrorResponse rewrites an origin error status for viewers.
type ErrorResponse struct {
	ErrorCode        int
	ResponsePagePath string
	ResponseCode     string
	MinTTL           int64
}

// DistributionSpec is everything needed to create a distribution.
type DistributionSpec struct {
	CallerReference        string
	Comment                string
	Aliases                []string
	OriginID               string
	OriginDomain           string
	DefaultRootObject      string
	CertificateARN         string
	MinimumProtocolVersion string
	ErrorResponses         []ErrorResponse
}

// AliasRecord is a DNS alias record pointing a name at a CDN hostname.
type AliasRecord struct {
	Name         string
	Type         string
	Target       string
	TargetZoneID string
	ZoneID       string

	// Native is the exact record body returned by the provider. Deletes
	// send it back unchanged.
	Native any
}

// WebsiteConfig is the static website hosting configuration of a bucket.
type WebsiteConfig struct {
	IndexDocument string
	ErrorDocument string
}

// PublicAccessBlock holds the four public-access-block flags.
type PublicAccessBlock struct {
	BlockPublicACLs       bool
	IgnorePublicACLs      bool
	BlockPublicPolicy     bool
	RestrictPublicBuckets bool
}

// ObjectVersion identifies one object version or delete marker.
type ObjectVersion struct {
	Key       string
	VersionID string
}

// ObjectVersionPage is one page of a version listing.
type ObjectVersionPage struct {
	Versions []ObjectVersion

	// Truncated reports whether more pages follow.
	Truncated         bool
	NextKeyMarker     string
	NextVersionMarker string
}

// CertificateRecord describes a TLS certificate.
type CertificateRecord struct {
	ARN                     string
	Status                  string
	DomainName              string
	SubjectAlternativeNames []string
}

// UploadItem is one file to store under Key.
type UploadItem struct {
	Key         string
	Body        []byte
	ContentType string
}

// StepResult records the outcome of one workflow step.
type StepResult struct {
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report is the result of running a workflow.
type Report struct {
	// RunID identifies this run in logs and state.
	RunID    string       `json:"run_id"`
	Workflow Workflow     `json:"workflow"`
	Steps    []StepResult `json:"steps"`

	// Outputs carries resource identifiers produced by the run, such as
	// the distribution ID and hostname.
	Outputs map[string]string `json:"outputs,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Output keys set on Report.Outputs.
const (
	OutputBucket           = "bucket"
	OutputWebsiteEndpoint  = "website_endpoint"
	OutputDistributionID   = "distribution_id"
	OutputDistributionHost = "distribution_domain"
	OutputChangeID         = "change_id"
	OutputInvalidationID   = "invalidation_id"
	OutputUploaded         = "uploaded"
)

// CompletedSteps returns the names of completed or absent steps.
func (r *Report) CompletedSteps() []string {
	var names []string
	for _, s := range r.Steps {
		if s.Status == StepStatusCompleted || s.Status == StepStatusAbsent {
			names = append(names, s.Name)
		}
	}
	return names
}

// Severity indicates the severity level of a validation check.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityWarning:
		return 1
	case SeverityError:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 2
	}
}

// CheckStatus indicates the result of a validation check.
type CheckStatus string

const (
	CheckStatusPassed  CheckStatus = "passed"
	CheckStatusFailed  CheckStatus = "failed"
	CheckStatusSkipped CheckStatus = "skipped"
)

// ValidationCheck represents a single validation check result.
type ValidationCheck struct {
	// ID is a unique identifier for this check type.
	ID string `json:"id"`

	// Name is a human-readable name for the check.
	Name string `json:"name"`

	// Status is the check result.
	Status CheckStatus `json:"status"`

	// Severity indicates how serious a failure would be.
	Severity Severity `json:"severity"`

	// Evidence contains data supporting the check result.
	Evidence map[string]interface{} `json:"evidence,omitempty"`

	// Remediation contains steps to fix a failed check.
	Remediation string `json:"remediation,omitempty"`

	// Duration is how long the check took to run.
	Duration time.Duration `json:"duration"`
}

// ValidationReport contains the results of checking a deployed stack.
type ValidationReport struct {
	Domain string            `json:"domain"`
	Bucket string            `json:"bucket"`
	Checks []ValidationCheck `json:"checks"`

	Summary     ValidationSummary `json:"summary"`
	ValidatedAt time.Time         `json:"validated_at"`
}

// ValidationSummary provides aggregate validation statistics.
type ValidationSummary struct {
	TotalChecks   int  `json:"total_checks"`
	PassedChecks  int  `json:"passed_checks"`
	FailedChecks  int  `json:"failed_checks"`
	SkippedChecks int  `json:"skipped_checks"`
	IsValid       bool `json:"is_valid"`
}

// IsValid returns true unless a check of error severity or above failed.
func (r *ValidationReport) IsValid() bool {
	for _, check := range r.Checks {
		if check.Status == CheckStatusFailed && check.Severity.rank() >= SeverityError.rank() {
			return false
		}
	}
	return true
}

// FailedChecks returns only the checks that failed.
func (r *ValidationReport) FailedChecks() []ValidationCheck {
	var failed []ValidationCheck
	for _, check := range r.Checks {
		if check.Status == CheckStatusFailed {
			failed = append(failed, check)
		}
	}
	return failed
}

// Plan represents a set of planned actions for dry-run mode.
type Plan struct {
	// Actions lists the planned operations.
	Actions []PlannedAction `json:"actions"`

	// Summary provides a human-readable summary.
	Summary string `json:"summary"`

	// Blocked is set when Provision would stop before changing anything.
	Blocked bool `json:"blocked,omitempty"`
}

// PlannedAction represents a single action that would be taken.
type PlannedAction struct {
	// Step is the workflow step that would perform the action.
	Step string `json:"step"`

	// Operation is create, update, configure, none or blocked.
	Operation string `json:"operation"`

	// ResourceType is the type of resource affected.
	ResourceType string `json:"resource_type"`

	// ResourceID is the ID of the resource (if known).
	ResourceID string `json:"resource_id,omitempty"`

	// Details contains operation-specific details.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Planned operations.
const (
	OperationCreate    = "create"
	OperationUpdate    = "update"
	OperationConfigure = "configure"
	OperationNone      = "none"
	OperationBlocked   = "blocked"
)

// Changes returns the actions that would mutate something.
func (p *Plan) Changes() []PlannedAction {
	var out []PlannedAction
	for _, a := range p.Actions {
		if a.Operation != OperationNone && a.Operation != OperationBlocked {
			out = append(out, a)
		}
	}
	return out
}

// String implements fmt.Stringer for Report.
func (r Report) String() string {
	data, _ := json.Marshal(r)
	return string(data)
}
