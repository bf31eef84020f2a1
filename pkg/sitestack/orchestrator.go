package sitestack

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Orchestrator sequences the stack's workflows across the object store,
// the CDN and DNS. Steps run strictly in order; the first failure stops the
// workflow and nothing is rolled back.
type Orchestrator struct {
	cfg     SiteConfig
	backend *Backend

	origin        *OriginStore
	distributions *DistributionProvisioner
	dns           *DNSRecordManager

	state      StateStore
	validators []Validator
	logger     *zap.Logger
	now        func() time.Time
}

// OrchestratorOption configures the Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithStateStore sets the state store.
func WithStateStore(s StateStore) OrchestratorOption {
	return func(o *Orchestrator) {
		o.state = s
	}
}

// WithPolling overrides the propagation wait bounds from the config.
func WithPolling(interval time.Duration, attempts int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.cfg.PollInterval = interval
		o.cfg.PollAttempts = attempts
	}
}

// WithSleeper replaces the wait between propagation polls.
func WithSleeper(s Sleeper) OrchestratorOption {
	return func(o *Orchestrator) {
		o.distributions.sleep = s
	}
}

// WithClock sets the time source used for caller references and reports.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithValidators replaces the checks Status runs.
func WithValidators(v ...Validator) OrchestratorOption {
	return func(o *Orchestrator) {
		o.validators = v
	}
}

// NewOrchestrator validates cfg and wires the components to backend.
func NewOrchestrator(cfg SiteConfig, backend *Backend, opts ...OrchestratorOption) (*Orchestrator, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := backend.check(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:           cfg,
		backend:       backend,
		distributions: NewDistributionProvisioner(backend.CDN, nil),
		state:         NewMemoryStateStore(),
		logger:        zap.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.logger = o.logger.With(zap.String("domain", cfg.Domain), zap.String("bucket", cfg.Bucket))
	o.origin = NewOriginStore(backend.Objects, o.logger)
	o.dns = NewDNSRecordManager(backend.DNS, o.logger)
	o.distributions.logger = o.logger
	o.distributions.locator = NewLocator(backend.CDN, o.logger)
	o.distributions.pollInterval = o.cfg.PollInterval
	o.distributions.pollAttempts = o.cfg.PollAttempts
	o.distributions.now = o.now
	if o.validators == nil {
		o.validators = StandardValidators(o.cfg, backend)
	}
	return o, nil
}

// Config returns the configuration the orchestrator runs with.
func (o *Orchestrator) Config() SiteConfig {
	return o.cfg
}

// run tracks one workflow execution.
type run struct {
	o      *Orchestrator
	report *Report
	state  StackState
	logger *zap.Logger
}

func (o *Orchestrator) begin(ctx context.Context, wf Workflow) *run {
	runID := uuid.NewString()
	st := StackState{Domain: o.cfg.Domain, Bucket: o.cfg.Bucket, Region: o.cfg.Region}
	prev, err := o.state.Load(ctx, o.cfg.Domain)
	switch {
	case err == nil:
		st.DistributionID = prev.DistributionID
		st.DistributionDomain = prev.DistributionDomain
	case !IsCategory(err, ErrCategoryNotFound):
		o.logger.Warn("failed to load stack state", zap.Error(err))
	}
	st.Workflow = wf
	st.RunID = runID
	st.CompletedSteps = []string{}

	r := &run{
		o: o,
		report: &Report{
			RunID:     runID,
			Workflow:  wf,
			Outputs:   make(map[string]string),
			StartedAt: o.now(),
		},
		state:  st,
		logger: o.logger.With(zap.String("workflow", string(wf)), zap.String("run_id", runID)),
	}
	r.logger.Info("workflow started")
	return r
}

// step runs fn, records its outcome in the report and the journal, and
// turns a failure into a StepError.
func (r *run) step(ctx context.Context, name string, fn func(context.Context) (StepStatus, string, error)) error {
	start := r.o.now()
	r.logger.Info("step started", zap.String("step", name))

	status, detail, err := fn(ctx)
	result := StepResult{Name: name, Status: status, Detail: detail, Duration: r.o.now().Sub(start)}

	if err != nil {
		var siteErr *SiteError
		if errors.As(err, &siteErr) && siteErr.Step == "" {
			siteErr.Step = name
		}
		result.Status = StepStatusFailed
		r.report.Steps = append(r.report.Steps, result)
		r.state.FailedStep = name
		r.state.LastError = err.Error()
		r.save(ctx)

		r.logger.Error("step failed", zap.String("step", name), zap.Error(err))
		return &StepError{
			Workflow:  r.report.Workflow,
			Step:      name,
			Completed: r.report.CompletedSteps(),
			Cause:     err,
		}
	}

	r.report.Steps = append(r.report.Steps, result)
	if status != StepStatusSkipped {
		r.state.CompletedSteps = append(r.state.CompletedSteps, name)
	}
	r.save(ctx)

	r.logger.Info("step finished",
		zap.String("step", name),
		zap.String("status", string(status)),
		zap.String("detail", detail),
		zap.Duration("duration", result.Duration))
	return nil
}

func (r *run) save(ctx context.Context) {
	r.state.UpdatedAt = r.o.now()
	if err := r.o.state.Save(ctx, r.state); err != nil {
		r.logger.Warn("failed to save stack state", zap.Error(err))
	}
}

func (r *run) finish() *Report {
	r.report.FinishedAt = r.o.now()
	r.logger.Info("workflow finished",
		zap.Int("steps", len(r.report.Steps)),
		zap.Duration("elapsed", r.report.FinishedAt.Sub(r.report.StartedAt)))
	return r.report
}

// Provision creates or reconciles the bucket, the distribution and the
// alias record, in that order. Running it again against an existing stack
// creates nothing new.
func (o *Orchestrator) Provision(ctx context.Context) (*Report, error) {
	r := o.begin(ctx, WorkflowProvision)
	bucket, region := o.cfg.Bucket, o.cfg.Region

	err := r.step(ctx, StepEnsureBucket, func(ctx context.Context) (StepStatus, string, error) {
		created, err := o.origin.EnsureBucket(ctx, bucket, region)
		if err != nil {
			return "", "", err
		}
		r.report.Outputs[OutputBucket] = bucket
		if created {
			return StepStatusCompleted, "created", nil
		}
		return StepStatusCompleted, "already owned", nil
	})
	if err != nil {
		return r.finish(), err
	}

	for _, s := range []struct {
		name string
		fn   func(context.Context, string) error
	}{
		{StepConfigureWebsite, o.origin.ConfigureWebsite},
		{StepOpenPublicAccess, o.origin.OpenPublicAccess},
		{StepApplyPublicReadPolicy, o.origin.ApplyPublicReadPolicy},
	} {
		fn := s.fn
		if err := r.step(ctx, s.name, func(ctx context.Context) (StepStatus, string, error) {
			return StepStatusCompleted, "", fn(ctx, bucket)
		}); err != nil {
			return r.finish(), err
		}
	}
	r.report.Outputs[OutputWebsiteEndpoint] = WebsiteEndpoint(bucket, region)

	var hostname string
	err = r.step(ctx, StepEnsureDistribution, func(ctx context.Context) (StepStatus, string, error) {
		id, host, created, err := o.distributions.EnsureDistribution(ctx, bucket, o.cfg.Domain, o.cfg.CertificateARN, region)
		if err != nil {
			return "", "", err
		}
		hostname = host
		r.state.DistributionID = id
		r.state.DistributionDomain = host
		r.report.Outputs[OutputDistributionID] = id
		r.report.Outputs[OutputDistributionHost] = host
		if created {
			return StepStatusCompleted, "created " + id, nil
		}
		return StepStatusCompleted, "existing " + id, nil
	})
	if err != nil {
		return r.finish(), err
	}

	err = r.step(ctx, StepUpsertAlias, func(ctx context.Context) (StepStatus, string, error) {
		changeID, err := o.dns.UpsertAlias(ctx, o.cfg.Domain, hostname, o.cfg.HostedZoneID)
		if err != nil {
			return "", "", err
		}
		r.report.Outputs[OutputChangeID] = changeID
		return StepStatusCompleted, o.cfg.Domain + " -> " + hostname, nil
	})
	if err != nil {
		return r.finish(), err
	}

	return r.finish(), nil
}

// Sync uploads items to the bucket. It does not purge the CDN cache; call
// Purge for that.
func (o *Orchestrator) Sync(ctx context.Context, items []UploadItem) (*Report, error) {
	r := o.begin(ctx, WorkflowSync)

	err := r.step(ctx, StepUpload, func(ctx context.Context) (StepStatus, string, error) {
		uploaded, err := o.origin.Upload(ctx, o.cfg.Bucket, items)
		r.report.Outputs[OutputUploaded] = strconv.Itoa(len(uploaded))
		if err != nil {
			return "", "", err
		}
		return StepStatusCompleted, fmt.Sprintf("%d objects", len(uploaded)), nil
	})
	return r.finish(), err
}

// Purge invalidates every cached path on the distribution serving the
// domain. A missing distribution is reported as absent.
func (o *Orchestrator) Purge(ctx context.Context) (*Report, error) {
	r := o.begin(ctx, WorkflowPurge)

	err := r.step(ctx, StepInvalidate, func(ctx context.Context) (StepStatus, string, error) {
		id, found, err := o.distributions.Invalidate(ctx, o.cfg.Domain)
		if err != nil {
			return "", "", err
		}
		if !found {
			return StepStatusAbsent, "no distribution serves " + o.cfg.Domain, nil
		}
		r.report.Outputs[OutputInvalidationID] = id
		return StepStatusCompleted, id, nil
	})
	return r.finish(), err
}

// Decommission tears the stack down in reverse: the distribution is
// disabled, allowed to finish deploying and deleted, then the alias record
// is removed, and only then is the bucket emptied and deleted. Resources
// that are already gone are reported as absent.
func (o *Orchestrator) Decommission(ctx context.Context) (*Report, error) {
	r := o.begin(ctx, WorkflowDecommission)

	var dist *DistributionRecord
	err := r.step(ctx, StepLocateDistribution, func(ctx context.Context) (StepStatus, string, error) {
		rec, found, err := o.distributions.locator.FindDistributionByDomain(ctx, o.cfg.Domain)
		if err != nil {
			return "", "", err
		}
		if !found {
			return StepStatusAbsent, "no distribution serves " + o.cfg.Domain, nil
		}
		dist = rec
		r.state.DistributionID = rec.ID
		r.state.DistributionDomain = rec.DomainName
		r.report.Outputs[OutputDistributionID] = rec.ID
		return StepStatusCompleted, rec.ID, nil
	})
	if err != nil {
		return r.finish(), err
	}

	err = r.step(ctx, StepDeleteDistribution, func(ctx context.Context) (StepStatus, string, error) {
		if dist == nil {
			return StepStatusSkipped, "nothing located", nil
		}
		if err := o.distributions.DisableAndDelete(ctx, dist.ID); err != nil {
			return "", "", err
		}
		r.state.DistributionID = ""
		r.state.DistributionDomain = ""
		return StepStatusCompleted, dist.ID, nil
	})
	if err != nil {
		return r.finish(), err
	}

	err = r.step(ctx, StepDeleteAlias, func(ctx context.Context) (StepStatus, string, error) {
		found, err := o.dns.DeleteAlias(ctx, o.cfg.Domain, o.cfg.HostedZoneID)
		if err != nil {
			return "", "", err
		}
		if !found {
			return StepStatusAbsent, "no record for " + o.cfg.Domain, nil
		}
		return StepStatusCompleted, o.cfg.Domain, nil
	})
	if err != nil {
		return r.finish(), err
	}

	err = r.step(ctx, StepEmptyBucket, func(ctx context.Context) (StepStatus, string, error) {
		deleted, found, err := o.origin.Empty(ctx, o.cfg.Bucket)
		if err != nil {
			return "", "", err
		}
		if !found {
			return StepStatusAbsent, "bucket missing", nil
		}
		return StepStatusCompleted, fmt.Sprintf("%d versions deleted", deleted), nil
	})
	if err != nil {
		return r.finish(), err
	}

	err = r.step(ctx, StepDeleteBucket, func(ctx context.Context) (StepStatus, string, error) {
		found, err := o.origin.DeleteBucket(ctx, o.cfg.Bucket)
		if err != nil {
			return "", "", err
		}
		if !found {
			return StepStatusAbsent, "bucket missing", nil
		}
		return StepStatusCompleted, o.cfg.Bucket, nil
	})
	if err != nil {
		return r.finish(), err
	}

	if err := o.state.Delete(ctx, o.cfg.Domain); err != nil {
		r.logger.Warn("failed to remove stack state", zap.Error(err))
	}
	return r.finish(), nil
}

// Plan reports what Provision would do without changing anything.
func (o *Orchestrator) Plan(ctx context.Context) (*Plan, error) {
	bucket := o.cfg.Bucket
	plan := &Plan{}

	exists, err := o.backend.Objects.BucketExists(ctx, bucket)
	if IsCategory(err, ErrCategoryNamingCollision) {
		plan.Blocked = true
		plan.Actions = append(plan.Actions, PlannedAction{
			Step: StepEnsureBucket, Operation: OperationBlocked, ResourceType: "bucket", ResourceID: bucket,
			Details: map[string]interface{}{"reason": "bucket name is owned by another account"},
		})
		plan.Summary = fmt.Sprintf("provision would stop at %s: bucket %s is owned by another account", StepEnsureBucket, bucket)
		return plan, nil
	}
	if err != nil {
		return nil, ErrLookupFailed("bucket", bucket).WithCause(err)
	}
	bucketOp := OperationCreate
	if exists {
		bucketOp = OperationNone
	}
	plan.Actions = append(plan.Actions,
		PlannedAction{Step: StepEnsureBucket, Operation: bucketOp, ResourceType: "bucket", ResourceID: bucket,
			Details: map[string]interface{}{"region": o.cfg.Region, "location_constraint": BucketLocation(o.cfg.Region)}},
		PlannedAction{Step: StepConfigureWebsite, Operation: OperationConfigure, ResourceType: "bucket", ResourceID: bucket,
			Details: map[string]interface{}{"index": IndexDocument, "error": ErrorDocument}},
		PlannedAction{Step: StepOpenPublicAccess, Operation: OperationConfigure, ResourceType: "bucket", ResourceID: bucket},
		PlannedAction{Step: StepApplyPublicReadPolicy, Operation: OperationConfigure, ResourceType: "bucket", ResourceID: bucket,
			Details: map[string]interface{}{"policy": PublicReadPolicy(bucket)}},
	)

	dist, found, err := o.distributions.locator.FindDistributionByDomain(ctx, o.cfg.Domain)
	if err != nil {
		return nil, err
	}
	distAction := PlannedAction{Step: StepEnsureDistribution, ResourceType: "distribution"}
	hostname := ""
	if found {
		distAction.Operation = OperationNone
		distAction.ResourceID = dist.ID
		hostname = dist.DomainName
	} else {
		spec := BuildDistributionSpec(bucket, o.cfg.Domain, o.cfg.CertificateARN, o.cfg.Region, o.now())
		distAction.Operation = OperationCreate
		distAction.Details = map[string]interface{}{
			"origin":          spec.OriginDomain,
			"aliases":         spec.Aliases,
			"certificate_arn": spec.CertificateARN,
		}
	}
	plan.Actions = append(plan.Actions, distAction)

	rec, err := o.dns.find(ctx, o.cfg.HostedZoneID, o.cfg.Domain)
	if err != nil {
		return nil, err
	}
	aliasAction := PlannedAction{Step: StepUpsertAlias, ResourceType: "dns record", ResourceID: o.cfg.Domain,
		Details: map[string]interface{}{"zone": o.cfg.HostedZoneID}}
	switch {
	case rec == nil:
		aliasAction.Operation = OperationCreate
	case hostname != "" && sameName(rec.Target, hostname):
		aliasAction.Operation = OperationNone
	default:
		aliasAction.Operation = OperationUpdate
		aliasAction.Details["previous_target"] = rec.Target
	}
	plan.Actions = append(plan.Actions, aliasAction)

	plan.Summary = fmt.Sprintf("%d of %d steps change resources", len(plan.Changes()), len(plan.Actions))
	return plan, nil
}

// Status runs the configured validators against the live stack.
func (o *Orchestrator) Status(ctx context.Context) *ValidationReport {
	return RunValidation(ctx, o.cfg, o.validators)
}

// State returns the journal entry for the configured domain.
func (o *Orchestrator) State(ctx context.Context) (*StackState, error) {
	return o.state.Load(ctx, o.cfg.Domain)
}
