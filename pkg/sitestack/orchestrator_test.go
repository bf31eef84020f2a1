package sitestack_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/anirudhbiyani/sitestack/pkg/providers/memory"
	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

func testConfig() sitestack.SiteConfig {
	return sitestack.SiteConfig{
		Domain:         "example.com",
		HostedZoneID:   "Z123",
		CertificateARN: "arn:cert:1",
		Bucket:         "site-bucket",
		Region:         "us-east-1",
	}
}

func newCloud(opts ...memory.Option) *memory.Cloud {
	c := memory.NewCloud(opts...)
	c.AddCertificate(sitestack.CertificateRecord{
		ARN:        "arn:cert:1",
		Status:     sitestack.CertificateStatusIssued,
		DomainName: "example.com",
	})
	return c
}

func noSleep(n *int) sitestack.Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		if n != nil {
			*n++
		}
		return nil
	}
}

func newOrchestrator(t *testing.T, backend *sitestack.Backend, opts ...sitestack.OrchestratorOption) *sitestack.Orchestrator {
	t.Helper()
	o, err := sitestack.NewOrchestrator(testConfig(), backend, append([]sitestack.OrchestratorOption{sitestack.WithSleeper(noSleep(nil))}, opts...)...)
	require.NoError(t, err)
	return o
}

func stepStatuses(r *sitestack.Report) map[string]sitestack.StepStatus {
	out := make(map[string]sitestack.StepStatus, len(r.Steps))
	for _, s := range r.Steps {
		out[s.Name] = s.Status
	}
	return out
}

func indexOf(calls []memory.Call, match func(memory.Call) bool) int {
	for i, c := range calls {
		if match(c) {
			return i
		}
	}
	return -1
}

func TestProvision_EndToEnd(t *testing.T) {
	ctx := context.Background()
	cloud := newCloud()
	o := newOrchestrator(t, cloud.Backend())

	report, err := o.Provision(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		sitestack.StepEnsureBucket,
		sitestack.StepConfigureWebsite,
		sitestack.StepOpenPublicAccess,
		sitestack.StepApplyPublicReadPolicy,
		sitestack.StepEnsureDistribution,
		sitestack.StepUpsertAlias,
	}, report.CompletedSteps())
	assert.Equal(t, "site-bucket.s3-website.amazonaws.com", report.Outputs[sitestack.OutputWebsiteEndpoint])

	b, ok := cloud.Bucket("site-bucket")
	require.True(t, ok)
	assert.Equal(t, "us-east-1", b.Region)
	require.NotNil(t, b.Website)
	assert.Equal(t, "index.html", b.Website.IndexDocument)
	assert.Equal(t, "error.html", b.Website.ErrorDocument)
	assert.Equal(t, sitestack.PublicAccessBlock{}, *b.Block)
	assert.Contains(t, b.Policy, "arn:aws:s3:::site-bucket/*")

	distID := report.Outputs[sitestack.OutputDistributionID]
	rec, spec, ok := cloud.Distribution(distID)
	require.True(t, ok)
	assert.Equal(t, []string{"example.com"}, rec.Aliases)
	assert.Equal(t, "site-bucket.s3-website.amazonaws.com", spec.OriginDomain)
	assert.Equal(t, "arn:cert:1", spec.CertificateARN)
	assert.Equal(t, sitestack.MinimumProtocolVersion, spec.MinimumProtocolVersion)

	alias, ok := cloud.Record("Z123", "example.com", sitestack.RecordTypeA)
	require.True(t, ok)
	assert.Equal(t, rec.DomainName+".", alias.Target)
	assert.Equal(t, sitestack.CloudFrontHostedZoneID, alias.TargetZoneID)

	_, err = o.Sync(ctx, []sitestack.UploadItem{
		{Key: "index.html", Body: []byte("<h1>home</h1>"), ContentType: "text/html"},
		{Key: "assets/app.js", Body: []byte("console.log(1)"), ContentType: "application/javascript"},
	})
	require.NoError(t, err)

	resp := cloud.Serve("example.com", "/missing")
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "<h1>home</h1>", string(resp.Body))

	resp = cloud.Serve("example.com", "/")
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "text/html", resp.ContentType)

	resp = cloud.Serve("example.com", "/assets/app.js")
	assert.Equal(t, "application/javascript", resp.ContentType)
}

func TestProvision_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	cloud := newCloud()
	o := newOrchestrator(t, cloud.Backend())

	first, err := o.Provision(ctx)
	require.NoError(t, err)
	second, err := o.Provision(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, cloud.BucketCount())
	assert.Equal(t, 1, cloud.DistributionCount())
	assert.Equal(t, 1, cloud.RecordCount("Z123"))
	assert.Equal(t, 1, cloud.CallCount(memory.OpCreateDistribution))
	assert.Equal(t, first.Outputs[sitestack.OutputDistributionID], second.Outputs[sitestack.OutputDistributionID])
	assert.Equal(t, "already owned", second.Steps[0].Detail)
	assert.True(t, strings.HasPrefix(second.Steps[4].Detail, "existing "))
}

func TestProvision_FindsDistributionOnLaterPage(t *testing.T) {
	cloud := newCloud(memory.WithPageSize(1))
	cloud.AddDistribution("EOTHER1", "dother1.cloudfront.net", "other.example.org")
	cloud.AddDistribution("EOTHER2", "dother2.cloudfront.net", "www.example.com")
	cloud.AddDistribution("EMINE", "dmine.cloudfront.net", "example.com")
	o := newOrchestrator(t, cloud.Backend())

	report, err := o.Provision(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "EMINE", report.Outputs[sitestack.OutputDistributionID])
	assert.Equal(t, 0, cloud.CallCount(memory.OpCreateDistribution))
	assert.Equal(t, 3, cloud.CallCount(memory.OpListDistributions))

	alias, ok := cloud.Record("Z123", "example.com", sitestack.RecordTypeA)
	require.True(t, ok)
	assert.Equal(t, "dmine.cloudfront.net.", alias.Target)
}

func TestProvision_NamingCollisionStopsBeforeConfiguration(t *testing.T) {
	cloud := newCloud()
	cloud.AddForeignBucket("site-bucket")
	store := sitestack.NewMemoryStateStore()
	o := newOrchestrator(t, cloud.Backend(), sitestack.WithStateStore(store))

	report, err := o.Provision(context.Background())
	require.Error(t, err)
	assert.True(t, sitestack.IsCategory(err, sitestack.ErrCategoryNamingCollision))

	var stepErr *sitestack.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, sitestack.StepEnsureBucket, stepErr.Step)
	assert.Empty(t, stepErr.Completed)
	assert.Equal(t, sitestack.StepStatusFailed, report.Steps[0].Status)

	assert.Equal(t, 0, cloud.CallCount(memory.OpPutWebsite))
	assert.Equal(t, 0, cloud.CallCount(memory.OpPutBucketPolicy))
	assert.Equal(t, 0, cloud.CallCount(memory.OpCreateDistribution))

	st, err := store.Load(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, sitestack.StepEnsureBucket, st.FailedStep)
	assert.Contains(t, st.LastError, "naming_collision")
}

func TestProvision_LookupFailureIsNotNotFound(t *testing.T) {
	cloud := newCloud()
	cloud.FailOn(memory.OpListDistributions, sitestack.ErrTransient("throttled"))
	o := newOrchestrator(t, cloud.Backend())

	_, err := o.Provision(context.Background())
	require.Error(t, err)
	assert.True(t, sitestack.IsCategory(err, sitestack.ErrCategoryLookupFailed))
	assert.True(t, sitestack.IsRetryable(err))

	var stepErr *sitestack.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, sitestack.StepEnsureDistribution, stepErr.Step)
	assert.Len(t, stepErr.Completed, 4)
	assert.Equal(t, 0, cloud.CallCount(memory.OpCreateDistribution))
	assert.Equal(t, 0, cloud.CallCount(memory.OpChangeRecord))
}

func TestProvision_CallerReferenceFollowsClock(t *testing.T) {
	cloud := newCloud()
	o := newOrchestrator(t, cloud.Backend(),
		sitestack.WithClock(func() time.Time { return time.Unix(1700000000, 0) }))

	report, err := o.Provision(context.Background())
	require.NoError(t, err)

	_, spec, ok := cloud.Distribution(report.Outputs[sitestack.OutputDistributionID])
	require.True(t, ok)
	assert.Equal(t, "site-bucket-1700000000", spec.CallerReference)
}

func TestProvision_LogsEveryStep(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	o := newOrchestrator(t, newCloud().Backend(), sitestack.WithLogger(zap.New(core)))

	_, err := o.Provision(context.Background())
	require.NoError(t, err)

	started := logs.FilterMessage("step started").All()
	require.Len(t, started, 6)
	for _, entry := range started {
		fields := entry.ContextMap()
		assert.Equal(t, "provision", fields["workflow"])
		assert.Equal(t, "example.com", fields["domain"])
	}
	assert.Equal(t, 1, logs.FilterMessage("workflow finished").Len())
}

func TestProvision_JournalsProgress(t *testing.T) {
	ctx := context.Background()
	store := sitestack.NewMemoryStateStore()
	o := newOrchestrator(t, newCloud().Backend(), sitestack.WithStateStore(store))

	report, err := o.Provision(ctx)
	require.NoError(t, err)

	st, err := o.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, st.RunID)
	assert.Equal(t, report.Outputs[sitestack.OutputDistributionID], st.DistributionID)
	assert.Len(t, st.CompletedSteps, 6)
	assert.Empty(t, st.FailedStep)
	assert.Equal(t, 6, store.Saves())
}

type failingObjects struct {
	sitestack.ObjectStoreAPI
	failKey string
}

func (f *failingObjects) PutObject(ctx context.Context, bucket string, item sitestack.UploadItem) error {
	if item.Key == f.failKey {
		return sitestack.ErrTransient("connection reset")
	}
	return f.ObjectStoreAPI.PutObject(ctx, bucket, item)
}

func TestSync_ReportsPartialUpload(t *testing.T) {
	ctx := context.Background()
	cloud := newCloud()
	backend := cloud.Backend()
	backend.Objects = &failingObjects{ObjectStoreAPI: backend.Objects, failKey: "b.css"}
	o := newOrchestrator(t, backend)

	_, err := o.Provision(ctx)
	require.NoError(t, err)

	report, err := o.Sync(ctx, []sitestack.UploadItem{
		{Key: "a.html", Body: []byte("a"), ContentType: "text/html"},
		{Key: "b.css", Body: []byte("b"), ContentType: "text/css"},
		{Key: "c.js", Body: []byte("c"), ContentType: "application/javascript"},
	})
	require.Error(t, err)

	var uploadErr *sitestack.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, []string{"a.html"}, uploadErr.Uploaded)
	assert.Equal(t, "b.css", uploadErr.Key)
	assert.Equal(t, "1", report.Outputs[sitestack.OutputUploaded])

	_, _, ok := cloud.Object("site-bucket", "c.js")
	assert.False(t, ok)
	assert.Equal(t, 0, cloud.CallCount(memory.OpCreateInvalidation))
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	cloud := newCloud()
	o := newOrchestrator(t, cloud.Backend())

	report, err := o.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, sitestack.StepStatusAbsent, report.Steps[0].Status)

	prov, err := o.Provision(ctx)
	require.NoError(t, err)
	report, err = o.Purge(ctx)
	require.NoError(t, err)

	invs := cloud.Invalidations(prov.Outputs[sitestack.OutputDistributionID])
	require.Len(t, invs, 1)
	assert.Equal(t, []string{"/*"}, invs[0].Paths)
	assert.True(t, strings.HasPrefix(invs[0].CallerReference, "invalidation-"))
	assert.Equal(t, invs[0].ID, report.Outputs[sitestack.OutputInvalidationID])
}

func TestDecommission_RemovesAliasBeforeEmptyingBucket(t *testing.T) {
	ctx := context.Background()
	cloud := newCloud()
	store := sitestack.NewMemoryStateStore()
	o := newOrchestrator(t, cloud.Backend(), sitestack.WithStateStore(store))

	_, err := o.Provision(ctx)
	require.NoError(t, err)
	_, err = o.Sync(ctx, []sitestack.UploadItem{{Key: "index.html", Body: []byte("x"), ContentType: "text/html"}})
	require.NoError(t, err)
	cloud.ResetCalls()

	report, err := o.Decommission(ctx)
	require.NoError(t, err)
	assert.Len(t, report.CompletedSteps(), 5)

	calls := cloud.Calls()
	deleteDist := indexOf(calls, func(c memory.Call) bool { return c.Op == memory.OpDeleteDistribution })
	deleteAlias := indexOf(calls, func(c memory.Call) bool {
		return c.Op == memory.OpChangeRecord && strings.HasPrefix(c.Target, "DELETE")
	})
	listVersions := indexOf(calls, func(c memory.Call) bool { return c.Op == memory.OpListObjectVersions })
	deleteBucket := indexOf(calls, func(c memory.Call) bool { return c.Op == memory.OpDeleteBucket })

	require.NotEqual(t, -1, deleteDist)
	require.NotEqual(t, -1, deleteAlias)
	assert.Less(t, deleteDist, deleteAlias)
	assert.Less(t, deleteAlias, listVersions)
	assert.Less(t, listVersions, deleteBucket)

	assert.Equal(t, 0, cloud.BucketCount())
	assert.Equal(t, 0, cloud.DistributionCount())
	assert.Equal(t, 0, cloud.RecordCount("Z123"))

	_, err = store.Load(ctx, "example.com")
	assert.True(t, sitestack.IsCategory(err, sitestack.ErrCategoryNotFound))
}

func TestDecommission_AbsentStack(t *testing.T) {
	cloud := newCloud()
	o := newOrchestrator(t, cloud.Backend())

	report, err := o.Decommission(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]sitestack.StepStatus{
		sitestack.StepLocateDistribution: sitestack.StepStatusAbsent,
		sitestack.StepDeleteDistribution: sitestack.StepStatusSkipped,
		sitestack.StepDeleteAlias:        sitestack.StepStatusAbsent,
		sitestack.StepEmptyBucket:        sitestack.StepStatusAbsent,
		sitestack.StepDeleteBucket:       sitestack.StepStatusAbsent,
	}, stepStatuses(report))
	assert.Equal(t, 0, cloud.CallCount(memory.OpDeleteObjects))
	assert.Equal(t, 0, cloud.CallCount(memory.OpChangeRecord))
}

func TestDecommission_LeavesUnrelatedRecord(t *testing.T) {
	cloud := newCloud()
	cloud.AddRecord("Z123", sitestack.AliasRecord{
		Name:         "www.example.com",
		Type:         sitestack.RecordTypeA,
		Target:       "dother.cloudfront.net",
		TargetZoneID: sitestack.CloudFrontHostedZoneID,
	})
	o := newOrchestrator(t, cloud.Backend())

	report, err := o.Decommission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sitestack.StepStatusAbsent, stepStatuses(report)[sitestack.StepDeleteAlias])
	assert.Equal(t, 1, cloud.RecordCount("Z123"))
}

func TestDecommission_EmptiesInBoundedBatches(t *testing.T) {
	ctx := context.Background()
	cloud := newCloud(memory.WithPageSize(1500))
	backend := cloud.Backend()
	o := newOrchestrator(t, backend)

	_, err := o.Provision(ctx)
	require.NoError(t, err)
	for i := 0; i < 1250; i++ {
		key := fmt.Sprintf("assets/file-%04d.js", i)
		for v := 0; v < 2; v++ {
			require.NoError(t, backend.Objects.PutObject(ctx, "site-bucket", sitestack.UploadItem{Key: key, Body: []byte{byte(v)}}))
		}
	}
	b, _ := cloud.Bucket("site-bucket")
	require.Equal(t, 2500, b.Objects)

	report, err := o.Decommission(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, cloud.CallCount(memory.OpDeleteObjects))
	for _, s := range report.Steps {
		if s.Name == sitestack.StepEmptyBucket {
			assert.Equal(t, "2500 versions deleted", s.Detail)
		}
	}
	assert.Equal(t, 0, cloud.BucketCount())
}

func TestDecommission_RetriesStaleTokenOnce(t *testing.T) {
	ctx := context.Background()
	cloud := newCloud()
	o := newOrchestrator(t, cloud.Backend())

	prov, err := o.Provision(ctx)
	require.NoError(t, err)
	cloud.ConflictNext(prov.Outputs[sitestack.OutputDistributionID], 1)

	_, err = o.Decommission(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cloud.CallCount(memory.OpUpdateDistribution))
	assert.Equal(t, 0, cloud.DistributionCount())
}

func TestDecommission_AlreadyDisabledRetriesStaleDeleteToken(t *testing.T) {
	ctx := context.Background()
	cloud := newCloud()
	o := newOrchestrator(t, cloud.Backend())

	prov, err := o.Provision(ctx)
	require.NoError(t, err)
	id := prov.Outputs[sitestack.OutputDistributionID]

	cdn := cloud.Backend().CDN
	rec, err := cdn.GetDistribution(ctx, id)
	require.NoError(t, err)
	rec.Enabled = false
	_, err = cdn.UpdateDistribution(ctx, *rec)
	require.NoError(t, err)

	cloud.ConflictNext(id, 1)
	cloud.ResetCalls()

	_, err = o.Decommission(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, cloud.CallCount(memory.OpUpdateDistribution))
	assert.Equal(t, 2, cloud.CallCount(memory.OpDeleteDistribution))
	assert.Equal(t, 0, cloud.DistributionCount())
}

func TestDecommission_SecondStaleTokenFails(t *testing.T) {
	ctx := context.Background()
	cloud := newCloud()
	o := newOrchestrator(t, cloud.Backend())

	prov, err := o.Provision(ctx)
	require.NoError(t, err)
	cloud.ConflictNext(prov.Outputs[sitestack.OutputDistributionID], 2)

	_, err = o.Decommission(ctx)
	require.Error(t, err)
	assert.True(t, sitestack.IsCategory(err, sitestack.ErrCategoryConcurrencyConflict))

	var stepErr *sitestack.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, sitestack.StepDeleteDistribution, stepErr.Step)
	assert.Equal(t, []string{sitestack.StepLocateDistribution}, stepErr.Completed)

	assert.Equal(t, 1, cloud.DistributionCount())
	assert.Equal(t, 1, cloud.BucketCount())
	assert.Equal(t, 1, cloud.RecordCount("Z123"))
}

func TestDecommission_WaitsForPropagation(t *testing.T) {
	ctx := context.Background()
	cloud := newCloud(memory.WithPropagationPolls(2))
	sleeps := 0
	o := newOrchestrator(t, cloud.Backend(),
		sitestack.WithPolling(time.Millisecond, 5),
		sitestack.WithSleeper(noSleep(&sleeps)))

	_, err := o.Provision(ctx)
	require.NoError(t, err)

	_, err = o.Decommission(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sleeps)
	assert.Equal(t, 0, cloud.DistributionCount())
}

func TestDecommission_PropagationTimeout(t *testing.T) {
	ctx := context.Background()
	cloud := newCloud(memory.WithPropagationPolls(10))
	o := newOrchestrator(t, cloud.Backend(), sitestack.WithPolling(time.Millisecond, 3))

	prov, err := o.Provision(ctx)
	require.NoError(t, err)

	_, err = o.Decommission(ctx)
	require.Error(t, err)
	assert.True(t, sitestack.IsCategory(err, sitestack.ErrCategoryPropagationTimeout))
	assert.True(t, sitestack.IsRetryable(err))

	var siteErr *sitestack.SiteError
	require.True(t, errors.As(err, &siteErr))
	assert.Equal(t, 3, siteErr.Details["attempts"])
	assert.Equal(t, sitestack.StepDeleteDistribution, siteErr.Step)

	rec, _, ok := cloud.Distribution(prov.Outputs[sitestack.OutputDistributionID])
	require.True(t, ok)
	assert.False(t, rec.Enabled)
	assert.Equal(t, 1, cloud.RecordCount("Z123"))
	assert.Equal(t, 0, cloud.CallCount(memory.OpDeleteBucket))
}

func TestPlan(t *testing.T) {
	ctx := context.Background()
	cloud := newCloud()
	o := newOrchestrator(t, cloud.Backend())

	plan, err := o.Plan(ctx)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 6)
	assert.Len(t, plan.Changes(), 6)
	assert.Equal(t, sitestack.OperationCreate, plan.Actions[0].Operation)
	assert.Equal(t, sitestack.OperationCreate, plan.Actions[4].Operation)
	assert.Equal(t, "site-bucket.s3-website.amazonaws.com", plan.Actions[4].Details["origin"])
	assert.Equal(t, sitestack.OperationCreate, plan.Actions[5].Operation)
	assert.Equal(t, 0, cloud.BucketCount())

	_, err = o.Provision(ctx)
	require.NoError(t, err)
	cloud.ResetCalls()

	plan, err = o.Plan(ctx)
	require.NoError(t, err)
	assert.Equal(t, sitestack.OperationNone, plan.Actions[0].Operation)
	assert.Equal(t, sitestack.OperationNone, plan.Actions[4].Operation)
	assert.Equal(t, sitestack.OperationNone, plan.Actions[5].Operation)
	assert.Len(t, plan.Changes(), 3)
	for _, call := range cloud.Calls() {
		assert.NotContains(t, []string{memory.OpCreateBucket, memory.OpCreateDistribution, memory.OpChangeRecord}, call.Op)
	}
}

func TestPlan_BucketOwnedElsewhere(t *testing.T) {
	cloud := newCloud()
	cloud.AddForeignBucket("site-bucket")
	o := newOrchestrator(t, cloud.Backend())

	plan, err := o.Plan(context.Background())
	require.NoError(t, err)
	assert.True(t, plan.Blocked)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, sitestack.StepEnsureBucket, plan.Actions[0].Step)
	assert.Equal(t, sitestack.OperationBlocked, plan.Actions[0].Operation)
	assert.Empty(t, plan.Changes())
	assert.Contains(t, plan.Summary, "owned by another account")
	assert.Equal(t, 0, cloud.CallCount(memory.OpCreateBucket))
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	cloud := newCloud()
	o := newOrchestrator(t, cloud.Backend())

	report := o.Status(ctx)
	assert.False(t, report.IsValid())
	assert.Equal(t, 4, report.Summary.TotalChecks)

	_, err := o.Provision(ctx)
	require.NoError(t, err)

	report = o.Status(ctx)
	assert.True(t, report.IsValid())
	assert.Empty(t, report.FailedChecks())
	assert.Equal(t, 4, report.Summary.PassedChecks)

	bucketOnly := newOrchestrator(t, cloud.Backend(),
		sitestack.WithValidators(sitestack.NewBucketValidator(cloud.Backend().Objects)))
	report = bucketOnly.Status(ctx)
	assert.True(t, report.IsValid())
	assert.Equal(t, 1, report.Summary.TotalChecks)
	assert.Equal(t, "bucket_exists", report.Checks[0].ID)
}

func TestNewOrchestrator_RejectsIncompleteInputs(t *testing.T) {
	cfg := testConfig()
	cfg.HostedZoneID = ""
	_, err := sitestack.NewOrchestrator(cfg, newCloud().Backend())
	require.Error(t, err)
	assert.True(t, sitestack.IsCategory(err, sitestack.ErrCategoryConfigMissing))
	assert.Contains(t, err.Error(), "AWS_HOSTED_ZONE_ID")

	backend := newCloud().Backend()
	backend.DNS = nil
	_, err = sitestack.NewOrchestrator(testConfig(), backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dns client")
}
