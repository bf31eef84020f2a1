// Package memory provides an in-memory cloud implementing every sitestack
// provider interface. It simulates paginated listings, ETag versioning,
// propagation delay and bucket ownership, and journals every call.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

// Operation names recorded in the call journal and accepted by FailOn.
const (
	OpListDistributions   = "ListDistributions"
	OpCreateDistribution  = "CreateDistribution"
	OpGetDistribution     = "GetDistribution"
	OpUpdateDistribution  = "UpdateDistribution"
	OpDeleteDistribution  = "DeleteDistribution"
	OpCreateInvalidation  = "CreateInvalidation"
	OpFindRecord          = "FindRecord"
	OpChangeRecord        = "ChangeRecord"
	OpCreateBucket        = "CreateBucket"
	OpBucketExists        = "BucketExists"
	OpPutWebsite          = "PutWebsite"
	OpPutPublicAccess     = "PutPublicAccessBlock"
	OpPutBucketPolicy     = "PutBucketPolicy"
	OpPutObject           = "PutObject"
	OpListObjectVersions  = "ListObjectVersions"
	OpDeleteObjects       = "DeleteObjects"
	OpDeleteBucket        = "DeleteBucket"
	OpDescribeCertificate = "DescribeCertificate"
)

// Call is one journaled provider call.
type Call struct {
	Op     string
	Target string
}

// Cloud is a simulated provider account.
type Cloud struct {
	mu sync.Mutex

	pageSize         int
	propagationPolls int

	distributions map[string]*distribution
	distOrder     []string
	conflicts     map[string]int
	invalidations map[string][]Invalidation

	zones map[string]map[recordKey]sitestack.AliasRecord

	buckets        map[string]*bucket
	foreignBuckets map[string]bool

	certificates map[string]sitestack.CertificateRecord

	failures map[string]error
	calls    []Call
	seq      int
}

// Option configures a Cloud.
type Option func(*Cloud)

// WithPageSize sets how many items listings return per page. Values
// below one are treated as one.
func WithPageSize(n int) Option {
	return func(c *Cloud) {
		c.pageSize = max(n, 1)
	}
}

// WithPropagationPolls sets how many reads of a changed distribution
// report InProgress before it reports Deployed.
func WithPropagationPolls(n int) Option {
	return func(c *Cloud) {
		c.propagationPolls = n
	}
}

// NewCloud creates an empty simulated account.
func NewCloud(opts ...Option) *Cloud {
	c := &Cloud{
		pageSize:       100,
		distributions:  make(map[string]*distribution),
		conflicts:      make(map[string]int),
		invalidations:  make(map[string][]Invalidation),
		zones:          make(map[string]map[recordKey]sitestack.AliasRecord),
		buckets:        make(map[string]*bucket),
		foreignBuckets: make(map[string]bool),
		certificates:   make(map[string]sitestack.CertificateRecord),
		failures:       make(map[string]error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns a Backend whose clients all operate on c.
func (c *Cloud) Backend() *sitestack.Backend {
	return &sitestack.Backend{
		CDN:          &CDN{cloud: c},
		DNS:          &DNS{cloud: c},
		Objects:      &Objects{cloud: c},
		Certificates: &Certificates{cloud: c},
	}
}

// FailOn makes every later call to op return err until cleared with a nil err.
func (c *Cloud) FailOn(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failures, op)
		return
	}
	c.failures[op] = err
}

// Calls returns a copy of the call journal.
func (c *Cloud) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallCount returns how many times op was called.
func (c *Cloud) CallCount(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the call journal.
func (c *Cloud) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

// record journals a call and returns the injected failure for op, if any.
// Callers hold c.mu.
func (c *Cloud) record(op, target string) error {
	c.calls = append(c.calls, Call{Op: op, Target: target})
	return c.failures[op]
}

func (c *Cloud) nextSeq() int {
	c.seq++
	return c.seq
}

// AddCertificate seeds a certificate.
func (c *Cloud) AddCertificate(rec sitestack.CertificateRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.certificates[rec.ARN] = rec
}

// Certificates implements sitestack.CertificateAPI.
type Certificates struct {
	cloud *Cloud
}

// DescribeCertificate implements sitestack.CertificateAPI.
func (a *Certificates) DescribeCertificate(ctx context.Context, arn string) (*sitestack.CertificateRecord, error) {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpDescribeCertificate, arn); err != nil {
		return nil, err
	}
	rec, ok := c.certificates[arn]
	if !ok {
		return nil, sitestack.ErrNotFound("certificate", arn)
	}
	return &rec, nil
}

func init() {
	// Each process gets its own empty account.
	if err := sitestack.RegisterFactory("memory", sitestack.ProviderFactoryFunc(
		func(ctx context.Context, cfg sitestack.SiteConfig) (*sitestack.Backend, error) {
			c := NewCloud()
			c.AddCertificate(sitestack.CertificateRecord{
				ARN:        cfg.CertificateARN,
				Status:     sitestack.CertificateStatusIssued,
				DomainName: cfg.Domain,
			})
			return c.Backend(), nil
		})); err != nil {
		panic(fmt.Sprintf("memory: %v", err))
	}
}
