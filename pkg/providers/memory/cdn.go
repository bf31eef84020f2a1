package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

type distribution struct {
	rec     sitestack.DistributionRecord
	spec    sitestack.DistributionSpec
	version int
	pending int
}

func (d *distribution) snapshot() sitestack.DistributionRecord {
	rec := d.rec
	rec.Aliases = append([]string(nil), d.rec.Aliases...)
	rec.ETag = "E" + strconv.Itoa(d.version)
	rec.Status = sitestack.DistributionStatusDeployed
	if d.pending > 0 {
		rec.Status = sitestack.DistributionStatusInProgress
	}
	rec.Native = d.spec
	return rec
}

// Invalidation is a recorded cache invalidation.
type Invalidation struct {
	ID              string
	Paths           []string
	CallerReference string
}

// AddDistribution seeds a distribution owned by someone else's stack. It
// is listed in insertion order after any existing distributions.
func (c *Cloud) AddDistribution(id, domainName string, aliases ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.distributions[id] = &distribution{
		rec: sitestack.DistributionRecord{
			ID:         id,
			DomainName: domainName,
			Enabled:    true,
			Aliases:    aliases,
		},
		version: 1,
	}
	c.distOrder = append(c.distOrder, id)
}

// Distribution returns the distribution's current state without journaling
// or consuming propagation polls.
func (c *Cloud) Distribution(id string) (sitestack.DistributionRecord, sitestack.DistributionSpec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.distributions[id]
	if !ok {
		return sitestack.DistributionRecord{}, sitestack.DistributionSpec{}, false
	}
	return d.snapshot(), d.spec, true
}

// DistributionCount returns the number of distributions in the account.
func (c *Cloud) DistributionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.distributions)
}

// Invalidations returns the invalidations submitted for a distribution.
func (c *Cloud) Invalidations(id string) []Invalidation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Invalidation(nil), c.invalidations[id]...)
}

// ConflictNext makes the next n mutations of distribution id race a
// concurrent writer, so the token they present is stale.
func (c *Cloud) ConflictNext(id string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conflicts[id] = n
}

// CDN implements sitestack.CDNAPI.
type CDN struct {
	cloud *Cloud
}

// ListDistributions implements sitestack.CDNAPI.
func (a *CDN) ListDistributions(ctx context.Context, marker string) (*sitestack.DistributionPage, error) {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpListDistributions, marker); err != nil {
		return nil, err
	}

	start := 0
	if marker != "" {
		n, err := strconv.Atoi(marker)
		if err != nil || n < 0 || n > len(c.distOrder) {
			return nil, sitestack.ErrValidation("invalid marker " + marker)
		}
		start = n
	}
	end := min(start+c.pageSize, len(c.distOrder))

	page := &sitestack.DistributionPage{}
	for _, id := range c.distOrder[start:end] {
		rec := c.distributions[id].snapshot()
		rec.ETag = ""
		rec.Native = nil
		page.Items = append(page.Items, rec)
	}
	if end < len(c.distOrder) {
		page.NextMarker = strconv.Itoa(end)
	}
	return page, nil
}

// CreateDistribution implements sitestack.CDNAPI.
func (a *CDN) CreateDistribution(ctx context.Context, spec sitestack.DistributionSpec) (*sitestack.DistributionRecord, error) {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpCreateDistribution, spec.CallerReference); err != nil {
		return nil, err
	}
	for _, d := range c.distributions {
		for _, alias := range d.rec.Aliases {
			for _, want := range spec.Aliases {
				if alias == want {
					return nil, sitestack.NewError(sitestack.ErrCategoryNamingCollision, "CNAME already exists: "+want)
				}
			}
		}
	}

	seq := c.nextSeq()
	id := fmt.Sprintf("EMEM%06d", seq)
	d := &distribution{
		rec: sitestack.DistributionRecord{
			ID:         id,
			DomainName: fmt.Sprintf("d%06d.cloudfront.net", seq),
			Enabled:    true,
			Aliases:    append([]string(nil), spec.Aliases...),
		},
		spec:    spec,
		version: 1,
		pending: c.propagationPolls,
	}
	c.distributions[id] = d
	c.distOrder = append(c.distOrder, id)
	rec := d.snapshot()
	return &rec, nil
}

// GetDistribution implements sitestack.CDNAPI. Each read of a changed
// distribution consumes one propagation poll.
func (a *CDN) GetDistribution(ctx context.Context, id string) (*sitestack.DistributionRecord, error) {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpGetDistribution, id); err != nil {
		return nil, err
	}
	d, ok := c.distributions[id]
	if !ok {
		return nil, sitestack.ErrNotFound("distribution", id)
	}
	rec := d.snapshot()
	if d.pending > 0 {
		d.pending--
	}
	return &rec, nil
}

// checkToken consumes a pending conflict and compares etag against the
// current version. Callers hold c.mu.
func (c *Cloud) checkToken(d *distribution, etag string) error {
	if c.conflicts[d.rec.ID] > 0 {
		c.conflicts[d.rec.ID]--
		d.version++
	}
	if etag != "E"+strconv.Itoa(d.version) {
		return sitestack.ErrConcurrencyConflict("distribution", d.rec.ID).
			WithDetail("presented", etag)
	}
	return nil
}

// UpdateDistribution implements sitestack.CDNAPI.
func (a *CDN) UpdateDistribution(ctx context.Context, rec sitestack.DistributionRecord) (*sitestack.DistributionRecord, error) {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpUpdateDistribution, rec.ID); err != nil {
		return nil, err
	}
	d, ok := c.distributions[rec.ID]
	if !ok {
		return nil, sitestack.ErrNotFound("distribution", rec.ID)
	}
	if err := c.checkToken(d, rec.ETag); err != nil {
		return nil, err
	}

	d.rec.Enabled = rec.Enabled
	d.version++
	d.pending = c.propagationPolls
	out := d.snapshot()
	return &out, nil
}

// DeleteDistribution implements sitestack.CDNAPI. Only a disabled,
// deployed distribution can be deleted.
func (a *CDN) DeleteDistribution(ctx context.Context, id, etag string) error {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpDeleteDistribution, id); err != nil {
		return err
	}
	d, ok := c.distributions[id]
	if !ok {
		return sitestack.ErrNotFound("distribution", id)
	}
	if err := c.checkToken(d, etag); err != nil {
		return err
	}
	if d.rec.Enabled || d.pending > 0 {
		return sitestack.ErrPreconditionFailed("distribution " + id + " is not disabled and deployed")
	}

	delete(c.distributions, id)
	for i, other := range c.distOrder {
		if other == id {
			c.distOrder = append(c.distOrder[:i], c.distOrder[i+1:]...)
			break
		}
	}
	return nil
}

// CreateInvalidation implements sitestack.CDNAPI.
func (a *CDN) CreateInvalidation(ctx context.Context, id string, paths []string, callerReference string) (string, error) {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpCreateInvalidation, id); err != nil {
		return "", err
	}
	if _, ok := c.distributions[id]; !ok {
		return "", sitestack.ErrNotFound("distribution", id)
	}
	inv := Invalidation{
		ID:              fmt.Sprintf("IMEM%06d", c.nextSeq()),
		Paths:           append([]string(nil), paths...),
		CallerReference: callerReference,
	}
	c.invalidations[id] = append(c.invalidations[id], inv)
	return inv.ID, nil
}

// distributionByHost returns the distribution whose generated hostname is
// host. Callers hold c.mu.
func (c *Cloud) distributionByHost(host string) *distribution {
	host = strings.TrimSuffix(host, ".")
	for _, d := range c.distributions {
		if d.rec.DomainName == host {
			return d
		}
	}
	return nil
}
