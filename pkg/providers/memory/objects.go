package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

type objectVersion struct {
	id          string
	body        []byte
	contentType string
}

type bucket struct {
	name     string
	region   string
	website  *sitestack.WebsiteConfig
	block    *sitestack.PublicAccessBlock
	policy   string
	versions map[string][]objectVersion
}

// Bucket is a snapshot of a simulated bucket.
type Bucket struct {
	Name    string
	Region  string
	Website *sitestack.WebsiteConfig
	Block   *sitestack.PublicAccessBlock
	Policy  string
	Objects int
}

// AddForeignBucket marks name as owned by another account.
func (c *Cloud) AddForeignBucket(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.foreignBuckets[name] = true
}

// Bucket returns a snapshot of the named bucket.
func (c *Cloud) Bucket(name string) (Bucket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buckets[name]
	if !ok {
		return Bucket{}, false
	}
	n := 0
	for _, vs := range b.versions {
		n += len(vs)
	}
	return Bucket{
		Name:    b.name,
		Region:  b.region,
		Website: b.website,
		Block:   b.block,
		Policy:  b.policy,
		Objects: n,
	}, true
}

// BucketCount returns the number of buckets the account owns.
func (c *Cloud) BucketCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}

// Object returns the latest version of key.
func (c *Cloud) Object(bucketName, key string) (body []byte, contentType string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest(bucketName, key)
}

func (c *Cloud) latest(bucketName, key string) ([]byte, string, bool) {
	b, ok := c.buckets[bucketName]
	if !ok {
		return nil, "", false
	}
	vs := b.versions[key]
	if len(vs) == 0 {
		return nil, "", false
	}
	v := vs[len(vs)-1]
	return v.body, v.contentType, true
}

// Objects implements sitestack.ObjectStoreAPI.
type Objects struct {
	cloud *Cloud
}

func (c *Cloud) ownBucket(name string) (*bucket, error) {
	b, ok := c.buckets[name]
	if !ok {
		return nil, sitestack.ErrNotFound("bucket", name)
	}
	return b, nil
}

// CreateBucket implements sitestack.ObjectStoreAPI.
func (a *Objects) CreateBucket(ctx context.Context, name, locationConstraint string) (sitestack.CreateOutcome, error) {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpCreateBucket, name); err != nil {
		return 0, err
	}
	if c.foreignBuckets[name] {
		return sitestack.CreateOutcomeConflictWithOther, nil
	}
	if _, ok := c.buckets[name]; ok {
		return sitestack.CreateOutcomeAlreadyOwnedByCaller, nil
	}
	region := locationConstraint
	if region == "" {
		region = sitestack.DefaultRegion
	}
	c.buckets[name] = &bucket{name: name, region: region, versions: make(map[string][]objectVersion)}
	return sitestack.CreateOutcomeCreated, nil
}

// BucketExists implements sitestack.ObjectStoreAPI.
func (a *Objects) BucketExists(ctx context.Context, name string) (bool, error) {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpBucketExists, name); err != nil {
		return false, err
	}
	if c.foreignBuckets[name] {
		return false, sitestack.ErrNamingCollision("bucket", name)
	}
	_, ok := c.buckets[name]
	return ok, nil
}

// PutWebsite implements sitestack.ObjectStoreAPI.
func (a *Objects) PutWebsite(ctx context.Context, name string, website sitestack.WebsiteConfig) error {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpPutWebsite, name); err != nil {
		return err
	}
	b, err := c.ownBucket(name)
	if err != nil {
		return err
	}
	b.website = &website
	return nil
}

// PutPublicAccessBlock implements sitestack.ObjectStoreAPI.
func (a *Objects) PutPublicAccessBlock(ctx context.Context, name string, block sitestack.PublicAccessBlock) error {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpPutPublicAccess, name); err != nil {
		return err
	}
	b, err := c.ownBucket(name)
	if err != nil {
		return err
	}
	b.block = &block
	return nil
}

// PutBucketPolicy implements sitestack.ObjectStoreAPI. A public policy is
// refused while the public-access block still blocks policies.
func (a *Objects) PutBucketPolicy(ctx context.Context, name, policy string) error {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpPutBucketPolicy, name); err != nil {
		return err
	}
	b, err := c.ownBucket(name)
	if err != nil {
		return err
	}
	if b.block == nil || b.block.BlockPublicPolicy {
		return sitestack.NewError(sitestack.ErrCategoryInternal, "access denied: public policies are blocked").
			WithResource("bucket", name)
	}
	b.policy = policy
	return nil
}

// PutObject implements sitestack.ObjectStoreAPI.
func (a *Objects) PutObject(ctx context.Context, name string, item sitestack.UploadItem) error {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpPutObject, item.Key); err != nil {
		return err
	}
	b, err := c.ownBucket(name)
	if err != nil {
		return err
	}
	b.versions[item.Key] = append(b.versions[item.Key], objectVersion{
		id:          fmt.Sprintf("v%06d", c.nextSeq()),
		body:        append([]byte(nil), item.Body...),
		contentType: item.ContentType,
	})
	return nil
}

// ListObjectVersions implements sitestack.ObjectStoreAPI. Versions are
// listed by key, then by version ID.
func (a *Objects) ListObjectVersions(ctx context.Context, name, keyMarker, versionMarker string) (*sitestack.ObjectVersionPage, error) {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpListObjectVersions, name); err != nil {
		return nil, err
	}
	b, err := c.ownBucket(name)
	if err != nil {
		return nil, err
	}

	var all []sitestack.ObjectVersion
	for key, vs := range b.versions {
		for _, v := range vs {
			all = append(all, sitestack.ObjectVersion{Key: key, VersionID: v.id})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Key != all[j].Key {
			return all[i].Key < all[j].Key
		}
		return all[i].VersionID < all[j].VersionID
	})

	start := 0
	if keyMarker != "" {
		start = sort.Search(len(all), func(i int) bool {
			if all[i].Key != keyMarker {
				return all[i].Key > keyMarker
			}
			return all[i].VersionID > versionMarker
		})
	}
	end := min(start+c.pageSize, len(all))

	page := &sitestack.ObjectVersionPage{Versions: all[start:end]}
	if end < len(all) {
		last := all[end-1]
		page.Truncated = true
		page.NextKeyMarker = last.Key
		page.NextVersionMarker = last.VersionID
	}
	return page, nil
}

// DeleteObjects implements sitestack.ObjectStoreAPI.
func (a *Objects) DeleteObjects(ctx context.Context, name string, objects []sitestack.ObjectVersion) error {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpDeleteObjects, fmt.Sprintf("%s (%d)", name, len(objects))); err != nil {
		return err
	}
	if len(objects) > sitestack.DeleteBatchSize {
		return sitestack.ErrValidation(fmt.Sprintf("at most %d keys per delete request", sitestack.DeleteBatchSize))
	}
	b, err := c.ownBucket(name)
	if err != nil {
		return err
	}
	for _, o := range objects {
		vs := b.versions[o.Key]
		for i, v := range vs {
			if v.id == o.VersionID {
				vs = append(vs[:i], vs[i+1:]...)
				break
			}
		}
		if len(vs) == 0 {
			delete(b.versions, o.Key)
		} else {
			b.versions[o.Key] = vs
		}
	}
	return nil
}

// DeleteBucket implements sitestack.ObjectStoreAPI.
func (a *Objects) DeleteBucket(ctx context.Context, name string) error {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpDeleteBucket, name); err != nil {
		return err
	}
	b, err := c.ownBucket(name)
	if err != nil {
		return err
	}
	if len(b.versions) > 0 {
		return sitestack.ErrPreconditionFailed("bucket "+name+" is not empty").WithResource("bucket", name)
	}
	delete(c.buckets, name)
	return nil
}
