package memory

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

// Response is what a viewer would receive.
type Response struct {
	Status      int
	Body        []byte
	ContentType string
}

// Serve resolves host through the simulated DNS and CDN to the origin
// bucket and returns what a viewer requesting path would get, applying the
// distribution's default root object and custom error responses.
func (c *Cloud) Serve(host, path string) Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	var target string
	for _, zone := range c.zones {
		if rec, ok := zone[keyFor(host, sitestack.RecordTypeA)]; ok {
			target = rec.Target
			break
		}
	}
	if target == "" {
		return Response{Status: http.StatusBadGateway}
	}
	d := c.distributionByHost(target)
	if d == nil || !d.rec.Enabled {
		return Response{Status: http.StatusBadGateway}
	}

	bucketName, _, _ := strings.Cut(d.spec.OriginDomain, ".s3-website")
	b, ok := c.buckets[bucketName]
	if !ok || b.website == nil || b.policy == "" {
		return Response{Status: http.StatusForbidden}
	}

	key := strings.TrimPrefix(path, "/")
	if key == "" {
		key = d.spec.DefaultRootObject
	}
	if body, ct, ok := c.latest(bucketName, key); ok {
		return Response{Status: http.StatusOK, Body: body, ContentType: ct}
	}

	for _, er := range d.spec.ErrorResponses {
		if er.ErrorCode != http.StatusNotFound {
			continue
		}
		status, err := strconv.Atoi(er.ResponseCode)
		if err != nil {
			status = http.StatusNotFound
		}
		body, ct, _ := c.latest(bucketName, strings.TrimPrefix(er.ResponsePagePath, "/"))
		return Response{Status: status, Body: body, ContentType: ct}
	}
	return Response{Status: http.StatusNotFound}
}
