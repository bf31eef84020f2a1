package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

// recordKey orders records the way hosted zones list them: by name with
// labels reversed, then by type.
type recordKey struct {
	name string
	typ  string
}

func keyFor(name, typ string) recordKey {
	labels := strings.Split(strings.TrimSuffix(strings.ToLower(name), "."), ".")
	slices.Reverse(labels)
	return recordKey{name: strings.Join(labels, "."), typ: typ}
}

func (k recordKey) compare(o recordKey) int {
	if c := strings.Compare(k.name, o.name); c != 0 {
		return c
	}
	return strings.Compare(k.typ, o.typ)
}

func normalize(name string) string {
	return strings.TrimSuffix(name, ".") + "."
}

// AddRecord seeds a record. Names are stored fully qualified.
func (c *Cloud) AddRecord(zoneID string, rec sitestack.AliasRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putRecord(zoneID, rec)
}

func (c *Cloud) putRecord(zoneID string, rec sitestack.AliasRecord) {
	zone, ok := c.zones[zoneID]
	if !ok {
		zone = make(map[recordKey]sitestack.AliasRecord)
		c.zones[zoneID] = zone
	}
	rec.Name = normalize(rec.Name)
	rec.Target = normalize(rec.Target)
	rec.ZoneID = zoneID
	rec.Native = nil
	zone[keyFor(rec.Name, rec.Type)] = rec
}

// Record returns the record for name/type in zoneID.
func (c *Cloud) Record(zoneID, name, typ string) (sitestack.AliasRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.zones[zoneID][keyFor(name, typ)]
	return rec, ok
}

// RecordCount returns the number of records in zoneID.
func (c *Cloud) RecordCount(zoneID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.zones[zoneID])
}

// DNS implements sitestack.DNSAPI.
type DNS struct {
	cloud *Cloud
}

// FindRecord implements sitestack.DNSAPI.
func (a *DNS) FindRecord(ctx context.Context, zoneID, name, recordType string) (*sitestack.AliasRecord, error) {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpFindRecord, name); err != nil {
		return nil, err
	}
	zone, ok := c.zones[zoneID]
	if !ok {
		return nil, nil
	}

	start := keyFor(name, recordType)
	var best recordKey
	found := false
	for k := range zone {
		if k.compare(start) < 0 {
			continue
		}
		if !found || k.compare(best) < 0 {
			best, found = k, true
		}
	}
	if !found {
		return nil, nil
	}
	rec := zone[best]
	native := rec
	rec.Native = native
	return &rec, nil
}

// ChangeRecord implements sitestack.DNSAPI. Deletes must present the
// record exactly as it was read.
func (a *DNS) ChangeRecord(ctx context.Context, zoneID string, action sitestack.ChangeAction, rec sitestack.AliasRecord) (string, error) {
	c := a.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpChangeRecord, string(action)+" "+rec.Name); err != nil {
		return "", err
	}

	changeID := fmt.Sprintf("/change/CMEM%06d", c.nextSeq())
	switch action {
	case sitestack.ChangeActionUpsert:
		c.putRecord(zoneID, rec)
	case sitestack.ChangeActionDelete:
		key := keyFor(rec.Name, rec.Type)
		current, ok := c.zones[zoneID][key]
		if !ok {
			return "", sitestack.ErrValidation("record " + rec.Name + " not found for delete")
		}
		if normalize(rec.Target) != current.Target || rec.TargetZoneID != current.TargetZoneID {
			return "", sitestack.ErrValidation("record " + rec.Name + " does not match the current record")
		}
		delete(c.zones[zoneID], key)
	default:
		return "", sitestack.ErrValidation("unsupported action " + string(action))
	}
	return changeID, nil
}
