package sitestack

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// DNSRecordManager maintains the alias record pointing the domain at the
// distribution.
type DNSRecordManager struct {
	dns    DNSAPI
	logger *zap.Logger
}

// NewDNSRecordManager creates a DNSRecordManager.
func NewDNSRecordManager(dns DNSAPI, logger *zap.Logger) *DNSRecordManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DNSRecordManager{dns: dns, logger: logger}
}

func sameName(a, b string) bool {
	return strings.TrimSuffix(a, ".") == strings.TrimSuffix(b, ".")
}

// find returns the A record for domain, or nil.
func (m *DNSRecordManager) find(ctx context.Context, zoneID, domain string) (*AliasRecord, error) {
	rec, err := m.dns.FindRecord(ctx, zoneID, domain, RecordTypeA)
	if err != nil {
		return nil, ErrLookupFailed("dns record", domain).
			WithCause(err).
			WithRetryable(IsRetryable(err))
	}
	if rec == nil || !sameName(rec.Name, domain) || rec.Type != RecordTypeA {
		return nil, nil
	}
	return rec, nil
}

// UpsertAlias points domain at targetHostname. It always writes; the read
// only decides what gets logged.
func (m *DNSRecordManager) UpsertAlias(ctx context.Context, domain, targetHostname, zoneID string) (changeID string, err error) {
	existing, err := m.find(ctx, zoneID, domain)
	if err != nil {
		return "", err
	}
	if existing != nil {
		m.logger.Info("updating alias record", zap.String("domain", domain), zap.String("previous_target", existing.Target))
	} else {
		m.logger.Info("creating alias record", zap.String("domain", domain))
	}

	changeID, err = m.dns.ChangeRecord(ctx, zoneID, ChangeActionUpsert, AliasRecord{
		Name:         domain,
		Type:         RecordTypeA,
		Target:       targetHostname,
		TargetZoneID: CloudFrontHostedZoneID,
		ZoneID:       zoneID,
	})
	if err != nil {
		return "", err
	}
	m.logger.Info("alias record submitted",
		zap.String("domain", domain),
		zap.String("target", targetHostname),
		zap.String("change_id", changeID))
	return changeID, nil
}

// DeleteAlias removes the record for domain exactly as it was read. found
// is false when there was nothing to delete.
func (m *DNSRecordManager) DeleteAlias(ctx context.Context, domain, zoneID string) (found bool, err error) {
	existing, err := m.find(ctx, zoneID, domain)
	if err != nil {
		return false, err
	}
	if existing == nil {
		m.logger.Info("no alias record to delete", zap.String("domain", domain))
		return false, nil
	}

	changeID, err := m.dns.ChangeRecord(ctx, zoneID, ChangeActionDelete, *existing)
	if err != nil {
		return true, err
	}
	m.logger.Info("alias record deleted", zap.String("domain", domain), zap.String("change_id", changeID))
	return true, nil
}
