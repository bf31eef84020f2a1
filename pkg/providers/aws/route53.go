package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

const resourceRecord = "dns record"

type route53API interface {
	ListResourceRecordSets(
		ctx context.Context,
		params *route53.ListResourceRecordSetsInput,
		optFns ...func(*route53.Options),
	) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(
		ctx context.Context,
		params *route53.ChangeResourceRecordSetsInput,
		optFns ...func(*route53.Options),
	) (*route53.ChangeResourceRecordSetsOutput, error)
}

// DNS implements sitestack.DNSAPI on Route 53.
type DNS struct {
	api route53API
}

// FindRecord implements sitestack.DNSAPI. It asks for a single record
// starting at name/type; Route 53 returns whatever sorts there, which may
// be a different record.
func (d *DNS) FindRecord(ctx context.Context, zoneID, name, recordType string) (*sitestack.AliasRecord, error) {
	out, err := d.api.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(name),
		StartRecordType: r53types.RRType(recordType),
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return nil, classify(err, resourceRecord, name)
	}
	if len(out.ResourceRecordSets) == 0 {
		return nil, nil
	}

	rrs := out.ResourceRecordSets[0]
	rec := &sitestack.AliasRecord{
		Name:   aws.ToString(rrs.Name),
		Type:   string(rrs.Type),
		ZoneID: zoneID,
		Native: rrs,
	}
	if rrs.AliasTarget != nil {
		rec.Target = aws.ToString(rrs.AliasTarget.DNSName)
		rec.TargetZoneID = aws.ToString(rrs.AliasTarget.HostedZoneId)
	}
	return rec, nil
}

// ChangeRecord implements sitestack.DNSAPI. A record carrying the body
// returned by FindRecord is sent back as read.
func (d *DNS) ChangeRecord(ctx context.Context, zoneID string, action sitestack.ChangeAction, rec sitestack.AliasRecord) (string, error) {
	rrs, ok := rec.Native.(r53types.ResourceRecordSet)
	if !ok {
		rrs = r53types.ResourceRecordSet{
			Name: aws.String(rec.Name),
			Type: r53types.RRType(rec.Type),
			AliasTarget: &r53types.AliasTarget{
				DNSName:              aws.String(rec.Target),
				EvaluateTargetHealth: false,
				HostedZoneId:         aws.String(rec.TargetZoneID),
			},
		}
	}

	out, err := d.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Changes: []r53types.Change{{
				Action:            r53types.ChangeAction(action),
				ResourceRecordSet: &rrs,
			}},
		},
	})
	if err != nil {
		return "", classify(err, resourceRecord, rec.Name)
	}
	if out.ChangeInfo == nil {
		return "", nil
	}
	return aws.ToString(out.ChangeInfo.Id), nil
}
