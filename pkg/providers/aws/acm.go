package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"

	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

type acmAPI interface {
	DescribeCertificate(
		ctx context.Context,
		params *acm.DescribeCertificateInput,
		optFns ...func(*acm.Options),
	) (*acm.DescribeCertificateOutput, error)
}

// Certificates implements sitestack.CertificateAPI on ACM.
type Certificates struct {
	api acmAPI
}

// DescribeCertificate implements sitestack.CertificateAPI.
func (c *Certificates) DescribeCertificate(ctx context.Context, arn string) (*sitestack.CertificateRecord, error) {
	out, err := c.api.DescribeCertificate(ctx, &acm.DescribeCertificateInput{CertificateArn: aws.String(arn)})
	if err != nil {
		return nil, classify(err, "certificate", arn)
	}
	if out.Certificate == nil {
		return nil, sitestack.ErrNotFound("certificate", arn)
	}
	cert := out.Certificate
	return &sitestack.CertificateRecord{
		ARN:                     aws.ToString(cert.CertificateArn),
		Status:                  string(cert.Status),
		DomainName:              aws.ToString(cert.DomainName),
		SubjectAlternativeNames: cert.SubjectAlternativeNames,
	}, nil
}
