package sitestack

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Validator defines a single check against a deployed stack.
type Validator interface {
	// ID returns a unique identifier for this validator.
	ID() string

	// Name returns a human-readable name.
	Name() string

	// Validate performs the check.
	Validate(ctx context.Context, cfg SiteConfig) ValidationCheck
}

func newCheck(v Validator, severity Severity) ValidationCheck {
	return ValidationCheck{
		ID:       v.ID(),
		Name:     v.Name(),
		Severity: severity,
		Evidence: make(map[string]interface{}),
	}
}

func failCheck(check ValidationCheck, start time.Time, err error, remediation string) ValidationCheck {
	check.Status = CheckStatusFailed
	if err != nil {
		check.Evidence["error"] = err.Error()
	}
	check.Remediation = remediation
	check.Duration = time.Since(start)
	return check
}

// BucketValidator checks that the origin bucket exists.
type BucketValidator struct {
	objects ObjectStoreAPI
}

// NewBucketValidator creates a BucketValidator.
func NewBucketValidator(objects ObjectStoreAPI) *BucketValidator {
	return &BucketValidator{objects: objects}
}

func (v *BucketValidator) ID() string   { return "bucket_exists" }
func (v *BucketValidator) Name() string { return "Origin bucket exists" }

// Validate implements Validator.
func (v *BucketValidator) Validate(ctx context.Context, cfg SiteConfig) ValidationCheck {
	start := time.Now()
	check := newCheck(v, SeverityCritical)
	check.Evidence["bucket"] = cfg.Bucket

	exists, err := v.objects.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return failCheck(check, start, err, "Check object store credentials and permissions")
	}
	if !exists {
		return failCheck(check, start, nil, "Run 'sitestack create' to provision the bucket")
	}
	check.Evidence["website_endpoint"] = WebsiteEndpoint(cfg.Bucket, cfg.Region)
	check.Status = CheckStatusPassed
	check.Duration = time.Since(start)
	return check
}

// DistributionValidator checks that a distribution serves the domain, is
// enabled and has finished deploying.
type DistributionValidator struct {
	locator *Locator
}

// NewDistributionValidator creates a DistributionValidator.
func NewDistributionValidator(cdn CDNAPI) *DistributionValidator {
	return &DistributionValidator{locator: NewLocator(cdn, nil)}
}

func (v *DistributionValidator) ID() string   { return "distribution_deployed" }
func (v *DistributionValidator) Name() string { return "Distribution enabled and deployed" }

// Validate implements Validator.
func (v *DistributionValidator) Validate(ctx context.Context, cfg SiteConfig) ValidationCheck {
	start := time.Now()
	check := newCheck(v, SeverityCritical)

	rec, found, err := v.locator.FindDistributionByDomain(ctx, cfg.Domain)
	if err != nil {
		return failCheck(check, start, err, "Check CDN credentials and permissions")
	}
	if !found {
		return failCheck(check, start, nil, "Run 'sitestack create' to provision the distribution")
	}

	check.Evidence["distribution_id"] = rec.ID
	check.Evidence["domain_name"] = rec.DomainName
	check.Evidence["status"] = rec.Status
	check.Evidence["enabled"] = rec.Enabled
	if !rec.Enabled {
		return failCheck(check, start, nil, "The distribution is disabled; it may be mid-teardown")
	}
	if rec.Status != DistributionStatusDeployed {
		check.Severity = SeverityWarning
		return failCheck(check, start, nil, "Wait for the distribution to finish deploying")
	}
	check.Status = CheckStatusPassed
	check.Duration = time.Since(start)
	return check
}

// AliasValidator checks that the domain's alias record targets the
// distribution's hostname.
type AliasValidator struct {
	locator *Locator
	dns     *DNSRecordManager
}

// NewAliasValidator creates an AliasValidator.
func NewAliasValidator(cdn CDNAPI, dns DNSAPI) *AliasValidator {
	return &AliasValidator{locator: NewLocator(cdn, nil), dns: NewDNSRecordManager(dns, nil)}
}

func (v *AliasValidator) ID() string   { return "alias_target" }
func (v *AliasValidator) Name() string { return "Alias record targets distribution" }

// Validate implements Validator.
func (v *AliasValidator) Validate(ctx context.Context, cfg SiteConfig) ValidationCheck {
	start := time.Now()
	check := newCheck(v, SeverityError)

	rec, err := v.dns.find(ctx, cfg.HostedZoneID, cfg.Domain)
	if err != nil {
		return failCheck(check, start, err, "Check DNS credentials and the hosted zone ID")
	}
	if rec == nil {
		return failCheck(check, start, nil, "Run 'sitestack create' to create the alias record")
	}
	check.Evidence["target"] = rec.Target
	check.Evidence["target_zone"] = rec.TargetZoneID

	dist, found, err := v.locator.FindDistributionByDomain(ctx, cfg.Domain)
	if err != nil {
		return failCheck(check, start, err, "Check CDN credentials and permissions")
	}
	if !found {
		check.Status = CheckStatusSkipped
		check.Duration = time.Since(start)
		return check
	}
	check.Evidence["expected_target"] = dist.DomainName
	if !sameName(rec.Target, dist.DomainName) || rec.TargetZoneID != CloudFrontHostedZoneID {
		return failCheck(check, start, nil, "Run 'sitestack create' to repoint the alias record")
	}
	check.Status = CheckStatusPassed
	check.Duration = time.Since(start)
	return check
}

// CertificateValidator checks that the TLS certificate is issued and covers
// the domain.
type CertificateValidator struct {
	certs CertificateAPI
}

// NewCertificateValidator creates a CertificateValidator.
func NewCertificateValidator(certs CertificateAPI) *CertificateValidator {
	return &CertificateValidator{certs: certs}
}

func (v *CertificateValidator) ID() string   { return "certificate_issued" }
func (v *CertificateValidator) Name() string { return "Certificate issued for domain" }

// CertificateStatusIssued is the status of a usable certificate.
const CertificateStatusIssued = "ISSUED"

// CertificateCovers reports whether a certificate for names serves domain.
// A wildcard covers exactly one extra label.
func CertificateCovers(names []string, domain string) bool {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	return lo.SomeBy(names, func(n string) bool {
		n = strings.ToLower(strings.TrimSuffix(n, "."))
		if n == domain {
			return true
		}
		if suffix, ok := strings.CutPrefix(n, "*."); ok {
			head, rest, found := strings.Cut(domain, ".")
			return found && head != "" && rest == suffix
		}
		return false
	})
}

// Validate implements Validator.
func (v *CertificateValidator) Validate(ctx context.Context, cfg SiteConfig) ValidationCheck {
	start := time.Now()
	check := newCheck(v, SeverityCritical)
	check.Evidence["certificate_arn"] = cfg.CertificateARN

	cert, err := v.certs.DescribeCertificate(ctx, cfg.CertificateARN)
	if err != nil {
		return failCheck(check, start, err, "Check the certificate ARN; CloudFront certificates live in us-east-1")
	}
	check.Evidence["status"] = cert.Status
	check.Evidence["domain_name"] = cert.DomainName
	if cert.Status != CertificateStatusIssued {
		return failCheck(check, start, nil, "Complete certificate validation before provisioning")
	}
	names := append([]string{cert.DomainName}, cert.SubjectAlternativeNames...)
	if !CertificateCovers(names, cfg.Domain) {
		return failCheck(check, start, nil, "Request a certificate that includes "+cfg.Domain)
	}
	check.Status = CheckStatusPassed
	check.Duration = time.Since(start)
	return check
}

// StandardValidators returns the checks run by Status. The certificate
// check is included when the backend can read certificates.
func StandardValidators(cfg SiteConfig, b *Backend) []Validator {
	validators := []Validator{
		NewBucketValidator(b.Objects),
		NewDistributionValidator(b.CDN),
		NewAliasValidator(b.CDN, b.DNS),
	}
	if b.Certificates != nil {
		validators = append(validators, NewCertificateValidator(b.Certificates))
	}
	return validators
}

// RunValidation executes a set of validators and returns a report.
func RunValidation(ctx context.Context, cfg SiteConfig, validators []Validator) *ValidationReport {
	report := &ValidationReport{
		Domain:      cfg.Domain,
		Bucket:      cfg.Bucket,
		Checks:      make([]ValidationCheck, 0, len(validators)),
		ValidatedAt: time.Now(),
	}

	for _, v := range validators {
		check := v.Validate(ctx, cfg)
		report.Checks = append(report.Checks, check)

		switch check.Status {
		case CheckStatusPassed:
			report.Summary.PassedChecks++
		case CheckStatusFailed:
			report.Summary.FailedChecks++
		case CheckStatusSkipped:
			report.Summary.SkippedChecks++
		}
		report.Summary.TotalChecks++
	}

	report.Summary.IsValid = report.IsValid()
	return report
}
