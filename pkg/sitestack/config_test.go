package sitestack

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullEnv() map[string]string {
	return map[string]string{
		"AWS_DOMAIN_NAME":         "example.com",
		"AWS_HOSTED_ZONE_ID":      "Z123",
		"AWS_SSL_CERTIFICATE_ARN": "arn:cert:1",
		"SITESTACK_BUCKET":        "site-bucket",
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	cfg, err := LoadConfig(LoadOptions{Environment: fullEnv()})
	require.NoError(t, err)

	assert.Equal(t, "example.com", cfg.Domain)
	assert.Equal(t, "Z123", cfg.HostedZoneID)
	assert.Equal(t, "arn:cert:1", cfg.CertificateARN)
	assert.Equal(t, "site-bucket", cfg.Bucket)
	assert.Equal(t, DefaultRegion, cfg.Region)
	assert.Equal(t, DefaultBuildDir, cfg.BuildDir)
	assert.Equal(t, DefaultProvider, cfg.Provider)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultPollAttempts, cfg.PollAttempts)
}

func TestLoadConfig_MissingNamesEveryVariable(t *testing.T) {
	_, err := LoadConfig(LoadOptions{Environment: map[string]string{"HOME": "/tmp"}})
	require.Error(t, err)
	require.True(t, IsCategory(err, ErrCategoryConfigMissing))

	for _, name := range []string{"AWS_DOMAIN_NAME", "AWS_HOSTED_ZONE_ID", "AWS_SSL_CERTIFICATE_ARN", "SITESTACK_BUCKET"} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestLoadConfig_LayersFileEnvironmentAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitestack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
domain: file.example.com
hosted_zone_id: ZFILE
certificate_arn: arn:file
bucket: file-bucket
region: eu-west-1
poll_interval: 5s
poll_attempts: 4
`), 0o600))

	cfg, err := LoadConfig(LoadOptions{
		Path:        path,
		Environment: map[string]string{"AWS_HOSTED_ZONE_ID": "ZENV"},
		Overrides:   SiteConfig{Bucket: "flag-bucket"},
	})
	require.NoError(t, err)

	assert.Equal(t, "file.example.com", cfg.Domain)
	assert.Equal(t, "ZENV", cfg.HostedZoneID)
	assert.Equal(t, "flag-bucket", cfg.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 4, cfg.PollAttempts)
}

func TestLoadConfig_MissingFileIsPrecondition(t *testing.T) {
	_, err := LoadConfig(LoadOptions{Path: filepath.Join(t.TempDir(), "nope.yaml"), Environment: fullEnv()})
	require.Error(t, err)
	assert.True(t, IsCategory(err, ErrCategoryPreconditionFailed))
}

func TestSiteConfig_ValidateShape(t *testing.T) {
	cfg := SiteConfig{
		Domain:         "not a domain",
		HostedZoneID:   "Z123",
		CertificateARN: "arn:cert:1",
		Bucket:         "site-bucket",
	}.WithDefaults()

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, IsCategory(err, ErrCategoryValidation))
	assert.Contains(t, err.Error(), "AWS_DOMAIN_NAME")
}

func TestWebsiteEndpoint(t *testing.T) {
	tests := []struct {
		region string
		want   string
	}{
		{"us-east-1", "site-bucket.s3-website.amazonaws.com"},
		{"", "site-bucket.s3-website.amazonaws.com"},
		{"eu-west-1", "site-bucket.s3-website-eu-west-1.amazonaws.com"},
		{"ap-southeast-2", "site-bucket.s3-website-ap-southeast-2.amazonaws.com"},
	}
	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			assert.Equal(t, tt.want, WebsiteEndpoint("site-bucket", tt.region))
		})
	}
}

func TestBucketLocation(t *testing.T) {
	assert.Equal(t, "", BucketLocation("us-east-1"))
	assert.Equal(t, "eu-west-1", BucketLocation("eu-west-1"))
}
