package sitestack

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults applied by LoadConfig when no layer sets a value.
const (
	DefaultBuildDir = "build/client"
	DefaultProvider = "aws"
)

// SiteConfig is the validated configuration a workflow runs against. It is
// built once at process entry and passed by value.
type SiteConfig struct {
	Domain         string `yaml:"domain" env:"AWS_DOMAIN_NAME" validate:"required,fqdn"`
	HostedZoneID   string `yaml:"hosted_zone_id" env:"AWS_HOSTED_ZONE_ID" validate:"required"`
	CertificateARN string `yaml:"certificate_arn" env:"AWS_SSL_CERTIFICATE_ARN" validate:"required"`
	Bucket         string `yaml:"bucket" env:"SITESTACK_BUCKET" validate:"required,min=3,max=63"`
	Region         string `yaml:"region" env:"AWS_REGION" validate:"required"`

	// BuildDir is the directory whose files deploy uploads.
	BuildDir string `yaml:"build_dir" env:"SITESTACK_BUILD_DIR"`

	// StateFile is where the stack state journal is written.
	StateFile string `yaml:"state_file" env:"SITESTACK_STATE_FILE"`

	// Provider names the registered backend to run against.
	Provider string `yaml:"provider" env:"SITESTACK_PROVIDER"`

	// PollInterval and PollAttempts bound the distribution propagation wait.
	PollInterval time.Duration `yaml:"poll_interval" env:"SITESTACK_POLL_INTERVAL" validate:"gte=0"`
	PollAttempts int           `yaml:"poll_attempts" env:"SITESTACK_POLL_ATTEMPTS" validate:"gte=0"`
}

// LoadOptions controls where LoadConfig reads from.
type LoadOptions struct {
	// Path is an optional YAML file. An explicitly named file must exist.
	Path string

	// Environment replaces the process environment when non-nil.
	Environment map[string]string

	// Overrides are applied last, typically from command-line flags.
	// Empty fields are ignored.
	Overrides SiteConfig
}

// LoadConfig layers the YAML file, the environment and the overrides, in
// that order, fills defaults and validates the result.
func LoadConfig(opts LoadOptions) (SiteConfig, error) {
	var cfg SiteConfig

	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			return SiteConfig{}, ErrPreconditionFailed("cannot read config file").
				WithResource("file", opts.Path).
				WithCause(err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return SiteConfig{}, ErrValidation("invalid config file").
				WithResource("file", opts.Path).
				WithCause(err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: opts.Environment}); err != nil {
		return SiteConfig{}, ErrValidation("invalid environment").WithCause(err)
	}

	cfg = cfg.merge(opts.Overrides).WithDefaults()
	if err := cfg.Validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

// merge returns cfg with every non-empty field of o copied over.
func (c SiteConfig) merge(o SiteConfig) SiteConfig {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Domain, o.Domain)
	set(&c.HostedZoneID, o.HostedZoneID)
	set(&c.CertificateARN, o.CertificateARN)
	set(&c.Bucket, o.Bucket)
	set(&c.Region, o.Region)
	set(&c.BuildDir, o.BuildDir)
	set(&c.StateFile, o.StateFile)
	set(&c.Provider, o.Provider)
	if o.PollInterval > 0 {
		c.PollInterval = o.PollInterval
	}
	if o.PollAttempts > 0 {
		c.PollAttempts = o.PollAttempts
	}
	return c
}

// WithDefaults fills unset optional fields.
func (c SiteConfig) WithDefaults() SiteConfig {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.BuildDir == "" {
		c.BuildDir = DefaultBuildDir
	}
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.StateFile == "" {
		c.StateFile = DefaultStateStorePath()
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PollAttempts == 0 {
		c.PollAttempts = DefaultPollAttempts
	}
	return c
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	// Report fields by the variable an operator would set.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("env"), ",")
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks required fields and their shape. Every missing required
// field is named in a single ConfigMissing error.
func (c SiteConfig) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrInternal("config validation failed").WithCause(err)
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	if len(missing) > 0 {
		return ErrConfigMissing(missing...)
	}
	return ErrValidation("invalid configuration: "+strings.Join(invalid, ", ")).
		WithDetail("invalid", invalid)
}

// BucketLocation returns the location constraint a create-bucket request
// carries. The default region sends none.
func BucketLocation(region string) string {
	if region == "" || region == DefaultRegion {
		return ""
	}
	return region
}

// WebsiteEndpoint returns the website hostname a bucket serves from.
func WebsiteEndpoint(bucket, region string) string {
	if region == "" || region == DefaultRegion {
		return bucket + ".s3-website.amazonaws.com"
	}
	return fmt.Sprintf("%s.s3-website-%s.amazonaws.com", bucket, region)
}
