// Package main is the entry point for the sitestack CLI.
//
// The CLI provisions, deploys to, inspects and tears down a static website
// stack: an S3 website bucket, a CloudFront distribution with TLS in front
// of it, and a Route 53 alias record for the custom domain.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anirudhbiyani/sitestack/pkg/content"
	"github.com/anirudhbiyani/sitestack/pkg/logger"
	"github.com/anirudhbiyani/sitestack/pkg/sitestack"

	// Import providers to register them
	_ "github.com/anirudhbiyani/sitestack/pkg/providers/aws"
	_ "github.com/anirudhbiyani/sitestack/pkg/providers/memory"
)

const (
	exitError           = 1
	exitValidationError = 2
)

const version = "0.3.0"

// errStackInvalid is returned by status when a check of error severity failed.
var errStackInvalid = errors.New("stack validation failed")

var (
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errStackInvalid) {
			os.Exit(exitValidationError)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "create":
		return cmdCreate(ctx, cmdArgs)
	case "deploy":
		return cmdDeploy(ctx, cmdArgs)
	case "invalidate":
		return cmdInvalidate(ctx, cmdArgs)
	case "destroy":
		return cmdDestroy(ctx, cmdArgs)
	case "status":
		return cmdStatus(ctx, cmdArgs)
	case "version":
		return cmdVersion()
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nRun 'sitestack help' for usage", cmd)
	}
}

func printUsage() {
	fmt.Fprintln(stdout, `sitestack - Static website stack lifecycle management

Usage:
  sitestack <command> [options]

Commands:
  create      Create or reconcile the bucket, distribution and DNS alias
  deploy      Upload the build directory to the bucket
  invalidate  Purge every cached path on the distribution
  destroy     Tear the stack down (distribution, alias, bucket)
  status      Check that the deployed stack is healthy
  version     Show version information
  help        Show this help message

Common Options:
  --config <path>         YAML config file
  --bucket <name>         Bucket name (env SITESTACK_BUCKET)
  --region <region>       AWS region (env AWS_REGION, default us-east-1)
  --provider <name>       Provider backend: aws or memory (default: aws)
  --state <path>          State file path (default: ~/.sitestack/state.json)
  --log-level <level>     debug, info, warn or error (default: info)
  --log-json              Write logs as JSON
  -v, --verbose           Debug logging

Create Options:
  --dry-run               Show what would be done without making changes

Deploy Options:
  --dir <path>            Build directory (default: build/client)
  --invalidate            Purge the CDN cache after a successful upload

Destroy Options:
  --yes                   Skip confirmation prompt

Environment:
  AWS_DOMAIN_NAME          Custom domain served by the stack (required)
  AWS_HOSTED_ZONE_ID       Route 53 hosted zone for the domain (required)
  AWS_SSL_CERTIFICATE_ARN  ACM certificate in us-east-1 (required)
  SITESTACK_BUCKET         Bucket name (required unless --bucket)
  SITESTACK_BUILD_DIR      Build directory
  SITESTACK_STATE_FILE     State file path

Examples:
  # Provision the stack, then deploy and purge the cache
  sitestack create --bucket my-site
  sitestack deploy --bucket my-site --invalidate

  # Rehearse against the in-memory provider
  sitestack create --provider memory --dry-run`)
}

type cliOpts struct {
	configPath string
	bucket     string
	region     string
	provider   string
	statePath  string
	logLevel   string
	logJSON    bool
	verbose    bool

	dryRun     bool
	dir        string
	invalidate bool
	yes        bool
}

// parseOpts parses the common options plus the ones listed in extra.
func parseOpts(args []string, extra ...string) (*cliOpts, error) {
	opts := &cliOpts{logLevel: "info"}
	allowed := make(map[string]bool, len(extra))
	for _, e := range extra {
		allowed[e] = true
	}

	value := func(i int, name string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires an argument", name)
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config", arg == "--bucket", arg == "--region", arg == "--provider",
			arg == "--state", arg == "--log-level", arg == "--dir" && allowed[arg]:
			v, err := value(i, arg)
			if err != nil {
				return nil, err
			}
			i++
			switch arg {
			case "--config":
				opts.configPath = v
			case "--bucket":
				opts.bucket = v
			case "--region":
				opts.region = v
			case "--provider":
				opts.provider = v
			case "--state":
				opts.statePath = v
			case "--log-level":
				opts.logLevel = v
			case "--dir":
				opts.dir = v
			}
		case arg == "--log-json":
			opts.logJSON = true
		case arg == "-v", arg == "--verbose":
			opts.verbose = true
		case arg == "--dry-run" && allowed[arg]:
			opts.dryRun = true
		case arg == "--invalidate" && allowed[arg]:
			opts.invalidate = true
		case (arg == "--yes" || arg == "-y") && allowed["--yes"]:
			opts.yes = true
		default:
			return nil, fmt.Errorf("unknown option: %s", arg)
		}
	}

	if opts.verbose {
		opts.logLevel = "debug"
	}
	if _, err := logger.ParseLevel(opts.logLevel); err != nil {
		return nil, err
	}
	return opts, nil
}

// loadConfig resolves the configuration without touching the network.
func loadConfig(opts *cliOpts) (sitestack.SiteConfig, error) {
	return sitestack.LoadConfig(sitestack.LoadOptions{
		Path: opts.configPath,
		Overrides: sitestack.SiteConfig{
			Bucket:    opts.bucket,
			Region:    opts.region,
			Provider:  opts.provider,
			StateFile: opts.statePath,
			BuildDir:  opts.dir,
		},
	})
}

func newOrchestrator(ctx context.Context, cfg sitestack.SiteConfig, opts *cliOpts) (*sitestack.Orchestrator, *zap.Logger, error) {
	log, err := logger.New(opts.logLevel, !opts.logJSON)
	if err != nil {
		return nil, nil, err
	}

	backend, err := sitestack.DefaultRegistry.Create(ctx, cfg.Provider, cfg)
	if err != nil {
		return nil, nil, err
	}

	stateStore, err := sitestack.NewFileStateStore(cfg.StateFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize state store: %w", err)
	}

	orch, err := sitestack.NewOrchestrator(cfg, backend,
		sitestack.WithLogger(log),
		sitestack.WithStateStore(stateStore),
	)
	if err != nil {
		return nil, nil, err
	}
	return orch, log, nil
}

func cmdCreate(ctx context.Context, args []string) error {
	opts, err := parseOpts(args, "--dry-run")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	orch, log, err := newOrchestrator(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer log.Sync()

	if opts.dryRun {
		fmt.Fprintln(stdout, "Dry-run mode: no changes will be made")
		plan, err := orch.Plan(ctx)
		if err != nil {
			return fmt.Errorf("plan failed: %w", err)
		}
		printPlan(plan)
		return nil
	}

	report, err := orch.Provision(ctx)
	printReport(report)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "\nSite will be served at https://%s once DNS propagates\n", cfg.Domain)
	return nil
}

func cmdDeploy(ctx context.Context, args []string) error {
	opts, err := parseOpts(args, "--dir", "--invalidate")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	items, err := content.Collect(cfg.BuildDir)
	if err != nil {
		return err
	}

	orch, log, err := newOrchestrator(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer log.Sync()

	fmt.Fprintf(stdout, "Copying %d files from %s to %s\n", len(items), cfg.BuildDir, cfg.Bucket)
	report, err := orch.Sync(ctx, items)
	printReport(report)
	if err != nil {
		var uploadErr *sitestack.UploadError
		if errors.As(err, &uploadErr) {
			fmt.Fprintf(stdout, "\n%d files were uploaded before %s failed\n", len(uploadErr.Uploaded), uploadErr.Key)
		}
		return err
	}

	if !opts.invalidate {
		fmt.Fprintln(stdout, "\nCached copies may be stale; run 'sitestack invalidate' to purge them")
		return nil
	}

	report, err = orch.Purge(ctx)
	printReport(report)
	return err
}

func cmdInvalidate(ctx context.Context, args []string) error {
	opts, err := parseOpts(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	orch, log, err := newOrchestrator(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer log.Sync()

	report, err := orch.Purge(ctx)
	printReport(report)
	return err
}

func cmdDestroy(ctx context.Context, args []string) error {
	opts, err := parseOpts(args, "--yes")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if !opts.yes {
		fmt.Fprintf(stdout, "About to destroy the stack for %s\n", cfg.Domain)
		fmt.Fprintf(stdout, "Bucket: %s (%s), hosted zone: %s\n", cfg.Bucket, cfg.Region, cfg.HostedZoneID)
		fmt.Fprintln(stdout, "The distribution, the alias record and every object version will be deleted.")
		fmt.Fprint(stdout, "\nAre you sure? [y/N]: ")

		response, _ := bufio.NewReader(stdin).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" && response != "yes" {
			fmt.Fprintln(stdout, "Cancelled")
			return nil
		}
	}

	orch, log, err := newOrchestrator(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer log.Sync()

	report, err := orch.Decommission(ctx)
	printReport(report)
	if err != nil {
		fmt.Fprintf(stdout, "\nState kept in %s; re-run destroy to resume\n", cfg.StateFile)
		return err
	}
	return nil
}

func cmdStatus(ctx context.Context, args []string) error {
	opts, err := parseOpts(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	orch, log, err := newOrchestrator(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer log.Sync()

	report := orch.Status(ctx)

	fmt.Fprintln(stdout, "=== Stack Status ===")
	fmt.Fprintf(stdout, "Domain: %s\n", report.Domain)
	fmt.Fprintf(stdout, "Bucket: %s\n", report.Bucket)
	fmt.Fprintf(stdout, "Valid: %t\n", report.IsValid())
	fmt.Fprintf(stdout, "Checks: %d passed, %d failed, %d skipped\n",
		report.Summary.PassedChecks,
		report.Summary.FailedChecks,
		report.Summary.SkippedChecks)

	for _, check := range report.Checks {
		status := "✓"
		switch check.Status {
		case sitestack.CheckStatusFailed:
			status = "✗"
		case sitestack.CheckStatusSkipped:
			status = "○"
		}

		fmt.Fprintf(stdout, "\n%s %s [%s]\n", status, check.Name, check.Severity)
		for _, k := range sortedKeys(check.Evidence) {
			fmt.Fprintf(stdout, "  %s: %v\n", k, check.Evidence[k])
		}
		if check.Status == sitestack.CheckStatusFailed && check.Remediation != "" {
			fmt.Fprintf(stdout, "  Remediation: %s\n", check.Remediation)
		}
	}

	if st, err := orch.State(ctx); err == nil {
		fmt.Fprintf(stdout, "\nLast run: %s %s at %s\n", st.Workflow, st.RunID, st.UpdatedAt.Format("2006-01-02 15:04:05"))
		if st.FailedStep != "" {
			fmt.Fprintf(stdout, "  Failed at %s: %s\n", st.FailedStep, st.LastError)
		}
	}

	if !report.IsValid() {
		return errStackInvalid
	}
	return nil
}

func cmdVersion() error {
	fmt.Fprintf(stdout, "sitestack version %s\n", version)
	fmt.Fprintf(stdout, "  Providers: %s\n", strings.Join(sitestack.DefaultRegistry.List(), ", "))
	return nil
}

// Helper functions

func printReport(report *sitestack.Report) {
	if report == nil {
		return
	}

	fmt.Fprintf(stdout, "\n=== %s ===\n", strings.ToUpper(string(report.Workflow)))
	for _, step := range report.Steps {
		mark := "✓"
		switch step.Status {
		case sitestack.StepStatusFailed:
			mark = "✗"
		case sitestack.StepStatusAbsent, sitestack.StepStatusSkipped:
			mark = "○"
		}
		fmt.Fprintf(stdout, "%s %-32s %s\n", mark, step.Name, truncate(step.Detail, 60))
	}

	if len(report.Outputs) > 0 {
		fmt.Fprintln(stdout, "\nOutputs:")
		for _, k := range sortedKeys(report.Outputs) {
			fmt.Fprintf(stdout, "  %s: %s\n", k, report.Outputs[k])
		}
	}
}

func printPlan(plan *sitestack.Plan) {
	fmt.Fprintln(stdout, "\n=== Plan ===")
	for _, a := range plan.Actions {
		id := a.ResourceID
		if id == "" {
			id = "(new)"
		}
		fmt.Fprintf(stdout, "  %-10s %-28s %s %s\n", a.Operation, a.Step, a.ResourceType, id)
	}
	fmt.Fprintf(stdout, "\n%s\n", plan.Summary)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
