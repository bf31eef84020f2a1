package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

func captureOutput(t *testing.T, in string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prevOut, prevIn := stdout, stdin
	stdout, stdin = buf, strings.NewReader(in)
	t.Cleanup(func() {
		stdout, stdin = prevOut, prevIn
	})
	return buf
}

func setStackEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("AWS_DOMAIN_NAME", "example.com")
	t.Setenv("AWS_HOSTED_ZONE_ID", "Z123")
	t.Setenv("AWS_SSL_CERTIFICATE_ARN", "arn:cert:1")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("SITESTACK_BUCKET", "site-bucket")
	t.Setenv("SITESTACK_PROVIDER", "memory")
	statePath := filepath.Join(t.TempDir(), "state.json")
	t.Setenv("SITESTACK_STATE_FILE", statePath)
	return statePath
}

func TestParseOpts(t *testing.T) {
	opts, err := parseOpts([]string{"--bucket", "b", "--region", "eu-west-1", "-v", "--dry-run"}, "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, "b", opts.bucket)
	assert.Equal(t, "eu-west-1", opts.region)
	assert.Equal(t, "debug", opts.logLevel)
	assert.True(t, opts.dryRun)

	opts, err = parseOpts([]string{"--dir", "dist", "--invalidate"}, "--dir", "--invalidate")
	require.NoError(t, err)
	assert.Equal(t, "dist", opts.dir)
	assert.True(t, opts.invalidate)

	opts, err = parseOpts([]string{"-y"}, "--yes")
	require.NoError(t, err)
	assert.True(t, opts.yes)
}

func TestParseOpts_Errors(t *testing.T) {
	_, err := parseOpts([]string{"--dry-run"})
	assert.EqualError(t, err, "unknown option: --dry-run")

	_, err = parseOpts([]string{"--dir", "dist"})
	assert.EqualError(t, err, "unknown option: --dir")

	_, err = parseOpts([]string{"--bucket"})
	assert.EqualError(t, err, "--bucket requires an argument")

	_, err = parseOpts([]string{"--log-level", "loud"})
	assert.Error(t, err)
}

func TestRun_VersionAndUnknown(t *testing.T) {
	out := captureOutput(t, "")

	require.NoError(t, run(context.Background(), []string{"version"}))
	assert.Contains(t, out.String(), "sitestack version "+version)
	assert.Contains(t, out.String(), "aws")
	assert.Contains(t, out.String(), "memory")

	err := run(context.Background(), []string{"explode"})
	assert.ErrorContains(t, err, "unknown command: explode")
}

func TestRun_MissingConfigNamesVariables(t *testing.T) {
	captureOutput(t, "")
	for _, name := range []string{"AWS_DOMAIN_NAME", "AWS_HOSTED_ZONE_ID", "AWS_SSL_CERTIFICATE_ARN", "SITESTACK_BUCKET"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	err := run(context.Background(), []string{"create", "--provider", "memory"})
	require.Error(t, err)
	assert.True(t, sitestack.IsCategory(err, sitestack.ErrCategoryConfigMissing))
	assert.Contains(t, err.Error(), "AWS_HOSTED_ZONE_ID")
}

func TestRun_CreateWithMemoryProvider(t *testing.T) {
	statePath := setStackEnv(t)
	out := captureOutput(t, "")

	require.NoError(t, run(context.Background(), []string{"create", "--log-json", "--log-level", "error"}))
	assert.Contains(t, out.String(), "=== PROVISION ===")
	assert.Contains(t, out.String(), "upsert-alias")
	assert.Contains(t, out.String(), "website_endpoint: site-bucket.s3-website.amazonaws.com")
	assert.Contains(t, out.String(), "https://example.com")

	store, err := sitestack.NewFileStateStore(statePath)
	require.NoError(t, err)
	st, err := store.Load(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Len(t, st.CompletedSteps, 6)
}

func TestRun_CreateDryRun(t *testing.T) {
	statePath := setStackEnv(t)
	out := captureOutput(t, "")

	require.NoError(t, run(context.Background(), []string{"create", "--dry-run", "--log-level", "error"}))
	assert.Contains(t, out.String(), "Dry-run mode")
	assert.Contains(t, out.String(), "6 of 6 steps change resources")

	_, err := os.Stat(statePath)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_DeployRequiresBuildDirectory(t *testing.T) {
	setStackEnv(t)
	captureOutput(t, "")

	err := run(context.Background(), []string{"deploy", "--dir", filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.True(t, sitestack.IsCategory(err, sitestack.ErrCategoryPreconditionFailed))
}

func TestRun_DeployUploadsBuild(t *testing.T) {
	setStackEnv(t)
	out := captureOutput(t, "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o644))

	err := run(context.Background(), []string{"deploy", "--dir", dir, "--log-level", "error"})
	require.Error(t, err, "memory provider starts empty, so there is no bucket to upload to")

	var uploadErr *sitestack.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "index.html", uploadErr.Key)
	assert.Contains(t, out.String(), "Copying 1 files")
	assert.Contains(t, out.String(), "0 files were uploaded before index.html failed")
}

func TestRun_StatusOnEmptyAccount(t *testing.T) {
	setStackEnv(t)
	out := captureOutput(t, "")

	err := run(context.Background(), []string{"status", "--log-level", "error"})
	assert.ErrorIs(t, err, errStackInvalid)
	assert.Contains(t, out.String(), "Valid: false")
	assert.Contains(t, out.String(), "Remediation: Run 'sitestack create' to provision the bucket")
}

func TestRun_DestroyCancelled(t *testing.T) {
	setStackEnv(t)
	out := captureOutput(t, "n\n")

	require.NoError(t, run(context.Background(), []string{"destroy"}))
	assert.Contains(t, out.String(), "About to destroy the stack for example.com")
	assert.Contains(t, out.String(), "Cancelled")
	assert.NotContains(t, out.String(), "DECOMMISSION")
}

func TestRun_DestroyConfirmed(t *testing.T) {
	setStackEnv(t)
	out := captureOutput(t, "yes\n")

	require.NoError(t, run(context.Background(), []string{"destroy", "--log-level", "error"}))
	assert.Contains(t, out.String(), "=== DECOMMISSION ===")
	assert.Contains(t, out.String(), "no distribution serves example.com")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
