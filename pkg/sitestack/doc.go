// Package sitestack provisions, updates, inspects and tears down a static
// website stack: an object-store bucket serving as website origin, a CDN
// distribution in front of it with TLS, and a DNS alias record pointing a
// custom domain at the distribution.
//
// # Overview
//
// The three services are independently consistent, so the package's job is
// ordering. An Orchestrator runs each workflow as a fixed sequence of steps,
// checks whether every resource already exists before creating it, and stops
// at the first failure without rolling back. The StepError it returns names
// the failed step and the steps that completed, and the same information is
// journaled to a StateStore after every step.
//
// # Workflows
//
//   - Provision: ensure-bucket, configure-website, open-public-access,
//     apply-public-read-policy, ensure-distribution, upsert-alias
//   - Sync: upload the given items; no cache purge
//   - Purge: invalidate every path on the distribution
//   - Decommission: locate-distribution, disable-and-delete-distribution,
//     delete-alias, empty-bucket, delete-bucket
//
// Decommission waits for the disabled distribution to report Deployed
// before deleting it, polling at a configurable interval for a bounded
// number of attempts.
//
// # Providers
//
// Workflows talk to the cloud through the CDNAPI, DNSAPI, ObjectStoreAPI and
// CertificateAPI interfaces bundled in a Backend. Provider packages register
// a factory with the Registry from init:
//
//	import _ "github.com/anirudhbiyani/sitestack/pkg/providers/aws"
//
//	cfg, err := sitestack.LoadConfig(sitestack.LoadOptions{})
//	backend, err := sitestack.DefaultRegistry.Create(ctx, cfg.Provider, cfg)
//	orch, err := sitestack.NewOrchestrator(cfg, backend, sitestack.WithLogger(log))
//	report, err := orch.Provision(ctx)
//
// # Errors
//
// Errors carry an ErrorCategory. A failed read is always lookup_failed and
// never mistaken for absence; a bucket name owned by another account is
// naming_collision; a stale distribution ETag is concurrency_conflict and is
// retried once after a fresh read; an exhausted propagation wait is
// propagation_timeout.
package sitestack
