// Package terraform drives the lifecycle of externally-owned infrastructure
// stacks through a Terraform-compatible CLI's process contract.
//
// The driver interprets the tool's exit codes and semi-structured JSON
// output as state-machine signals: validate's JSON body is the source of
// truth regardless of process exit, the dry-run plan's detailed exit code
// ({0,1,2}) classifies into up-to-date / errored / drifted, and anything
// outside that contract is a fatal integration defect. A single bounded
// recovery (init, then one revalidate) handles the enumerated
// "not initialized" diagnostics; nothing else is retried.
//
// All process execution goes through the Runner interface so the
// reconciliation logic is tested against fakes, with no real binary.
// The driver owns no internal scheduling and no cross-call locking: callers
// must serialize validate/plan/apply against one stack root.
package terraform
