// Package runner hosts the serve-mode scheduler: in-process interval jobs
// for window fetches, continuation draining, recovery runs, and audit
// passes, gated by the persisted processing flag and the ledger leases.
package runner
