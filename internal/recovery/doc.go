// Package recovery repairs drift between the ledger and the blob spool:
// items interrupted mid-processing, errored items eligible for one automatic
// retry, rows stuck in PENDING, and operator-forced re-queues.
package recovery
