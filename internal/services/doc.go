// Package services holds the error classification and context helpers shared
// by the fetch, recovery, and audit components.
package services
