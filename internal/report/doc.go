// Package report exports the ledger as an operator-facing spreadsheet.
package report
