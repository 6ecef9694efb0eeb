// Package state holds the small persisted key/value artifacts that live
// outside the ledger: the bounded processed-id list, the continuation
// checkpoint queue, and the processing-enabled gate. Each is a single JSON
// file under the state directory, written atomically via a temp file.
package state
