// Package blobstore owns the physical recording files. Every blob lives in
// exactly one of four lifecycle locations (source, processing, completed,
// error); moves are the only transition mechanism. The fallback move path
// prefers a temporary duplicate over any chance of loss: bytes are copied
// and verified at the destination before the original is trashed, and a
// failed trash never fails the operation.
package blobstore
