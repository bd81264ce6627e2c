// Package store holds the MongoDB-backed stores. Collection handles are
// injected at construction; no store reaches for package-global state.
package store

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("not found")

	// ErrNotSettled is returned by the conditional payment settlement when
	// the order's payment status already left pending, i.e. the
	// compare-and-set matched nothing.
	ErrNotSettled = errors.New("payment not in pending state")
)
