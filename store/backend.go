// Package store implements the Storage Backend, Store and Ref layers
// (spec §4.4, §4.5): persistence of packed resources by digest, and the
// process-scoped ambient Store that mints references and mediates
// commit/checkout/modify.
//
// Grounded on drpcorg-chotki's Chotki struct (a *pebble.DB-backed object
// store with prefix-keyed access, chotki.go) for the filesystem/pebble
// backends, and on original_source/src/enact/references.py's
// StorageBackend/Store/Ref trio for the exact operation semantics the
// distilled spec.md leaves implicit (verify-on-checkout, dependency graph
// traversal, Ref.set_from).
package store

import (
	"context"

	"github.com/agentic-ai/enact-go/digest"
)

// Backend is the total-function storage interface of spec §4.4: has, get,
// commit. All three are safe for concurrent callers.
type Backend interface {
	// Commit persists packed bytes under digest. Idempotent: storing an
	// already-present digest is a no-op.
	Commit(ctx context.Context, d digest.Digest, packed []byte) error

	// Has reports whether digest is present.
	Has(ctx context.Context, d digest.Digest) (bool, error)

	// Get retrieves packed bytes for digest, or (nil, false, nil) if
	// absent ("not locally available" per spec §4.4 — this is not an
	// error condition at the backend layer; Store.Checkout is what turns
	// absence into enacterrors.ErrNotFound).
	Get(ctx context.Context, d digest.Digest) ([]byte, bool, error)

	// Digests iterates every digest present, for dependency-graph and
	// garbage-collection tooling. Order is unspecified.
	Digests(ctx context.Context) ([]digest.Digest, error)

	// Close releases backend resources (file handles, DB handles). A
	// backend that owns nothing (MemoryBackend) treats this as a no-op.
	Close() error
}
