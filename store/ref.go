package store

import (
	"context"
	"sync"

	"github.com/agentic-ai/enact-go/digest"
	"github.com/agentic-ai/enact-go/fieldvalue"
	"github.com/agentic-ai/enact-go/resource"
)

// Ref is a (digest, optional cached resource) pair denoting an immutable
// resource in a store (spec §3, §4.5). Refs have reference semantics: a
// *Ref is shared by every holder, which is what makes Modify's
// copy-on-write rebind visible to all of them except copies taken via
// DeepCopy beforehand (spec §8 invariant 7, "modify isolation").
//
// Grounded on original_source/src/enact/references.py's Ref class
// (digest + cache list, set/set_from/is_cached/checkout).
type Ref struct {
	mu     sync.RWMutex
	digest digest.Digest
	typeID string
	cached resource.Resource
	hasCached bool
}

// NewRef constructs an uncached Ref pointing at digest d of type typeID.
// Used by the digest/decode layer to materialize refs found nested inside
// other checked-out resources, and by tests that want to address a digest
// without going through Commit.
func NewRef(d digest.Digest, typeID string) *Ref {
	return &Ref{digest: d, typeID: typeID}
}

// RefDigest implements fieldvalue.Reffer.
func (r *Ref) RefDigest() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.digest.Hex()
}

// RefTypeID implements fieldvalue.Reffer.
func (r *Ref) RefTypeID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typeID
}

// Digest returns the referenced resource's digest.
func (r *Ref) Digest() digest.Digest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.digest
}

// TypeID returns the referenced resource's registered type-id.
func (r *Ref) TypeID() string { return r.RefTypeID() }

// Equal reports whether two refs address the same digest. Per spec §4.7,
// callable/input equality during replay reduces to this.
func (r *Ref) Equal(other *Ref) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Digest() == other.Digest()
}

// IsCached reports whether a resource value is cached locally.
func (r *Ref) IsCached() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasCached
}

// Cached returns the cached resource, if any.
func (r *Ref) Cached() (resource.Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cached, r.hasCached
}

func (r *Ref) setCache(res resource.Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = res
	r.hasCached = true
}

// setFrom rebinds r to point at other's digest/type/cache, used internally
// by Store.Modify to perform the copy-on-write swap in place (spec §4.5),
// grounded on Ref.set_from in original_source/src/enact/references.py.
func (r *Ref) setFrom(digest digest.Digest, typeID string, cached resource.Resource, hasCached bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.digest = digest
	r.typeID = typeID
	r.cached = cached
	r.hasCached = hasCached
}

// DeepCopy returns an independent *Ref with the same digest: because
// digests are content-derived, this is a shallow clone of the Ref value,
// per spec §4.5. Mutating the copy via Modify never affects r.
func (r *Ref) DeepCopy() *Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Ref{digest: r.digest, typeID: r.typeID, cached: r.cached, hasCached: r.hasCached}
}

// Checkout fetches the referenced resource from the ambient store in ctx,
// per spec §6's "Ref.checkout() -> resource; Ref() is shorthand."
func (r *Ref) Checkout(ctx context.Context) (resource.Resource, error) {
	s, err := Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.Checkout(ctx, r)
}

var _ fieldvalue.Reffer = (*Ref)(nil)
