// Package enacterrors defines the sentinel errors raised by the store,
// registry, builder and replay engine, per the error table in the design.
package enacterrors

import "errors"

var (
	// ErrNotFound is raised when a digest is absent from a storage backend.
	ErrNotFound = errors.New("enact: not found")

	// ErrIntegrity is raised when a checked-out resource's recomputed
	// digest does not match the reference used to retrieve it.
	ErrIntegrity = errors.New("enact: digest mismatch on checkout")

	// ErrPackingError is raised at commit time when a cycle is detected in
	// in-memory data, or a value outside the FieldValue universe is found.
	ErrPackingError = errors.New("enact: packing error")

	// ErrRegistryError is raised on duplicate/conflicting type or
	// invokable registration, or on an unknown type-id at unpack time.
	ErrRegistryError = errors.New("enact: registry error")

	// ErrNoActiveStore is raised when a store operation runs outside any
	// store scope.
	ErrNoActiveStore = errors.New("enact: no active store")

	// ErrReplayError is raised on divergence between a recorded and a live
	// call in strict replay mode.
	ErrReplayError = errors.New("enact: replay divergence")

	// ErrIncompleteSubinvocation is raised when an invocation node is
	// finalized with neither an output nor a raised condition recorded.
	ErrIncompleteSubinvocation = errors.New("enact: incomplete subinvocation")

	// ErrInputRequestOutsideInvocation is raised when RequestInput is
	// called with no active builder node.
	ErrInputRequestOutsideInvocation = errors.New("enact: input request outside invocation")

	// ErrInvalidDigest is raised when a digest string fails to parse as
	// hex of the expected length.
	ErrInvalidDigest = errors.New("enact: invalid digest")
)
