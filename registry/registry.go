// Package registry implements the Type Registry (spec §4.1): a process-wide
// mapping from a stable textual type-id to a factory and field schema. It
// also mediates lookup of a wrapper descriptor for foreign (non-resource)
// Go types embedded as fields.
//
// Grounded on drpcorg-chotki's object/field-schema tables (classes/fields.go,
// obj.go) generalized from Chotki's fixed replicated-data-type schema to
// Enact's arbitrary registered resource types, and on the concurrent map
// idiom the teacher uses throughout (github.com/puzpuzpuz/xsync/v3), since
// the registry is read on every commit/checkout in the hot invocation path.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/agentic-ai/enact-go/enacterrors"
	"github.com/agentic-ai/enact-go/fieldvalue"
)

// TypeID is the JSON object text encoding {"name": "...", "distribution_key":
// null|"..."} that names a registered type. Two TypeIDs are equal iff their
// canonical JSON text is byte-equal.
type TypeID struct {
	Name            string `json:"name"`
	DistributionKey *string `json:"distribution_key"`
}

// Canonical returns the canonical JSON text of the TypeID: keys in fixed
// order, no whitespace. This text IS the type-id used in packed resources.
func (t TypeID) Canonical() string {
	// encoding/json's struct field order is declaration order, which is
	// fixed here, giving deterministic output without a general map sort.
	b, _ := json.Marshal(t)
	return string(b)
}

func (t TypeID) String() string { return t.Canonical() }

// ParseTypeID parses a canonical type-id string back into a TypeID.
func ParseTypeID(s string) (TypeID, error) {
	var t TypeID
	if err := json.Unmarshal([]byte(s), &t); err != nil {
		return TypeID{}, errors.Wrapf(enacterrors.ErrRegistryError, "parse type id %q: %v", s, err)
	}
	return t, nil
}

// Factory builds a fresh, zeroed instance ready to receive FromFields.
type Factory func() FieldsResource

// FieldsResource is the minimal contract a registered resource type
// implements: enumerate (name, value) pairs in declared order, and
// reconstruct an instance from a name->value mapping. Spec §4.2.
type FieldsResource interface {
	fieldvalue.Resourcer
	FromFields(fields map[string]fieldvalue.Value) (FieldsResource, error)
}

// Wrapper converts a foreign Go value to/from a FieldsResource so that
// arbitrary application types can be embedded as resource fields.
type Wrapper struct {
	// ForeignType names the wrapped Go type, e.g. via reflect.TypeOf(x).String().
	ForeignType string
	Wrap        func(any) (FieldsResource, error)
	Unwrap      func(FieldsResource) (any, error)
}

// Descriptor fully describes a registered resource type.
type Descriptor struct {
	ID         TypeID
	FieldNames []string
	New        Factory
	Wrapper    *Wrapper // non-nil iff this descriptor wraps a foreign type
}

// TypeDigest returns a digest over the type's qualified name and sorted
// field names, independent of any instance. Grounded on
// original_source/src/enact/digests.py's type_digest, and used to detect
// conflicting re-registration of the same type-id with a different field
// schema (spec §4.1, SPEC_FULL §12).
func (d Descriptor) TypeDigest() string {
	h := sha256.New()
	h.Write([]byte(d.ID.Canonical()))
	h.Write([]byte{'.'})
	sorted := append([]string(nil), d.FieldNames...)
	sort.Strings(sorted)
	for _, f := range sorted {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Registry is a process-wide (or test-scoped) mapping of type-id to
// Descriptor, plus a foreign-type-name to Descriptor index for wrapping.
type Registry struct {
	byTypeID *xsync.MapOf[string, Descriptor]
	byForeign *xsync.MapOf[string, Descriptor]
}

// New creates an empty registry. Most programs use the process-wide
// Default() registry; tests construct isolated registries freely.
func New() *Registry {
	return &Registry{
		byTypeID:  xsync.NewMapOf[string, Descriptor](),
		byForeign: xsync.NewMapOf[string, Descriptor](),
	}
}

var defaultRegistry = New()

// Default returns the process-wide ambient registry, mirroring the
// package-level register() convenience the spec's external interface
// describes (spec §6).
func Default() *Registry { return defaultRegistry }

// Register enrolls a descriptor. Registration is idempotent under an
// identical descriptor (same type-id, same field-name set); re-registering
// the same type-id with a different field schema fails with
// enacterrors.ErrRegistryError, per spec §4.1.
func (r *Registry) Register(d Descriptor) error {
	if d.New == nil {
		return errors.Wrap(enacterrors.ErrRegistryError, "descriptor has no factory")
	}
	id := d.ID.Canonical()
	if existing, ok := r.byTypeID.Load(id); ok {
		if existing.TypeDigest() != d.TypeDigest() {
			return errors.Wrapf(enacterrors.ErrRegistryError,
				"conflicting re-registration of type %q", id)
		}
		return nil
	}
	r.byTypeID.Store(id, d)
	if d.Wrapper != nil {
		r.byForeign.Store(d.Wrapper.ForeignType, d)
	}
	return nil
}

// LookupByTypeID resolves a canonical type-id string to its descriptor.
func (r *Registry) LookupByTypeID(id string) (Descriptor, error) {
	d, ok := r.byTypeID.Load(id)
	if !ok {
		return Descriptor{}, errors.Wrapf(enacterrors.ErrRegistryError, "unknown type id %q", id)
	}
	return d, nil
}

// LookupWrapperFor resolves the descriptor that wraps a foreign Go type,
// identified by its reflect.Type.String() form.
func (r *Registry) LookupWrapperFor(foreignType string) (Descriptor, bool) {
	return r.byForeign.Load(foreignType)
}

// MustRegister panics on error; convenient for package-level var blocks that
// register their own resource types, matching the teacher's init-time
// registration style (classes/fields.go's field table construction).
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(fmt.Sprintf("enact: register %v: %v", d.ID, err))
	}
}
