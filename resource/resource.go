// Package resource defines the Resource model (spec §4.2): a value with a
// registered type-id and an ordered, named sequence of FieldValue fields,
// plus the wrapping/unwrapping of foreign Go values at the model boundary.
//
// Grounded on drpcorg-chotki's object model (obj.go, classes/fields.go),
// generalized from Chotki's fixed RDT field table to an open,
// registry-driven field schema.
package resource

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/agentic-ai/enact-go/enacterrors"
	"github.com/agentic-ai/enact-go/fieldvalue"
	"github.com/agentic-ai/enact-go/registry"
)

// Resource is the interface every committable value implements: a
// registered type-id, and the ordered field enumeration/reconstruction pair
// required by spec §4.2.
type Resource interface {
	registry.FieldsResource
}

// FieldItem pairs a declared field name with its value, in declared order.
type FieldItem struct {
	Name  string
	Value fieldvalue.Value
}

// Items returns the (name, value) pairs for r in declared field order,
// aligning FieldNames() with FieldValues().
func Items(r fieldvalue.Resourcer) []FieldItem {
	names := r.FieldNames()
	values := r.FieldValues()
	items := make([]FieldItem, 0, len(names))
	for i, n := range names {
		var v fieldvalue.Value
		if i < len(values) {
			v = values[i]
		}
		items = append(items, FieldItem{Name: n, Value: v})
	}
	return items
}

// Wrap converts a foreign Go value to a Resource using the registry's
// wrapper table, keyed by fmt.Sprintf("%T", value). If no wrapper is
// registered and value is not already a Resource, an error is returned.
func Wrap(reg *registry.Registry, value any) (Resource, error) {
	if r, ok := value.(Resource); ok {
		return r, nil
	}
	typeName := fmt.Sprintf("%T", value)
	d, ok := reg.LookupWrapperFor(typeName)
	if !ok {
		return nil, errors.Wrapf(enacterrors.ErrRegistryError,
			"no wrapper registered for foreign type %s", typeName)
	}
	return d.Wrapper.Wrap(value)
}

// Unwrap converts a Resource produced by a wrapper back to the foreign Go
// value it represents. If the resource's type-id is registered without a
// wrapper, r is returned unchanged (it was never wrapped); a type-id that is
// not registered at all is returned as the registry's lookup error.
func Unwrap(reg *registry.Registry, r Resource) (any, error) {
	d, err := reg.LookupByTypeID(r.TypeID())
	if err != nil {
		return nil, err
	}
	if d.Wrapper == nil {
		return r, nil
	}
	return d.Wrapper.Unwrap(r)
}

// FromFields reconstructs a registered resource type from a name->value
// mapping via the registry, per spec §4.1's lookup_by_type_id.
func FromFields(reg *registry.Registry, typeID string, fields map[string]fieldvalue.Value) (Resource, error) {
	d, err := reg.LookupByTypeID(typeID)
	if err != nil {
		return nil, err
	}
	instance := d.New()
	built, err := instance.FromFields(fields)
	if err != nil {
		return nil, errors.Wrapf(err, "reconstructing %s", typeID)
	}
	r, ok := built.(Resource)
	if !ok {
		return nil, errors.Wrapf(enacterrors.ErrRegistryError, "factory for %s did not return a Resource", typeID)
	}
	return r, nil
}

// Sprint renders a human-readable, depth-limited, indented dump of a
// resource tree. Grounded on original_source/src/enact/pretty_print.py;
// this is the concrete default implementation of the "human-readable
// rendering" spec §6 calls non-normative. Refs are rendered as their
// digest, not expanded (expanding would require a store).
func Sprint(r fieldvalue.Resourcer) string {
	var b strings.Builder
	sprint(&b, r, 0, maxSprintDepth)
	return b.String()
}

const maxSprintDepth = 32

func sprint(b *strings.Builder, r fieldvalue.Resourcer, depth, maxDepth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s\n", indent, typeName(r.TypeID()))
	if depth >= maxDepth {
		fmt.Fprintf(b, "%s  ...\n", indent)
		return
	}
	for _, item := range Items(r) {
		fmt.Fprintf(b, "%s  %s: ", indent, item.Name)
		sprintValue(b, item.Value, depth+1, maxDepth)
	}
}

func sprintValue(b *strings.Builder, v fieldvalue.Value, depth, maxDepth int) {
	switch v.Kind() {
	case fieldvalue.KindResource:
		res, _ := v.Resource()
		b.WriteString("\n")
		sprint(b, res, depth, maxDepth)
	case fieldvalue.KindRef:
		ref, _ := v.Ref()
		fmt.Fprintf(b, "ref(%s)\n", ref.RefDigest())
	case fieldvalue.KindSeq:
		seq, _ := v.Seq()
		fmt.Fprintf(b, "[%d]\n", len(seq))
		for _, e := range seq {
			b.WriteString(strings.Repeat("  ", depth+1))
			sprintValue(b, e, depth+1, maxDepth)
		}
	case fieldvalue.KindMap:
		m, _ := v.Map()
		fmt.Fprintf(b, "{%d}\n", len(m))
		for _, k := range v.SortedMapKeys() {
			fmt.Fprintf(b, "%s  %q: ", strings.Repeat("  ", depth), k)
			sprintValue(b, m[k], depth+1, maxDepth)
		}
	default:
		fmt.Fprintf(b, "%s\n", v.GoString())
	}
}

func typeName(typeID string) string {
	// The type-id is canonical JSON {"name": "...", ...}; show just the
	// name for readability, falling back to the raw id on parse failure.
	const marker = `"name":"`
	i := strings.Index(typeID, marker)
	if i < 0 {
		return typeID
	}
	rest := typeID[i+len(marker):]
	j := strings.Index(rest, `"`)
	if j < 0 {
		return typeID
	}
	return rest[:j]
}
