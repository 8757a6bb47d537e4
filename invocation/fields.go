package invocation

import (
	"github.com/pkg/errors"

	"github.com/agentic-ai/enact-go/digest"
	"github.com/agentic-ai/enact-go/enacterrors"
	"github.com/agentic-ai/enact-go/fieldvalue"
	"github.com/agentic-ai/enact-go/store"
)

// refField extracts a required Ref-valued field, reconstructing a *store.Ref
// from the digest/type-id carried by the decoded fieldvalue.Reffer.
func refField(fields map[string]fieldvalue.Value, name string) (*store.Ref, error) {
	v, ok := fields[name]
	if !ok {
		return nil, errors.Wrapf(enacterrors.ErrPackingError, "missing field %q", name)
	}
	r, ok := v.Ref()
	if !ok {
		return nil, errors.Wrapf(enacterrors.ErrPackingError, "field %q is not a ref", name)
	}
	d, err := digest.Parse(r.RefDigest())
	if err != nil {
		return nil, err
	}
	return store.NewRef(d, r.RefTypeID()), nil
}

// optRefField extracts a Ref-valued field that may be null, returning
// (nil, nil) when the field holds fieldvalue.Null().
func optRefField(fields map[string]fieldvalue.Value, name string) (*store.Ref, error) {
	v, ok := fields[name]
	if !ok || v.Kind() == fieldvalue.KindNull {
		return nil, nil
	}
	return refField(fields, name)
}

// refValue packs ref as a field value, or Null if ref is nil.
func refValue(ref *store.Ref) fieldvalue.Value {
	if ref == nil {
		return fieldvalue.Null()
	}
	return fieldvalue.Ref(ref)
}

// refSeqField extracts a required sequence-of-refs field.
func refSeqField(fields map[string]fieldvalue.Value, name string) ([]*store.Ref, error) {
	v, ok := fields[name]
	if !ok {
		return nil, errors.Wrapf(enacterrors.ErrPackingError, "missing field %q", name)
	}
	seq, ok := v.Seq()
	if !ok {
		return nil, errors.Wrapf(enacterrors.ErrPackingError, "field %q is not a sequence", name)
	}
	out := make([]*store.Ref, len(seq))
	for i, e := range seq {
		r, ok := e.Ref()
		if !ok {
			return nil, errors.Wrapf(enacterrors.ErrPackingError, "field %q[%d] is not a ref", name, i)
		}
		d, err := digest.Parse(r.RefDigest())
		if err != nil {
			return nil, err
		}
		out[i] = store.NewRef(d, r.RefTypeID())
	}
	return out, nil
}

func refSeqValue(refs []*store.Ref) fieldvalue.Value {
	vs := make([]fieldvalue.Value, len(refs))
	for i, r := range refs {
		vs[i] = fieldvalue.Ref(r)
	}
	return fieldvalue.Seq(vs...)
}
