package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/agentic-ai/enact-go/digest"
	"github.com/agentic-ai/enact-go/fieldvalue"
	"github.com/agentic-ai/enact-go/registry"
	"github.com/agentic-ai/enact-go/resource"
	"github.com/agentic-ai/enact-go/store"
)

// jsonRef is the wire shape of a $ref marker object.
type jsonRef struct {
	Digest string `json:"digest"`
	Type   string `json:"type"`
}

// valueFromJSON decodes one JSON value into a fieldvalue.Value. Plain JSON
// scalars, arrays and null map directly onto Int/Float/String/Bool/Seq/Null;
// the shapes fieldvalue.Value has that JSON doesn't (refs, nested resources,
// maps, type-refs, bytes) are spelled as single-key "$"-marker objects so a bare
// JSON object is never ambiguous between "this is a map" and "this is a
// resource".
func valueFromJSON(raw json.RawMessage) (fieldvalue.Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return fieldvalue.Null(), nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fieldvalue.Value{}, err
		}
		return fieldvalue.String(s), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return fieldvalue.Value{}, err
		}
		return fieldvalue.Bool(b), nil
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return fieldvalue.Value{}, err
		}
		vs := make([]fieldvalue.Value, len(elems))
		for i, e := range elems {
			v, err := valueFromJSON(e)
			if err != nil {
				return fieldvalue.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			vs[i] = v
		}
		return fieldvalue.Seq(vs...), nil
	case '{':
		return objectValueFromJSON(trimmed)
	default:
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return fieldvalue.Value{}, fmt.Errorf("not a valid JSON scalar: %s", trimmed)
		}
		if i, err := n.Int64(); err == nil {
			return fieldvalue.Int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return fieldvalue.Value{}, err
		}
		return fieldvalue.Float(f), nil
	}
}

func objectValueFromJSON(raw json.RawMessage) (fieldvalue.Value, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fieldvalue.Value{}, err
	}
	switch {
	case obj["$ref"] != nil:
		var jr jsonRef
		if err := json.Unmarshal(obj["$ref"], &jr); err != nil {
			return fieldvalue.Value{}, fmt.Errorf("$ref: %w", err)
		}
		d, err := digest.Parse(jr.Digest)
		if err != nil {
			return fieldvalue.Value{}, fmt.Errorf("$ref.digest: %w", err)
		}
		return fieldvalue.Ref(store.NewRef(d, jr.Type)), nil
	case obj["$type"] != nil:
		var typeID string
		if err := json.Unmarshal(obj["$type"], &typeID); err != nil {
			return fieldvalue.Value{}, fmt.Errorf("$type: %w", err)
		}
		fieldsRaw := obj["$fields"]
		if len(fieldsRaw) == 0 {
			fieldsRaw = json.RawMessage(`{}`)
		}
		res, err := resourceFromJSON(registry.Default(), typeID, fieldsRaw)
		if err != nil {
			return fieldvalue.Value{}, err
		}
		return fieldvalue.Resource(res), nil
	case obj["$map"] != nil:
		var m map[string]json.RawMessage
		if err := json.Unmarshal(obj["$map"], &m); err != nil {
			return fieldvalue.Value{}, fmt.Errorf("$map: %w", err)
		}
		out := make(map[string]fieldvalue.Value, len(m))
		for k, v := range m {
			fv, err := valueFromJSON(v)
			if err != nil {
				return fieldvalue.Value{}, fmt.Errorf("$map[%q]: %w", k, err)
			}
			out[k] = fv
		}
		return fieldvalue.Map(out), nil
	case obj["$typeref"] != nil:
		var typeID string
		if err := json.Unmarshal(obj["$typeref"], &typeID); err != nil {
			return fieldvalue.Value{}, fmt.Errorf("$typeref: %w", err)
		}
		return fieldvalue.TypeRef(typeID), nil
	case obj["$bytes"] != nil:
		var b []byte
		if err := json.Unmarshal(obj["$bytes"], &b); err != nil {
			return fieldvalue.Value{}, fmt.Errorf("$bytes: %w", err)
		}
		return fieldvalue.Bytes(b), nil
	default:
		return fieldvalue.Value{}, fmt.Errorf("object %s is not a value: use $ref, $type, $map, $typeref or $bytes", raw)
	}
}

// resourceFromJSON builds a registered resource of typeID from a JSON
// object of field-name -> JSON-encoded fieldvalue.Value pairs.
func resourceFromJSON(reg *registry.Registry, typeID string, raw json.RawMessage) (resource.Resource, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decoding fields for %s: %w", typeID, err)
	}
	fields := make(map[string]fieldvalue.Value, len(obj))
	for k, v := range obj {
		fv, err := valueFromJSON(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		fields[k] = fv
	}
	return resource.FromFields(reg, typeID, fields)
}

// jsonFromValue renders a fieldvalue.Value back to a JSON-marshalable Go
// value, using the same "$"-marker scheme valueFromJSON reads, so a value
// round-trips through show/checkout and back through commit unchanged. The
// one exception is a float with an integral value (3.0), which is written as
// a bare JSON number (3) and so reads back as an Int.
func jsonFromValue(v fieldvalue.Value) (any, error) {
	switch v.Kind() {
	case fieldvalue.KindNull:
		return nil, nil
	case fieldvalue.KindInt:
		n, _ := v.Int()
		return n, nil
	case fieldvalue.KindFloat:
		f, _ := v.Float()
		return f, nil
	case fieldvalue.KindBool:
		b, _ := v.Bool()
		return b, nil
	case fieldvalue.KindString:
		s, _ := v.String()
		return s, nil
	case fieldvalue.KindBytes:
		b, _ := v.Bytes()
		return map[string]any{"$bytes": b}, nil
	case fieldvalue.KindSeq:
		seq, _ := v.Seq()
		out := make([]any, len(seq))
		for i, e := range seq {
			jv, err := jsonFromValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = jv
		}
		return out, nil
	case fieldvalue.KindMap:
		m, _ := v.Map()
		out := make(map[string]any, len(m))
		for k, e := range m {
			jv, err := jsonFromValue(e)
			if err != nil {
				return nil, err
			}
			out[k] = jv
		}
		return map[string]any{"$map": out}, nil
	case fieldvalue.KindResource:
		res, _ := v.Resource()
		fields := make(map[string]any, len(res.FieldNames()))
		for _, item := range resource.Items(res) {
			jv, err := jsonFromValue(item.Value)
			if err != nil {
				return nil, err
			}
			fields[item.Name] = jv
		}
		return map[string]any{"$type": res.TypeID(), "$fields": fields}, nil
	case fieldvalue.KindTypeRef:
		t, _ := v.TypeRef()
		return map[string]any{"$typeref": t}, nil
	case fieldvalue.KindRef:
		r, _ := v.Ref()
		return map[string]any{"$ref": map[string]any{"digest": r.RefDigest(), "type": r.RefTypeID()}}, nil
	default:
		return nil, fmt.Errorf("unknown field value kind %v", v.Kind())
	}
}

// resourceToJSON renders a checked-out resource as a JSON-marshalable Go
// value, for the "checkout" command's machine-readable output.
func resourceToJSON(res resource.Resource) (map[string]any, error) {
	v, err := jsonFromValue(fieldvalue.Resource(res))
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}
