// Package fieldvalue defines FieldValue, the closed, recursive leaf universe
// that every Resource field is drawn from. Modeled as a sum type over a
// small tag set rather than an open class hierarchy, per the design notes:
// dynamic dispatch on field values should be a closed tagged variant.
package fieldvalue

import (
	"fmt"
	"math"
	"sort"
)

// Kind tags the variant a Value currently holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindBytes
	KindSeq
	KindMap
	KindResource
	KindTypeRef
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	case KindResource:
		return "resource"
	case KindTypeRef:
		return "typeref"
	case KindRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Resourcer is implemented by anything a FieldValue can carry as a nested
// resource. It is defined here (rather than imported from package resource)
// to avoid an import cycle: package resource depends on fieldvalue, not the
// other way around.
type Resourcer interface {
	TypeID() string
	FieldNames() []string
	FieldValues() []Value
}

// Reffer is implemented by anything a FieldValue can carry as a reference
// into a store. Only the digest and type-id are needed to pack a Ref; the
// cached resource, if any, never affects packing or hashing.
type Reffer interface {
	RefDigest() string
	RefTypeID() string
}

// Value is the closed FieldValue sum type. Exactly one of the typed
// accessors is meaningful, selected by Kind. Construct with the
// constructors below (Null, Int, Float, ..., Ref); the zero Value is
// KindNull.
type Value struct {
	kind Kind

	i     int64
	f     float64
	b     bool
	s     string
	bytes []byte
	seq   []Value
	m     map[string]Value
	res   Resourcer
	ref   Reffer
	typ   string // type-id, for KindTypeRef
}

func (v Value) Kind() Kind { return v.kind }

func Null() Value                { return Value{kind: KindNull} }
func Int(i int64) Value          { return Value{kind: KindInt, i: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, f: canonFloat(f)} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value       { return Value{kind: KindBytes, bytes: append([]byte(nil), b...)} }
func Seq(vs ...Value) Value      { return Value{kind: KindSeq, seq: append([]Value(nil), vs...)} }
func Resource(r Resourcer) Value { return Value{kind: KindResource, res: r} }
func TypeRef(typeID string) Value { return Value{kind: KindTypeRef, typ: typeID} }
func Ref(r Reffer) Value         { return Value{kind: KindRef, ref: r} }

// Map builds a KindMap value. Key order is caller-visible via Map() but is
// never semantically significant; the packer re-sorts before hashing.
func Map(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

// canonFloat canonicalizes -0.0 to +0.0 and all NaN bit patterns to a single
// representative, per §4.3.
func canonFloat(f float64) float64 {
	if f == 0 {
		return 0
	}
	if math.IsNaN(f) {
		return math.NaN()
	}
	return f
}

func (v Value) Int() (int64, bool)   { return v.i, v.kind == KindInt }
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }
func (v Value) Bool() (bool, bool)   { return v.b, v.kind == KindBool }
func (v Value) String() (string, bool) { return v.s, v.kind == KindString }
func (v Value) Bytes() ([]byte, bool) { return v.bytes, v.kind == KindBytes }
func (v Value) Seq() ([]Value, bool) { return v.seq, v.kind == KindSeq }
func (v Value) Resource() (Resourcer, bool) { return v.res, v.kind == KindResource }
func (v Value) TypeRef() (string, bool) { return v.typ, v.kind == KindTypeRef }
func (v Value) Ref() (Reffer, bool)  { return v.ref, v.kind == KindRef }

// Map returns the underlying map in caller-visible (unsorted) order;
// callers that want canonical iteration use SortedMapKeys.
func (v Value) Map() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

// SortedMapKeys returns the map's keys sorted bytewise ascending over their
// UTF-8 encoding, per the map-key-ordering open question resolved in
// SPEC_FULL.md §13.
func (v Value) SortedMapKeys() []string {
	m, ok := v.Map()
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (v Value) GoString() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return fmt.Sprintf("int(%d)", v.i)
	case KindFloat:
		return fmt.Sprintf("float(%v)", v.f)
	case KindBool:
		return fmt.Sprintf("bool(%v)", v.b)
	case KindString:
		return fmt.Sprintf("string(%q)", v.s)
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.bytes))
	case KindSeq:
		return fmt.Sprintf("seq(%d)", len(v.seq))
	case KindMap:
		return fmt.Sprintf("map(%d)", len(v.m))
	case KindResource:
		return fmt.Sprintf("resource(%s)", v.res.TypeID())
	case KindTypeRef:
		return fmt.Sprintf("typeref(%s)", v.typ)
	case KindRef:
		return fmt.Sprintf("ref(%s)", v.ref.RefDigest())
	default:
		return "invalid"
	}
}
