package digest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/agentic-ai/enact-go/enacterrors"
	"github.com/agentic-ai/enact-go/fieldvalue"
)

// Binary tags for the canonical encoding (spec §4.3, §6). One byte each;
// deliberately outside printable ASCII so a corrupt stream fails fast.
const (
	tagNull   byte = 0x00
	tagInt    byte = 0x01
	tagFloat  byte = 0x02
	tagBool   byte = 0x03
	tagString byte = 0x04
	tagBytes  byte = 0x05
	tagSeq    byte = 0x06
	tagMap    byte = 0x07
	tagRes    byte = 0x08
	tagRef    byte = 0x09
	tagType   byte = 0x0A
	tagBignum byte = 0x0B
)

// Node is the packed form: a tree whose leaves are the primitives of spec
// §3, produced by Pack. It is the canonical intermediate representation
// used both for hashing (via Encode) and for storage (a backend persists
// Encode's output directly).
type Node struct {
	Kind fieldvalue.Kind

	I     int64
	F     float64
	B     bool
	S     string
	Bytes []byte
	Seq   []Node
	Map   []MapEntry // sorted bytewise ascending by Key, per SPEC_FULL §13

	// KindResource
	TypeID string
	Fields []FieldNode

	// KindRef: the referenced resource's digest. Packing a Ref yields only
	// the digest, never the referred-to content (spec §4.3 rationale).
	RefDigest Digest

	// KindTypeRef
	RefTypeID string
}

// FieldNode pairs a declared field name with its packed value.
type FieldNode struct {
	Name  string
	Value Node
}

// MapEntry pairs a sorted map key with its packed value.
type MapEntry struct {
	Key   string
	Value Node
}

// packState carries cycle-detection state across a single Pack call. Cycle
// detection is identity-based (pointer identity of the Go value backing a
// Resourcer), which covers every cycle a Go program can actually construct:
// value types cannot self-reference without indirection.
type packState struct {
	visiting map[uintptr]struct{}
}

// Pack canonicalizes a FieldValue into its packed Node form, per spec §4.3.
// It returns enacterrors.ErrPackingError (wrapped) if it detects a cycle in
// in-memory resource data.
func Pack(v fieldvalue.Value) (Node, error) {
	st := &packState{visiting: make(map[uintptr]struct{})}
	return st.pack(v)
}

func identityOf(res fieldvalue.Resourcer) (uintptr, bool) {
	rv := reflect.ValueOf(res)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Pointer(), true
	}
	return 0, false
}

func (st *packState) pack(v fieldvalue.Value) (Node, error) {
	switch v.Kind() {
	case fieldvalue.KindNull:
		return Node{Kind: fieldvalue.KindNull}, nil
	case fieldvalue.KindInt:
		i, _ := v.Int()
		return Node{Kind: fieldvalue.KindInt, I: i}, nil
	case fieldvalue.KindFloat:
		f, _ := v.Float()
		if f == 0 {
			f = 0 // canonicalize -0.0 -> +0.0
		}
		if math.IsNaN(f) {
			f = canonicalNaNValue
		}
		return Node{Kind: fieldvalue.KindFloat, F: f}, nil
	case fieldvalue.KindBool:
		b, _ := v.Bool()
		return Node{Kind: fieldvalue.KindBool, B: b}, nil
	case fieldvalue.KindString:
		s, _ := v.String()
		return Node{Kind: fieldvalue.KindString, S: s}, nil
	case fieldvalue.KindBytes:
		b, _ := v.Bytes()
		return Node{Kind: fieldvalue.KindBytes, Bytes: b}, nil
	case fieldvalue.KindSeq:
		seq, _ := v.Seq()
		packed := make([]Node, len(seq))
		for i, e := range seq {
			n, err := st.pack(e)
			if err != nil {
				return Node{}, err
			}
			packed[i] = n
		}
		return Node{Kind: fieldvalue.KindSeq, Seq: packed}, nil
	case fieldvalue.KindMap:
		m, _ := v.Map()
		for k := range m {
			if !utf8.ValidString(k) {
				return Node{}, errors.Wrap(enacterrors.ErrPackingError, "map keys must be valid UTF-8 strings")
			}
		}
		keys := v.SortedMapKeys()
		entries := make([]MapEntry, len(keys))
		for i, k := range keys {
			n, err := st.pack(m[k])
			if err != nil {
				return Node{}, err
			}
			entries[i] = MapEntry{Key: k, Value: n}
		}
		return Node{Kind: fieldvalue.KindMap, Map: entries}, nil
	case fieldvalue.KindResource:
		res, _ := v.Resource()
		return st.packResource(res)
	case fieldvalue.KindTypeRef:
		t, _ := v.TypeRef()
		return Node{Kind: fieldvalue.KindTypeRef, RefTypeID: t}, nil
	case fieldvalue.KindRef:
		r, _ := v.Ref()
		d, err := Parse(r.RefDigest())
		if err != nil {
			return Node{}, errors.Wrap(err, "packing ref")
		}
		return Node{Kind: fieldvalue.KindRef, RefDigest: d}, nil
	default:
		return Node{}, errors.Wrapf(enacterrors.ErrPackingError, "unsupported field kind %v", v.Kind())
	}
}

// canonicalNaNValue is the single NaN bit pattern every packed NaN is
// normalized to, per spec §4.3.
var canonicalNaNValue = math.NaN()

func (st *packState) packResource(res fieldvalue.Resourcer) (Node, error) {
	if id, ok := identityOf(res); ok {
		if _, seen := st.visiting[id]; seen {
			return Node{}, errors.Wrap(enacterrors.ErrPackingError,
				"cyclic references are not allowed in field values")
		}
		st.visiting[id] = struct{}{}
		defer delete(st.visiting, id)
	}
	names := res.FieldNames()
	values := res.FieldValues()
	if len(names) != len(values) {
		return Node{}, errors.Wrapf(enacterrors.ErrPackingError,
			"resource %s: %d field names but %d values", res.TypeID(), len(names), len(values))
	}
	fields := make([]FieldNode, len(names))
	for i, n := range names {
		packed, err := st.pack(values[i])
		if err != nil {
			return Node{}, err
		}
		fields[i] = FieldNode{Name: n, Value: packed}
	}
	return Node{Kind: fieldvalue.KindResource, TypeID: res.TypeID(), Fields: fields}, nil
}

// Encode serializes a Node to the canonical binary format described in
// spec §4.3/§6: fixed endian (big), length-prefixed strings/bytes with
// 64-bit unsigned lengths, 64-bit signed big-endian integers, IEEE-754
// big-endian doubles with NaN canonicalized to a single bit pattern.
//
// Larger-than-int64 integers are out of scope for this Go port (FieldValue
// has no bignum leaf type), so the tagBignum wire tag is never produced by
// Encode, and Decode recognizes it only to reject it with ErrPackingError.
func Encode(n Node) []byte {
	var buf bytes.Buffer
	encode(&buf, n)
	return buf.Bytes()
}

// Of computes the digest of a resource's canonical packed form directly.
// store.Store.Commit does not call it: it runs Pack, Encode and Sum itself
// so it can keep the encoded bytes.
func Of(v fieldvalue.Value) (Digest, Node, error) {
	packed, err := Pack(v)
	if err != nil {
		return Digest{}, Node{}, err
	}
	return Sum(Encode(packed)), packed, nil
}

func encode(buf *bytes.Buffer, n Node) {
	switch n.Kind {
	case fieldvalue.KindNull:
		buf.WriteByte(tagNull)
	case fieldvalue.KindInt:
		buf.WriteByte(tagInt)
		writeUint64(buf, uint64(n.I))
	case fieldvalue.KindFloat:
		buf.WriteByte(tagFloat)
		f := n.F
		if math.IsNaN(f) {
			f = canonicalNaNValue
		}
		writeUint64(buf, math.Float64bits(f))
	case fieldvalue.KindBool:
		buf.WriteByte(tagBool)
		if n.B {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case fieldvalue.KindString:
		buf.WriteByte(tagString)
		writeLenPrefixed(buf, []byte(n.S))
	case fieldvalue.KindBytes:
		buf.WriteByte(tagBytes)
		writeLenPrefixed(buf, n.Bytes)
	case fieldvalue.KindSeq:
		buf.WriteByte(tagSeq)
		writeUint64(buf, uint64(len(n.Seq)))
		for _, e := range n.Seq {
			encode(buf, e)
		}
	case fieldvalue.KindMap:
		buf.WriteByte(tagMap)
		writeUint64(buf, uint64(len(n.Map)))
		for _, e := range n.Map {
			writeLenPrefixed(buf, []byte(e.Key))
			encode(buf, e.Value)
		}
	case fieldvalue.KindResource:
		buf.WriteByte(tagRes)
		writeLenPrefixed(buf, []byte(n.TypeID))
		writeUint64(buf, uint64(len(n.Fields)))
		for _, f := range n.Fields {
			writeLenPrefixed(buf, []byte(f.Name))
			encode(buf, f.Value)
		}
	case fieldvalue.KindRef:
		buf.WriteByte(tagRef)
		buf.Write(n.RefDigest[:])
	case fieldvalue.KindTypeRef:
		buf.WriteByte(tagType)
		writeLenPrefixed(buf, []byte(n.RefTypeID))
	default:
		panic(fmt.Sprintf("digest: cannot encode kind %v", n.Kind))
	}
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeLenPrefixed(buf *bytes.Buffer, data []byte) {
	writeUint64(buf, uint64(len(data)))
	buf.Write(data)
}
