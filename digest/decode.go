package digest

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/agentic-ai/enact-go/enacterrors"
	"github.com/agentic-ai/enact-go/fieldvalue"
)

// Decode parses bytes produced by Encode back into a Node tree. It is the
// inverse used by storage backends on checkout, before the resource layer
// reconstructs typed instances via the registry.
func Decode(data []byte) (Node, error) {
	d := &decoder{buf: data}
	n, err := d.decode()
	if err != nil {
		return Node{}, err
	}
	if d.pos != len(d.buf) {
		return Node{}, errors.Wrap(enacterrors.ErrPackingError, "trailing bytes after decoding packed resource")
	}
	return n, nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) byte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, errors.Wrap(enacterrors.ErrPackingError, "unexpected end of packed data")
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, errors.Wrap(enacterrors.ErrPackingError, "unexpected end of packed data")
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) uint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) lenPrefixed() ([]byte, error) {
	n, err := d.uint64()
	if err != nil {
		return nil, err
	}
	return d.take(int(n))
}

func (d *decoder) decode() (Node, error) {
	tag, err := d.byte()
	if err != nil {
		return Node{}, err
	}
	switch tag {
	case tagNull:
		return Node{Kind: fieldvalue.KindNull}, nil
	case tagInt:
		v, err := d.uint64()
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: fieldvalue.KindInt, I: int64(v)}, nil
	case tagBignum:
		return Node{}, errors.Wrap(enacterrors.ErrPackingError,
			"bignum values are not supported by this port's int64-only FieldValue")
	case tagFloat:
		v, err := d.uint64()
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: fieldvalue.KindFloat, F: math.Float64frombits(v)}, nil
	case tagBool:
		b, err := d.byte()
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: fieldvalue.KindBool, B: b != 0}, nil
	case tagString:
		b, err := d.lenPrefixed()
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: fieldvalue.KindString, S: string(b)}, nil
	case tagBytes:
		b, err := d.lenPrefixed()
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: fieldvalue.KindBytes, Bytes: append([]byte(nil), b...)}, nil
	case tagSeq:
		count, err := d.uint64()
		if err != nil {
			return Node{}, err
		}
		seq := make([]Node, count)
		for i := range seq {
			seq[i], err = d.decode()
			if err != nil {
				return Node{}, err
			}
		}
		return Node{Kind: fieldvalue.KindSeq, Seq: seq}, nil
	case tagMap:
		count, err := d.uint64()
		if err != nil {
			return Node{}, err
		}
		entries := make([]MapEntry, count)
		for i := range entries {
			key, err := d.lenPrefixed()
			if err != nil {
				return Node{}, err
			}
			val, err := d.decode()
			if err != nil {
				return Node{}, err
			}
			entries[i] = MapEntry{Key: string(key), Value: val}
		}
		return Node{Kind: fieldvalue.KindMap, Map: entries}, nil
	case tagRes:
		typeID, err := d.lenPrefixed()
		if err != nil {
			return Node{}, err
		}
		count, err := d.uint64()
		if err != nil {
			return Node{}, err
		}
		fields := make([]FieldNode, count)
		for i := range fields {
			name, err := d.lenPrefixed()
			if err != nil {
				return Node{}, err
			}
			val, err := d.decode()
			if err != nil {
				return Node{}, err
			}
			fields[i] = FieldNode{Name: string(name), Value: val}
		}
		return Node{Kind: fieldvalue.KindResource, TypeID: string(typeID), Fields: fields}, nil
	case tagRef:
		raw, err := d.take(Size)
		if err != nil {
			return Node{}, err
		}
		var dg Digest
		copy(dg[:], raw)
		return Node{Kind: fieldvalue.KindRef, RefDigest: dg}, nil
	case tagType:
		typeID, err := d.lenPrefixed()
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: fieldvalue.KindTypeRef, RefTypeID: string(typeID)}, nil
	default:
		return Node{}, errors.Wrapf(enacterrors.ErrPackingError, "unknown packed tag 0x%x", tag)
	}
}

// Unpack reconstructs a fieldvalue.Value tree from a Node, using resolve to
// turn a KindResource Node's type-id and fields back into a
// fieldvalue.Resourcer, and mkRef to turn a KindRef Node's digest into a
// fieldvalue.Reffer. This is the generic half of unpacking; the
// registry-aware half lives in package store, which supplies resolve/mkRef.
func Unpack(n Node, resolve func(typeID string, fields map[string]fieldvalue.Value) (fieldvalue.Resourcer, error), mkRef func(Digest) fieldvalue.Reffer) (fieldvalue.Value, error) {
	switch n.Kind {
	case fieldvalue.KindNull:
		return fieldvalue.Null(), nil
	case fieldvalue.KindInt:
		return fieldvalue.Int(n.I), nil
	case fieldvalue.KindFloat:
		return fieldvalue.Float(n.F), nil
	case fieldvalue.KindBool:
		return fieldvalue.Bool(n.B), nil
	case fieldvalue.KindString:
		return fieldvalue.String(n.S), nil
	case fieldvalue.KindBytes:
		return fieldvalue.Bytes(n.Bytes), nil
	case fieldvalue.KindSeq:
		vs := make([]fieldvalue.Value, len(n.Seq))
		for i, e := range n.Seq {
			v, err := Unpack(e, resolve, mkRef)
			if err != nil {
				return fieldvalue.Value{}, err
			}
			vs[i] = v
		}
		return fieldvalue.Seq(vs...), nil
	case fieldvalue.KindMap:
		m := make(map[string]fieldvalue.Value, len(n.Map))
		for _, e := range n.Map {
			v, err := Unpack(e.Value, resolve, mkRef)
			if err != nil {
				return fieldvalue.Value{}, err
			}
			m[e.Key] = v
		}
		return fieldvalue.Map(m), nil
	case fieldvalue.KindResource:
		fields := make(map[string]fieldvalue.Value, len(n.Fields))
		for _, f := range n.Fields {
			v, err := Unpack(f.Value, resolve, mkRef)
			if err != nil {
				return fieldvalue.Value{}, err
			}
			fields[f.Name] = v
		}
		res, err := resolve(n.TypeID, fields)
		if err != nil {
			return fieldvalue.Value{}, err
		}
		return fieldvalue.Resource(res), nil
	case fieldvalue.KindRef:
		return fieldvalue.Ref(mkRef(n.RefDigest)), nil
	case fieldvalue.KindTypeRef:
		return fieldvalue.TypeRef(n.RefTypeID), nil
	default:
		return fieldvalue.Value{}, errors.Wrapf(enacterrors.ErrPackingError, "unknown packed kind %v", n.Kind)
	}
}
