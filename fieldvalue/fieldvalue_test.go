package fieldvalue

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubResource struct{}

func (stubResource) TypeID() string       { return `{"name":"Stub"}` }
func (stubResource) FieldNames() []string { return nil }
func (stubResource) FieldValues() []Value { return nil }

type stubRef struct{}

func (stubRef) RefDigest() string { return "deadbeef" }
func (stubRef) RefTypeID() string { return `{"name":"Stub"}` }

func TestZeroValueIsNull(t *testing.T) {
	var v Value
	assert.Equal(t, KindNull, v.Kind())
}

func TestConstructorsRoundTripAccessors(t *testing.T) {
	i, ok := Int(7).Int()
	assert.True(t, ok)
	assert.Equal(t, int64(7), i)

	_, ok = Int(7).Bool()
	assert.False(t, ok)

	s, ok := String("x").String()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	b, ok := Bytes([]byte{1, 2}).Bytes()
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2}, b)

	seq, ok := Seq(Int(1), Int(2)).Seq()
	assert.True(t, ok)
	assert.Len(t, seq, 2)

	res, ok := Resource(stubResource{}).Resource()
	assert.True(t, ok)
	assert.Equal(t, `{"name":"Stub"}`, res.TypeID())

	ref, ok := Ref(stubRef{}).Ref()
	assert.True(t, ok)
	assert.Equal(t, "deadbeef", ref.RefDigest())

	tr, ok := TypeRef(`{"name":"Foo"}`).TypeRef()
	assert.True(t, ok)
	assert.Equal(t, `{"name":"Foo"}`, tr)
}

func TestBytesConstructorCopiesInput(t *testing.T) {
	src := []byte{1, 2, 3}
	v := Bytes(src)
	src[0] = 99
	b, _ := v.Bytes()
	assert.Equal(t, byte(1), b[0])
}

func TestMapConstructorCopiesInput(t *testing.T) {
	src := map[string]Value{"a": Int(1)}
	v := Map(src)
	src["a"] = Int(2)
	m, _ := v.Map()
	got, _ := m["a"].Int()
	assert.Equal(t, int64(1), got)
}

func TestSortedMapKeysAreBytewiseAscending(t *testing.T) {
	v := Map(map[string]Value{"b": Int(1), "a": Int(2), "c": Int(3)})
	assert.Equal(t, []string{"a", "b", "c"}, v.SortedMapKeys())
}

func TestFloatCanonicalizesNegativeZero(t *testing.T) {
	v := Float(math.Copysign(0, -1))
	f, _ := v.Float()
	assert.Equal(t, float64(0), f)
	assert.False(t, math.Signbit(f))
}

func TestFloatCanonicalizesNaN(t *testing.T) {
	v := Float(math.Float64frombits(0x7ff8000000000001))
	f, _ := v.Float()
	assert.True(t, math.IsNaN(f))
}

func TestGoStringDoesNotPanicPerKind(t *testing.T) {
	values := []Value{
		Null(), Int(1), Float(1.5), Bool(true), String("s"), Bytes([]byte("b")),
		Seq(Int(1)), Map(map[string]Value{"k": Int(1)}), Resource(stubResource{}),
		TypeRef("t"), Ref(stubRef{}),
	}
	for _, v := range values {
		assert.NotEmpty(t, v.GoString())
	}
}
