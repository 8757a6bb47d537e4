package digest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-ai/enact-go/fieldvalue"
)

type fakeResource struct {
	typeID string
	names  []string
	values []fieldvalue.Value
}

func (f *fakeResource) TypeID() string             { return f.typeID }
func (f *fakeResource) FieldNames() []string        { return f.names }
func (f *fakeResource) FieldValues() []fieldvalue.Value { return f.values }

type fakeRef struct {
	digest string
	typeID string
}

func (r fakeRef) RefDigest() string { return r.digest }
func (r fakeRef) RefTypeID() string { return r.typeID }

func TestDigestDeterminism(t *testing.T) {
	r1 := &fakeResource{typeID: `{"name":"MyResource"}`, names: []string{"a", "b"}, values: []fieldvalue.Value{
		fieldvalue.String("hello"), fieldvalue.Int(42),
	}}
	r2 := &fakeResource{typeID: `{"name":"MyResource"}`, names: []string{"a", "b"}, values: []fieldvalue.Value{
		fieldvalue.String("hello"), fieldvalue.Int(42),
	}}
	d1, _, err := Of(fieldvalue.Resource(r1))
	require.NoError(t, err)
	d2, _, err := Of(fieldvalue.Resource(r2))
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1.Hex(), 64)
}

func TestDigestDistinctness(t *testing.T) {
	r1 := &fakeResource{typeID: `{"name":"MyResource"}`, names: []string{"a"}, values: []fieldvalue.Value{fieldvalue.Int(1)}}
	r2 := &fakeResource{typeID: `{"name":"MyResource"}`, names: []string{"a"}, values: []fieldvalue.Value{fieldvalue.Int(2)}}
	d1, _, err := Of(fieldvalue.Resource(r1))
	require.NoError(t, err)
	d2, _, err := Of(fieldvalue.Resource(r2))
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestMapKeyOrderIsCanonical(t *testing.T) {
	v1 := fieldvalue.Map(map[string]fieldvalue.Value{"z": fieldvalue.Int(1), "a": fieldvalue.Int(2)})
	v2 := fieldvalue.Map(map[string]fieldvalue.Value{"a": fieldvalue.Int(2), "z": fieldvalue.Int(1)})
	n1, err := Pack(v1)
	require.NoError(t, err)
	n2, err := Pack(v2)
	require.NoError(t, err)
	assert.Equal(t, Encode(n1), Encode(n2))
	assert.Equal(t, "a", n1.Map[0].Key)
	assert.Equal(t, "z", n1.Map[1].Key)
}

func TestNegativeZeroAndNaNCanonicalization(t *testing.T) {
	n1, err := Pack(fieldvalue.Float(0.0))
	require.NoError(t, err)
	n2, err := Pack(fieldvalue.Float(math.Copysign(0, -1)))
	require.NoError(t, err)
	assert.Equal(t, Encode(n1), Encode(n2))

	n3, err := Pack(fieldvalue.Float(math.NaN()))
	require.NoError(t, err)
	n4, err := Pack(fieldvalue.Float(math.Float64frombits(0x7ff8000000000001)))
	require.NoError(t, err)
	assert.Equal(t, Encode(n3), Encode(n4))
}

func TestCycleDetection(t *testing.T) {
	a := &fakeResource{typeID: `{"name":"A"}`, names: []string{"next"}}
	b := &fakeResource{typeID: `{"name":"B"}`, names: []string{"next"}}
	a.values = []fieldvalue.Value{fieldvalue.Resource(b)}
	b.values = []fieldvalue.Value{fieldvalue.Resource(a)}

	_, err := Pack(fieldvalue.Resource(a))
	require.Error(t, err)
}

func TestRefPacksToDigestOnly(t *testing.T) {
	target := &fakeResource{typeID: `{"name":"Target"}`}
	d, _, err := Of(fieldvalue.Resource(target))
	require.NoError(t, err)

	ref := fakeRef{digest: d.Hex(), typeID: `{"name":"Target"}`}
	node, err := Pack(fieldvalue.Ref(ref))
	require.NoError(t, err)
	assert.Equal(t, fieldvalue.KindRef, node.Kind)
	assert.Equal(t, d, node.RefDigest)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	res := &fakeResource{
		typeID: `{"name":"Full"}`,
		names:  []string{"i", "f", "b", "s", "by", "seq", "m", "n"},
		values: []fieldvalue.Value{
			fieldvalue.Int(-7),
			fieldvalue.Float(3.5),
			fieldvalue.Bool(true),
			fieldvalue.String("hi"),
			fieldvalue.Bytes([]byte{1, 2, 3}),
			fieldvalue.Seq(fieldvalue.Int(1), fieldvalue.Int(2)),
			fieldvalue.Map(map[string]fieldvalue.Value{"k": fieldvalue.String("v")}),
			fieldvalue.Null(),
		},
	}
	packed, err := Pack(fieldvalue.Resource(res))
	require.NoError(t, err)
	encoded := Encode(packed)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, Encode(decoded))
}
