package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-ai/enact-go/fieldvalue"
)

func TestMultihashOfBLAKE3RoundTrips(t *testing.T) {
	mh, err := MultihashOfBLAKE3([]byte("canonical bytes"))
	require.NoError(t, err)

	code, digestBytes, err := DecodeMultihash(mh)
	require.NoError(t, err)
	assert.Equal(t, uint64(blake3Code), code)
	assert.Len(t, digestBytes, Size)
}

func TestMultihashOfBLAKE3IsDeterministic(t *testing.T) {
	mh1, err := MultihashOfBLAKE3([]byte("same bytes"))
	require.NoError(t, err)
	mh2, err := MultihashOfBLAKE3([]byte("same bytes"))
	require.NoError(t, err)
	assert.Equal(t, mh1, mh2)
}

func TestMultihashOfBLAKE3IsDistinctForDistinctInput(t *testing.T) {
	mh1, err := MultihashOfBLAKE3([]byte("a"))
	require.NoError(t, err)
	mh2, err := MultihashOfBLAKE3([]byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, mh1, mh2)
}

func TestMultihashOfMatchesPackThenEncodeThenMultihashOfBLAKE3(t *testing.T) {
	res := &fakeResource{typeID: `{"name":"MyResource"}`, names: []string{"a"}, values: []fieldvalue.Value{
		fieldvalue.Int(42),
	}}

	packed, err := Pack(fieldvalue.Resource(res))
	require.NoError(t, err)
	want, err := MultihashOfBLAKE3(Encode(packed))
	require.NoError(t, err)

	got, err := MultihashOf(fieldvalue.Resource(res))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
