package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-ai/enact-go/digest"
	"github.com/agentic-ai/enact-go/enacterrors"
	"github.com/agentic-ai/enact-go/fieldvalue"
	"github.com/agentic-ai/enact-go/registry"
	"github.com/agentic-ai/enact-go/resource"
)

type node struct {
	Label string
	Next  *Ref
}

func (n node) TypeID() string       { return registry.TypeID{Name: "Node"}.Canonical() }
func (n node) FieldNames() []string { return []string{"label", "next"} }
func (n node) FieldValues() []fieldvalue.Value {
	if n.Next == nil {
		return []fieldvalue.Value{fieldvalue.String(n.Label), fieldvalue.Null()}
	}
	return []fieldvalue.Value{fieldvalue.String(n.Label), fieldvalue.Ref(n.Next)}
}
func (n node) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	label, _ := fields["label"].String()
	out := node{Label: label}
	if r, ok := fields["next"].Ref(); ok {
		out.Next = NewRef(mustParseHexRef(r.RefDigest()), r.RefTypeID())
	}
	return out, nil
}

func mustParseHexRef(hex string) digest.Digest {
	d, err := digest.Parse(hex)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestRegistry() *registry.Registry {
	r := registry.New()
	r.MustRegister(registry.Descriptor{
		ID:         registry.TypeID{Name: "Node"},
		FieldNames: []string{"label", "next"},
		New:        func() registry.FieldsResource { return node{} },
	})
	return r
}

func TestCommitCheckoutRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), WithRegistry(newTestRegistry()))

	ref, err := s.Commit(ctx, node{Label: "leaf"})
	require.NoError(t, err)
	require.NotNil(t, ref)

	fresh := NewRef(ref.Digest(), ref.TypeID())
	got, err := s.Checkout(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, node{Label: "leaf"}, got)
}

func TestCommitIsContentAddressedAndDeduped(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), WithRegistry(newTestRegistry()))

	r1, err := s.Commit(ctx, node{Label: "same"})
	require.NoError(t, err)
	r2, err := s.Commit(ctx, node{Label: "same"})
	require.NoError(t, err)
	assert.Equal(t, r1.Digest(), r2.Digest())
}

func TestCheckoutNotFound(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), WithRegistry(newTestRegistry()))
	var zero digest.Digest
	_, err := s.Checkout(ctx, NewRef(zero, ""))
	assert.ErrorIs(t, err, enacterrors.ErrNotFound)
}

func TestCheckoutDetectsIntegrityViolation(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := New(backend, WithRegistry(newTestRegistry()))

	ref, err := s.Commit(ctx, node{Label: "original"})
	require.NoError(t, err)

	tamperedPacked, err := digest.Pack(fieldvalue.Resource(node{Label: "tampered"}))
	require.NoError(t, err)
	tampered := NewMemoryBackend()
	require.NoError(t, tampered.Commit(ctx, ref.Digest(), digest.Encode(tamperedPacked)))

	fresh := NewRef(ref.Digest(), ref.TypeID())
	_, err = New(tampered, WithRegistry(newTestRegistry())).Checkout(ctx, fresh)
	assert.ErrorIs(t, err, enacterrors.ErrIntegrity)
}

// TestModifyIsolation covers spec invariant 7: a *Ref snapshotted via
// DeepCopy before a Modify call keeps resolving to the pre-modify value,
// because Modify rebinds the original Ref in place rather than mutating
// shared state.
func TestModifyIsolation(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), WithRegistry(newTestRegistry()))

	ref, err := s.Commit(ctx, node{Label: "v1"})
	require.NoError(t, err)
	snapshot := s.DeepCopy(ref)

	err = s.Modify(ctx, ref, func(current resource.Resource) (resource.Resource, error) {
		n := current.(node)
		n.Label = "v2"
		return n, nil
	})
	require.NoError(t, err)

	assert.NotEqual(t, snapshot.Digest(), ref.Digest())

	updated, err := s.Checkout(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, node{Label: "v2"}, updated)

	original, err := s.Checkout(ctx, snapshot)
	require.NoError(t, err)
	assert.Equal(t, node{Label: "v1"}, original)
}

func TestDependencyGraphIsAcyclicOverLinkedList(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), WithRegistry(newTestRegistry()))

	tail, err := s.Commit(ctx, node{Label: "tail"})
	require.NoError(t, err)
	mid, err := s.Commit(ctx, node{Label: "mid", Next: tail})
	require.NoError(t, err)
	head, err := s.Commit(ctx, node{Label: "head", Next: mid})
	require.NoError(t, err)

	graph, err := s.DependencyGraph(ctx, head, 0)
	require.NoError(t, err)

	assert.Len(t, graph, 3)
	assert.Equal(t, []string{mid.Digest().Hex()}, graph[head.Digest().Hex()])
	assert.Equal(t, []string{tail.Digest().Hex()}, graph[mid.Digest().Hex()])
	assert.Empty(t, graph[tail.Digest().Hex()])
}

func TestAmbientStoreContext(t *testing.T) {
	ctx := context.Background()
	_, err := Current(ctx)
	assert.ErrorIs(t, err, enacterrors.ErrNoActiveStore)

	s := New(NewMemoryBackend(), WithRegistry(newTestRegistry()))
	ctx = WithStore(ctx, s)
	got, err := Current(ctx)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestPackageLevelCommitCheckoutUseAmbientStore(t *testing.T) {
	ctx := WithStore(context.Background(), New(NewMemoryBackend(), WithRegistry(newTestRegistry())))

	ref, err := Commit(ctx, node{Label: "ambient"})
	require.NoError(t, err)

	got, err := Checkout(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, node{Label: "ambient"}, got)
}
