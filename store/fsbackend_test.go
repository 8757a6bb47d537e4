package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-ai/enact-go/digest"
	"github.com/agentic-ai/enact-go/fieldvalue"
)

func TestFilesystemBackendCommitGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFilesystemBackend(t.TempDir())
	require.NoError(t, err)

	packed, err := digest.Pack(fieldvalue.String("hello"))
	require.NoError(t, err)
	encoded := digest.Encode(packed)
	d := digest.Sum(encoded)

	require.NoError(t, backend.Commit(ctx, d, encoded))

	has, err := backend.Has(ctx, d)
	require.NoError(t, err)
	assert.True(t, has)

	got, ok, err := backend.Get(ctx, d)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, encoded, got)
}

func TestFilesystemBackendCommitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFilesystemBackend(t.TempDir())
	require.NoError(t, err)

	packed, err := digest.Pack(fieldvalue.Int(1))
	require.NoError(t, err)
	encoded := digest.Encode(packed)
	d := digest.Sum(encoded)

	require.NoError(t, backend.Commit(ctx, d, encoded))
	require.NoError(t, backend.Commit(ctx, d, encoded))

	digests, err := backend.Digests(ctx)
	require.NoError(t, err)
	assert.Len(t, digests, 1)
}

func TestFilesystemBackendGetMissingReturnsNotOK(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFilesystemBackend(t.TempDir())
	require.NoError(t, err)

	var zero digest.Digest
	_, ok, err := backend.Get(ctx, zero)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFilesystemBackendDigestsSkipsUnparsableEntries(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := NewFilesystemBackend(dir)
	require.NoError(t, err)

	packed, err := digest.Pack(fieldvalue.Bool(true))
	require.NoError(t, err)
	encoded := digest.Encode(packed)
	d := digest.Sum(encoded)
	require.NoError(t, backend.Commit(ctx, d, encoded))
	stray := filepath.Join(dir, d.Hex()[:2], d.Hex()[2:]+".tmp.1")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))

	digests, err := backend.Digests(ctx)
	require.NoError(t, err)
	require.Len(t, digests, 1)
	assert.Equal(t, d, digests[0])
}
