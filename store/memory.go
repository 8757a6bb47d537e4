package store

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/agentic-ai/enact-go/digest"
)

// MemoryBackend is an in-memory Backend: a concurrent digest->bytes map.
// Grounded on drpcorg-chotki's use of github.com/puzpuzpuz/xsync/v3 for its
// hot concurrent lookup tables, and on the pack's
// colonystack-colonycore in-memory store style (a single guarded map).
type MemoryBackend struct {
	data *xsync.MapOf[digest.Digest, []byte]
}

// NewMemoryBackend constructs an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: xsync.NewMapOf[digest.Digest, []byte]()}
}

func (m *MemoryBackend) Commit(_ context.Context, d digest.Digest, packed []byte) error {
	m.data.LoadOrStore(d, append([]byte(nil), packed...))
	return nil
}

func (m *MemoryBackend) Has(_ context.Context, d digest.Digest) (bool, error) {
	_, ok := m.data.Load(d)
	return ok, nil
}

func (m *MemoryBackend) Get(_ context.Context, d digest.Digest) ([]byte, bool, error) {
	b, ok := m.data.Load(d)
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

func (m *MemoryBackend) Digests(_ context.Context) ([]digest.Digest, error) {
	out := make([]digest.Digest, 0, m.data.Size())
	m.data.Range(func(d digest.Digest, _ []byte) bool {
		out = append(out, d)
		return true
	})
	return out, nil
}

func (m *MemoryBackend) Close() error { return nil }
