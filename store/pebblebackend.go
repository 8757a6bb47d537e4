package store

import (
	"context"
	"errors"

	"github.com/cockroachdb/pebble"

	"github.com/agentic-ai/enact-go/digest"
)

// keyPrefix namespaces packed-resource keys in the shared pebble keyspace,
// mirroring drpcorg-chotki's OKey/VKey single-byte-prefix convention
// (chotki.go's OKey uses 'O', VKey uses 'V'; this backend reserves 'R' for
// "resource").
const keyPrefix = 'R'

func pebbleKey(d digest.Digest) []byte {
	key := make([]byte, 0, 1+digest.Size)
	key = append(key, keyPrefix)
	key = append(key, d[:]...)
	return key
}

// PebbleBackend is a Backend on top of github.com/cockroachdb/pebble, the
// teacher's own storage engine, offered as an alternative to
// FilesystemBackend for stores large enough to want an LSM's WAL durability
// and range-scan support over the digest keyspace (SPEC_FULL.md §11).
type PebbleBackend struct {
	db *pebble.DB
}

// OpenPebbleBackend opens (creating if necessary) a pebble-backed store at
// dir.
func OpenPebbleBackend(dir string) (*PebbleBackend, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleBackend{db: db}, nil
}

// DB exposes the underlying *pebble.DB, e.g. for NewPebbleCollector.
func (p *PebbleBackend) DB() *pebble.DB { return p.db }

func (p *PebbleBackend) Commit(_ context.Context, d digest.Digest, packed []byte) error {
	key := pebbleKey(d)
	if _, closer, err := p.db.Get(key); err == nil {
		closer.Close()
		return nil // idempotent
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return err
	}
	return p.db.Set(key, packed, pebble.Sync)
}

func (p *PebbleBackend) Has(_ context.Context, d digest.Digest) (bool, error) {
	_, closer, err := p.db.Get(pebbleKey(d))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	closer.Close()
	return true, nil
}

func (p *PebbleBackend) Get(_ context.Context, d digest.Digest) ([]byte, bool, error) {
	value, closer, err := p.db.Get(pebbleKey(d))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer closer.Close()
	return append([]byte(nil), value...), true, nil
}

func (p *PebbleBackend) Digests(_ context.Context) ([]digest.Digest, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{keyPrefix},
		UpperBound: []byte{keyPrefix + 1},
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []digest.Digest
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) != 1+digest.Size {
			continue
		}
		var d digest.Digest
		copy(d[:], key[1:])
		out = append(out, d)
	}
	return out, iter.Error()
}

func (p *PebbleBackend) Close() error { return p.db.Close() }
