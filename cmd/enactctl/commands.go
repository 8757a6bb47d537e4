package main

import (
	"context"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/agentic-ai/enact-go/digest"
	"github.com/agentic-ai/enact-go/fieldvalue"
	"github.com/agentic-ai/enact-go/invocation"
	"github.com/agentic-ai/enact-go/resource"
	"github.com/agentic-ai/enact-go/store"
)

// parseRef builds a *store.Ref from a hex digest string. store.Checkout
// resolves the real type-id from the decoded bytes rather than trusting the
// Ref's typeID field, so callers addressing a digest by hand never need to
// supply one.
func parseRef(digestHex string) (*store.Ref, error) {
	d, err := digest.Parse(digestHex)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid digest %q", digestHex)
	}
	return store.NewRef(d, ""), nil
}

// doCommit decodes fieldsJSON against typeID and commits the resulting
// resource, returning its digest.
func doCommit(ctx context.Context, s *store.Store, typeID string, fieldsJSON []byte) (*store.Ref, error) {
	res, err := resourceFromJSON(s.Registry(), typeID, fieldsJSON)
	if err != nil {
		return nil, err
	}
	return s.Commit(ctx, res)
}

// doCheckout fetches and decodes the resource at digestHex.
func doCheckout(ctx context.Context, s *store.Store, digestHex string) (resource.Resource, error) {
	ref, err := parseRef(digestHex)
	if err != nil {
		return nil, err
	}
	return s.Checkout(ctx, ref)
}

// doShow renders the resource at digestHex the way resource.Sprint would
// for a human reading a terminal.
func doShow(ctx context.Context, s *store.Store, digestHex string) (string, error) {
	res, err := doCheckout(ctx, s, digestHex)
	if err != nil {
		return "", err
	}
	return resource.Sprint(res), nil
}

// doGraph returns the ref-dependency adjacency list rooted at digestHex,
// per store.Store.DependencyGraph.
func doGraph(ctx context.Context, s *store.Store, digestHex string, maxDepth int) (map[string][]string, error) {
	ref, err := parseRef(digestHex)
	if err != nil {
		return nil, err
	}
	return s.DependencyGraph(ctx, ref, maxDepth)
}

// doInvoke checks out invokableDigestHex and inputDigestHex, requires the
// former to implement invocation.Invokable, and invokes it.
func doInvoke(ctx context.Context, s *store.Store, opts []invocation.InvokeOption, invokableDigestHex, inputDigestHex string) (*store.Ref, error) {
	invRes, err := doCheckout(ctx, s, invokableDigestHex)
	if err != nil {
		return nil, errors.Wrap(err, "checking out invokable")
	}
	invokable, ok := invRes.(invocation.Invokable)
	if !ok {
		return nil, errors.Errorf("%s (%s) does not implement Invokable", invokableDigestHex, invRes.TypeID())
	}
	inputRes, err := doCheckout(ctx, s, inputDigestHex)
	if err != nil {
		return nil, errors.Wrap(err, "checking out input")
	}
	input, err := resource.Unwrap(s.Registry(), inputRes)
	if err != nil {
		input = inputRes
	}
	return invocation.Invoke(ctx, s, invokable, input, opts...)
}

// doReplay re-executes the invocation at invocationDigestHex.
func doReplay(ctx context.Context, s *store.Store, opts []invocation.InvokeOption, invocationDigestHex string) (*store.Ref, error) {
	ref, err := parseRef(invocationDigestHex)
	if err != nil {
		return nil, err
	}
	return invocation.Replay(ctx, s, ref, opts...)
}

// doRewind drops the last n leaf calls from the invocation at
// invocationDigestHex.
func doRewind(ctx context.Context, s *store.Store, invocationDigestHex string, n int) (*store.Ref, error) {
	ref, err := parseRef(invocationDigestHex)
	if err != nil {
		return nil, err
	}
	return invocation.Rewind(ctx, s, ref, n)
}

// doMultihash computes the alternate self-describing BLAKE3 multihash
// (digest/multihash.go) for the resource at digestHex, returning it as hex
// alongside the multicodec code recovered by decoding it straight back —
// exercising both MultihashOf and DecodeMultihash in one round trip.
func doMultihash(ctx context.Context, s *store.Store, digestHex string) (mh string, code uint64, err error) {
	res, err := doCheckout(ctx, s, digestHex)
	if err != nil {
		return "", 0, err
	}
	encoded, err := digest.MultihashOf(fieldvalue.Resource(res))
	if err != nil {
		return "", 0, errors.Wrap(err, "computing multihash")
	}
	decodedCode, _, err := digest.DecodeMultihash(encoded)
	if err != nil {
		return "", 0, errors.Wrap(err, "decoding multihash")
	}
	return hex.EncodeToString(encoded), decodedCode, nil
}
