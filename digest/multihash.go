package digest

import (
	"github.com/multiformats/go-multihash"
	"lukechampine.com/blake3"

	"github.com/agentic-ai/enact-go/fieldvalue"
)

// blake3Code is the multicodec table code for BLAKE3-256 (0x1e), used here
// as a plain numeric constant rather than importing it from
// go-multihash's own table, since not every vendored copy of that table
// exports it under the same name across versions.
const blake3Code = 0x1e

// MultihashOfBLAKE3 hashes canonicalBytes with BLAKE3-256 and wraps the
// result as a self-describing multihash (varint hash-function code + varint
// length + digest bytes), grounded on xdao-co-CATF's cidutil.CIDv1RawSHA256,
// which does the same wrapping for SHA-256 via go-cid/go-multihash.
//
// This is not the digest used by spec §3/§4.3 (that is always plain
// SHA-256, computed by Sum/Of); it is an alternate, self-describing digest
// offered for interop with multihash/CID-based systems, per SPEC_FULL.md
// §11's wiring of the xdao-co-CATF teacher candidate's leaf dependency.
func MultihashOfBLAKE3(canonicalBytes []byte) ([]byte, error) {
	sum := blake3.Sum256(canonicalBytes)
	return multihash.Encode(sum[:], blake3Code)
}

// DecodeMultihash unwraps a multihash produced by MultihashOfBLAKE3 (or any
// other multihash-encoded digest) back into its raw digest bytes and code.
func DecodeMultihash(mh []byte) (code uint64, digestBytes []byte, err error) {
	decoded, err := multihash.Decode(mh)
	if err != nil {
		return 0, nil, err
	}
	return decoded.Code, decoded.Digest, nil
}

// MultihashOf packs v to its canonical form and returns the BLAKE3
// multihash of the result, the multihash-flavored counterpart to Of. Used
// by cmd/enactctl's multihash command to hand a resource's alternate
// digest to a multihash/CID-aware caller.
func MultihashOf(v fieldvalue.Value) ([]byte, error) {
	packed, err := Pack(v)
	if err != nil {
		return nil, err
	}
	return MultihashOfBLAKE3(Encode(packed))
}
