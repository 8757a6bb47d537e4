// Package digest implements the canonical packer and 256-bit digest
// function (spec §4.3): a total, deterministic function from a FieldValue
// tree to a serialized canonical byte string, and the cryptographic hash of
// those bytes.
//
// Grounded on drpcorg-chotki's TLV wire encoding (toytlv/toyqueue in the
// pack) for the shape of a length-prefixed binary format, reimplemented
// from scratch here because the spec pins its own framing rules (§4.3, §6)
// rather than the teacher's TLV record format — see DESIGN.md and
// SPEC_FULL.md §11 for why the teacher's actual toytlv module is not
// imported.
package digest

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/agentic-ai/enact-go/enacterrors"
)

// Size is the digest length in bytes (256 bits).
const Size = sha256.Size

// Digest is a 256-bit content digest. The zero Digest is never produced by
// Sum; it is reserved to mean "no digest" in optional fields.
type Digest [Size]byte

// Hex renders the digest as lowercase hex, per spec §3 ("case-sensitive
// hex-printable").
func (d Digest) Hex() string { return hex.EncodeToString(d[:]) }

func (d Digest) String() string { return d.Hex() }

// IsZero reports whether d is the reserved all-zero sentinel.
func (d Digest) IsZero() bool { return d == Digest{} }

// Parse decodes a 64-hex-character digest string.
func Parse(s string) (Digest, error) {
	if len(s) != Size*2 {
		return Digest{}, enacterrors.ErrInvalidDigest
	}
	var d Digest
	n, err := hex.Decode(d[:], []byte(s))
	if err != nil || n != Size {
		return Digest{}, enacterrors.ErrInvalidDigest
	}
	return d, nil
}

// Sum computes the SHA-256 digest of already-canonicalized bytes, as
// produced by Encode. This is the hash referenced throughout spec §3/§4.3;
// callers normally use Of, not Sum, directly.
func Sum(canonicalBytes []byte) Digest {
	return Digest(sha256.Sum256(canonicalBytes))
}
