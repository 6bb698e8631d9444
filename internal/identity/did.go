package identity

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// didDomainKey separates DID derivation digests from every other digest the
// module computes. ASCII "marketplace.identity.did", zero padded.
var didDomainKey = [32]byte{
	'm', 'a', 'r', 'k', 'e', 't', 'p', 'l', 'a', 'c', 'e', '.',
	'i', 'd', 'e', 'n', 't', 'i', 't', 'y', '.', 'd', 'i', 'd',
}

// proofDomainKey is used for opaque claim and disclosure proofs.
var proofDomainKey = [32]byte{
	'm', 'a', 'r', 'k', 'e', 't', 'p', 'l', 'a', 'c', 'e', '.',
	'i', 'd', 'e', 'n', 't', 'i', 't', 'y', '.', 'p', 'r', 'o', 'o', 'f',
}

// DeriveDID returns the decentralized id for subjectID on network. The
// result depends only on its inputs, so the DID and the subject id always
// resolve to the same identity.
func DeriveDID(network, subjectID string) string {
	sum := keyedDigest(didDomainKey, []byte(network), []byte(subjectID))
	return fmt.Sprintf("did:hedera:%s:z%s", network, hex.EncodeToString(sum[:16]))
}

// digestProof returns an opaque "blake3:<hex>" proof string over parts.
func digestProof(parts ...[]byte) string {
	sum := keyedDigest(proofDomainKey, parts...)
	return "blake3:" + hex.EncodeToString(sum[:])
}

func keyedDigest(key [32]byte, parts ...[]byte) [32]byte {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("identity: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	for i, p := range parts {
		if i > 0 {
			hasher.Write([]byte{0})
		}
		hasher.Write(p)
	}
	var out [32]byte
	copy(out[:], hasher.Sum(nil))
	return out
}
