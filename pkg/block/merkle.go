package block

import (
	"crypto/sha256"

	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// ComputeMerkleRoot returns the flat Merkle root: SHA-256 over the
// concatenation of every transaction hash in block order. This is
// deliberately not a pairwise tree — every implementation must match this
// exact layout, since it is what PoW and block linkage hash over.
func ComputeMerkleRoot(txHashes []types.Hash) types.Hash {
	if len(txHashes) == 0 {
		return types.Hash{}
	}

	h := sha256.New()
	for _, th := range txHashes {
		h.Write(th[:])
	}

	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}
