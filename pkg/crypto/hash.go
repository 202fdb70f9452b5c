package crypto

import (
	"crypto/sha256"

	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// Hash computes a SHA-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return sha256.Sum256(data)
}

// DoubleHash computes Hash(Hash(data)).
func DoubleHash(data []byte) types.Hash {
	first := Hash(data)
	return Hash(first[:])
}

// AddressFromPubKey derives an address from a compressed public key:
// hex(SHA-256(compressed_pubkey)).
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	return types.Address(h.String())
}

// HashConcat hashes the concatenation of two hashes.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Hash(buf[:])
}
