package block

import (
	"encoding/binary"

	"github.com/TrinityChain/TrinityChain/pkg/crypto"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// Header contains block metadata. Every field is consensus-relevant: its
// hash is what PoW targets and what a chain links against.
type Header struct {
	Height     uint64     `json:"height"`
	Timestamp  uint64     `json:"timestamp_ms"`
	PrevHash   types.Hash `json:"previous_hash"`
	MerkleRoot types.Hash `json:"merkle_root"`
	Difficulty uint64     `json:"difficulty"`
	Nonce      uint64     `json:"nonce"`
}

// Hash computes the block header hash: SHA-256 over SigningBytes.
func (h *Header) Hash() types.Hash {
	return crypto.Hash(h.SigningBytes())
}

// SigningBytes returns the canonical bytes hashed for PoW and for linkage.
// Format: height(8) | timestamp_ms(8) | previous_hash(32) | merkle_root(32) |
// difficulty(8) | nonce(8). This layout is consensus-critical and must match
// byte-for-bit across every implementation.
func (h *Header) SigningBytes() []byte {
	buf := make([]byte, 0, 96)
	buf = binary.LittleEndian.AppendUint64(buf, h.Height)
	buf = binary.LittleEndian.AppendUint64(buf, h.Timestamp)
	buf = append(buf, h.PrevHash[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, h.Difficulty)
	buf = binary.LittleEndian.AppendUint64(buf, h.Nonce)
	return buf
}
