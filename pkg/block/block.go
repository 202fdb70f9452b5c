// Package block defines the block type, its flat Merkle root, and the
// structural validation that does not depend on chain state.
package block

import (
	"github.com/TrinityChain/TrinityChain/pkg/tx"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// Block is a header plus its ordered transactions. Transaction order is
// consensus-relevant: transactions[0] must be Coinbase, and reordering the
// rest changes the Merkle root.
type Block struct {
	Header       *Header            `json:"header"`
	Transactions []*tx.Transaction  `json:"transactions"`
}

// NewBlock constructs a Block from a header and an ordered transaction list.
func NewBlock(header *Header, txs []*tx.Transaction) *Block {
	return &Block{Header: header, Transactions: txs}
}

// Hash returns the block's header hash.
func (b *Block) Hash() types.Hash {
	if b.Header == nil {
		return types.Hash{}
	}
	return b.Header.Hash()
}

// TxHashes returns the hash of every transaction in block order.
func (b *Block) TxHashes() []types.Hash {
	hashes := make([]types.Hash, len(b.Transactions))
	for i, t := range b.Transactions {
		hashes[i] = t.Hash()
	}
	return hashes
}
