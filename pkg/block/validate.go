package block

import (
	"errors"
	"fmt"

	"github.com/TrinityChain/TrinityChain/pkg/tx"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// Block size limits. Not named in the protocol's core contracts, but every
// node must agree on them or a maximal-size block accepted by one and
// rejected by another splits the chain; kept as plain consensus constants
// here rather than threaded through config, matching the scope of what this
// package actually needs.
const (
	MaxBlockTxs  = 500
	MaxBlockSize = 2_000_000
)

// Validation errors.
var (
	ErrNilHeader           = errors.New("block has nil header")
	ErrNoTransactions      = errors.New("block has no transactions")
	ErrBadMerkleRoot       = errors.New("merkle root mismatch")
	ErrZeroTimestamp       = errors.New("block timestamp is zero")
	ErrNoCoinbase          = errors.New("first transaction must be coinbase")
	ErrMultipleCoinbase    = errors.New("multiple coinbase transactions in block")
	ErrTooManyTxs          = errors.New("too many transactions in block")
	ErrBlockTooLarge       = errors.New("block too large")
	ErrDuplicateBlockInput = errors.New("duplicate input or parent referenced twice in block")
)

// Validate checks block structure and internal consistency. It does not
// check PoW or run transactions against chain state — that is
// internal/consensus and internal/chain's job.
func (b *Block) Validate() error {
	if b.Header == nil {
		return ErrNilHeader
	}
	if b.Header.Timestamp == 0 {
		return ErrZeroTimestamp
	}
	if len(b.Transactions) == 0 {
		return ErrNoTransactions
	}
	if len(b.Transactions) > MaxBlockTxs {
		return fmt.Errorf("%w: %d txs, max %d", ErrTooManyTxs, len(b.Transactions), MaxBlockTxs)
	}

	blockSize := len(b.Header.SigningBytes())
	for _, t := range b.Transactions {
		size, err := t.Size()
		if err != nil {
			return fmt.Errorf("tx size: %w", err)
		}
		blockSize += size
	}
	if blockSize > MaxBlockSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrBlockTooLarge, blockSize, MaxBlockSize)
	}

	if b.Transactions[0].Kind != tx.KindCoinbase {
		return ErrNoCoinbase
	}
	for i, t := range b.Transactions[1:] {
		if t.Kind == tx.KindCoinbase {
			return fmt.Errorf("tx %d: %w", i+1, ErrMultipleCoinbase)
		}
	}

	txHashes := b.TxHashes()
	expectedRoot := ComputeMerkleRoot(txHashes)
	if b.Header.MerkleRoot != expectedRoot {
		return fmt.Errorf("%w: header=%s computed=%s", ErrBadMerkleRoot, b.Header.MerkleRoot, expectedRoot)
	}

	for i, t := range b.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
	}

	if err := checkNoInBlockDoubleSpend(b.Transactions); err != nil {
		return err
	}

	return nil
}

// checkNoInBlockDoubleSpend enforces that the set of referenced input_hash
// (Transfer) and parent_hash (Subdivision) values across all transactions in
// the block is a strict set: no UTXO is consumed twice in one block.
func checkNoInBlockDoubleSpend(txs []*tx.Transaction) error {
	seen := make(map[types.Hash]int, len(txs))
	for i, t := range txs {
		var ref types.Hash
		switch t.Kind {
		case tx.KindTransfer:
			ref = t.Transfer.InputHash
		case tx.KindSubdivision:
			ref = t.Subdivision.ParentHash
		default:
			continue
		}
		if prev, exists := seen[ref]; exists {
			return fmt.Errorf("tx %d: %w: %s also referenced by tx %d", i, ErrDuplicateBlockInput, ref, prev)
		}
		seen[ref] = i
	}
	return nil
}
