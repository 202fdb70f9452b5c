// Package miner implements block production for TrinityChain.
package miner

import (
	"context"
	"fmt"
	"time"

	"github.com/TrinityChain/TrinityChain/internal/consensus"
	"github.com/TrinityChain/TrinityChain/pkg/block"
	"github.com/TrinityChain/TrinityChain/pkg/tx"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// InitialReward is the coinbase reward_area at height 1, before any halving.
const InitialReward = 50

// HalvingInterval is the number of blocks between reward halvings.
const HalvingInterval = 210_000

// DefaultMaxBlockTxs bounds how many transactions a drafted block carries,
// coinbase included (the miner takes at most DefaultMaxBlockTxs-1 from the
// mempool). It equals the consensus limit block.MaxBlockTxs, so a full
// draft still passes block.Validate.
const DefaultMaxBlockTxs = block.MaxBlockTxs

// ChainState provides the read-only chain state a miner drafts against.
type ChainState interface {
	Height() uint64
	TipHash() types.Hash
	TipTimestamp() uint64
}

// MempoolSelector selects resident transactions for block inclusion,
// ordered by fee_area descending.
type MempoolSelector interface {
	GetByFee(limit int) []*tx.Transaction
}

// Miner produces new blocks: coinbase first, then fee_area-sorted mempool
// picks, sealed through a consensus.Engine.
type Miner struct {
	chain        ChainState
	engine       consensus.Engine
	pool         MempoolSelector
	coinbaseAddr types.Address
	maxBlockTxs  int
}

// New creates a block producer. maxBlockTxs <= 0 uses DefaultMaxBlockTxs.
func New(chain ChainState, engine consensus.Engine, pool MempoolSelector, coinbaseAddr types.Address, maxBlockTxs int) *Miner {
	if maxBlockTxs <= 0 {
		maxBlockTxs = DefaultMaxBlockTxs
	}
	return &Miner{
		chain:        chain,
		engine:       engine,
		pool:         pool,
		coinbaseAddr: coinbaseAddr,
		maxBlockTxs:  maxBlockTxs,
	}
}

// ProduceBlock builds, seals, and returns a new block using the current
// time. The block is NOT applied to the chain — the caller passes it to the
// chain's block-application pipeline.
func (m *Miner) ProduceBlock() (*block.Block, error) {
	return m.produceBlock(context.Background(), uint64(time.Now().UnixMilli()))
}

// ProduceBlockAt builds, seals, and returns a new block with the given
// millisecond timestamp, bumped to at least the parent's timestamp+1 to
// guarantee monotonicity.
func (m *Miner) ProduceBlockAt(timestampMs uint64) (*block.Block, error) {
	return m.produceBlock(context.Background(), timestampMs)
}

// ProduceBlockCtx builds and seals a block with cancellation support. When
// ctx is cancelled, PoW sealing stops immediately.
func (m *Miner) ProduceBlockCtx(ctx context.Context) (*block.Block, error) {
	return m.produceBlock(ctx, uint64(time.Now().UnixMilli()))
}

func (m *Miner) produceBlock(ctx context.Context, timestampMs uint64) (*block.Block, error) {
	if parentTS := m.chain.TipTimestamp(); timestampMs <= parentTS {
		timestampMs = parentTS + 1
	}

	height := m.chain.Height() + 1

	var selected []*tx.Transaction
	if m.pool != nil {
		selected = m.pool.GetByFee(m.maxBlockTxs - 1) // Reserve a slot for the coinbase.
	}

	reward := computeBlockReward(height)
	coinbase := tx.NewCoinbase(tx.CoinbaseTx{
		RewardArea:  reward,
		Beneficiary: m.coinbaseAddr,
		Height:      height,
	})

	txs := make([]*tx.Transaction, 0, 1+len(selected))
	txs = append(txs, &coinbase)
	txs = append(txs, selected...)

	txHashes := make([]types.Hash, len(txs))
	for i, t := range txs {
		txHashes[i] = t.Hash()
	}
	merkle := block.ComputeMerkleRoot(txHashes)

	header := &block.Header{
		Height:     height,
		Timestamp:  timestampMs,
		PrevHash:   m.chain.TipHash(),
		MerkleRoot: merkle,
	}

	if err := m.engine.Prepare(header); err != nil {
		return nil, fmt.Errorf("prepare header: %w", err)
	}

	blk := block.NewBlock(header, txs)

	if pow, ok := m.engine.(*consensus.PoW); ok {
		if err := pow.SealWithCancel(ctx, blk); err != nil {
			return nil, fmt.Errorf("seal block: %w", err)
		}
	} else if err := m.engine.Seal(blk); err != nil {
		return nil, fmt.Errorf("seal block: %w", err)
	}

	return blk, nil
}

// computeBlockReward returns the scheduled coinbase reward_area for height:
// InitialReward, halved every HalvingInterval blocks, until it reaches zero.
// This is a miner-side convenience for drafting, not an enforced consensus
// rule — block application never compares an incoming coinbase's
// reward_area against it (spec open question: schedule enforcement is
// unresolved).
func computeBlockReward(height uint64) types.Coord {
	halvings := (height - 1) / HalvingInterval
	reward := int64(InitialReward)
	for i := uint64(0); i < halvings && reward > 0; i++ {
		reward /= 2
	}
	if reward <= 0 {
		return 0
	}
	return types.CoordFromInt(reward)
}
