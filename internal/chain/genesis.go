package chain

import (
	"fmt"

	"github.com/TrinityChain/TrinityChain/internal/consensus"
	"github.com/TrinityChain/TrinityChain/pkg/block"
	"github.com/TrinityChain/TrinityChain/pkg/tx"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// DefaultGenesisTimestampMs is 2025-01-01T00:00:00Z, the fixed genesis
// timestamp every TrinityChain node must agree on (spec.md §9 open
// question 5: sources disagreed, this is the single definition).
const DefaultGenesisTimestampMs = 1735689600000

// DefaultInitialSupply is the genesis coinbase's reward_area, matching the
// §8 end-to-end scenario literally.
var DefaultInitialSupply = types.CoordFromInt(1_000_000)

// GenesisConfig parameterizes the one genesis block a chain may ever apply.
type GenesisConfig struct {
	Beneficiary   types.Address
	InitialSupply types.Coord
	TimestampMs   uint64
}

// DefaultGenesisConfig returns a config using the package defaults for
// everything but the beneficiary, which the caller must always supply.
func DefaultGenesisConfig(beneficiary types.Address) *GenesisConfig {
	return &GenesisConfig{
		Beneficiary:   beneficiary,
		InitialSupply: DefaultInitialSupply,
		TimestampMs:   DefaultGenesisTimestampMs,
	}
}

// BuildGenesisBlock builds and mines the genesis block: height 0, a zero
// previous hash, and a single Coinbase minting gen.InitialSupply to
// gen.Beneficiary. Mining genesis to the initial difficulty, however low,
// keeps every committed block — including height 0 — satisfying the same
// PoW check.
func BuildGenesisBlock(engine consensus.Engine, gen *GenesisConfig) (*block.Block, error) {
	if gen == nil {
		return nil, fmt.Errorf("genesis config is nil")
	}
	if gen.Beneficiary.Empty() {
		return nil, fmt.Errorf("genesis beneficiary address cannot be empty")
	}

	coinbase := tx.NewCoinbase(tx.CoinbaseTx{
		RewardArea:  gen.InitialSupply,
		Beneficiary: gen.Beneficiary,
		Height:      0,
	})

	txs := []*tx.Transaction{&coinbase}
	merkle := block.ComputeMerkleRoot([]types.Hash{coinbase.Hash()})

	header := &block.Header{
		Height:     0,
		Timestamp:  gen.TimestampMs,
		PrevHash:   types.Hash{},
		MerkleRoot: merkle,
	}

	if err := engine.Prepare(header); err != nil {
		return nil, fmt.Errorf("prepare genesis header: %w", err)
	}

	blk := block.NewBlock(header, txs)
	if err := engine.Seal(blk); err != nil {
		return nil, fmt.Errorf("seal genesis block: %w", err)
	}

	return blk, nil
}
