package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/TrinityChain/TrinityChain/pkg/crypto"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// =============================================================================
// Protocol Rules (immutable, defined in genesis)
// These MUST match across all nodes or consensus breaks.
// =============================================================================

// Block and transaction size limits (consensus-critical).
const (
	MaxBlockTxs = 500 // Max transactions per block (including coinbase)
)

// Genesis holds the genesis block configuration and protocol rules. This is
// immutable after chain launch — changes require a hard fork.
type Genesis struct {
	// Chain identity
	ChainID   string `json:"chain_id"`
	ChainName string `json:"chain_name"`

	// Genesis block
	Timestamp     uint64        `json:"timestamp"`
	Beneficiary   types.Address `json:"beneficiary"`
	InitialSupply types.Coord   `json:"initial_supply"`

	// Protocol rules
	Protocol ProtocolConfig `json:"protocol"`
}

// ProtocolConfig holds consensus-critical rules. All nodes MUST agree on
// these values.
type ProtocolConfig struct {
	// PoW timing and retargeting.
	InitialDifficulty uint64 `json:"initial_difficulty"`
	TargetBlockTimeMs int64  `json:"target_block_time_ms"`
	AdjustInterval    int    `json:"adjust_interval"` // Blocks between difficulty adjustments

	// Reward schedule.
	InitialReward   uint64 `json:"initial_reward"`   // Coinbase reward_area at height 1 (as an integer area unit)
	HalvingInterval uint64 `json:"halving_interval"` // Blocks between reward halvings (0 = no halving)
}

// =============================================================================
// Testnet Identity
//
// The well-known BIP-39 test mnemonic (DO NOT use on mainnet). TestnetGenesis
// does not derive its beneficiary from it: the testnet genesis pays the same
// literal "genesis_owner" address as mainnet. The phrase:
//
//	abandon abandon abandon abandon abandon abandon abandon abandon
//	abandon abandon abandon abandon abandon abandon abandon abandon
//	abandon abandon abandon abandon abandon abandon abandon art
//
// Derivation path: m/44'/8888'/0'/0/0 (no passphrase)
// =============================================================================

const (
	// TestnetMnemonic is the well-known seed phrase for the testnet beneficiary.
	TestnetMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"
)

// =============================================================================
// Pre-defined genesis configurations
// =============================================================================

// MainnetGenesis returns the mainnet genesis configuration.
func MainnetGenesis() *Genesis {
	return &Genesis{
		ChainID:       "trinitychain-mainnet-1",
		ChainName:     "TrinityChain Mainnet",
		Timestamp:     1735689600000, // 2025-01-01T00:00:00Z
		Beneficiary:   "genesis_owner",
		InitialSupply: types.CoordFromInt(1_000_000),
		Protocol: ProtocolConfig{
			InitialDifficulty: 1,
			TargetBlockTimeMs: 30_000,
			AdjustInterval:    2016,
			InitialReward:     50,
			HalvingInterval:   210_000,
		},
	}
}

// TestnetGenesis returns the testnet genesis configuration.
func TestnetGenesis() *Genesis {
	g := MainnetGenesis()
	g.ChainID = "trinitychain-testnet-1"
	g.ChainName = "TrinityChain Testnet"
	g.Protocol.InitialDifficulty = 1
	g.Protocol.TargetBlockTimeMs = 5_000
	g.Protocol.AdjustInterval = 20
	return g
}

// GenesisFor returns the genesis config for the given network.
func GenesisFor(network NetworkType) *Genesis {
	switch network {
	case Testnet:
		return TestnetGenesis()
	default:
		return MainnetGenesis()
	}
}

// =============================================================================
// Genesis file I/O
// =============================================================================

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}

	return nil
}

// Validate checks that the genesis configuration is valid.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}
	if g.Beneficiary.Empty() {
		return fmt.Errorf("beneficiary is required")
	}
	if g.InitialSupply.Sign() <= 0 {
		return fmt.Errorf("initial_supply must be positive")
	}
	if g.Protocol.InitialDifficulty == 0 {
		return fmt.Errorf("initial_difficulty must be positive")
	}
	if g.Protocol.TargetBlockTimeMs <= 0 {
		return fmt.Errorf("target_block_time_ms must be positive")
	}
	if g.Protocol.AdjustInterval <= 0 {
		return fmt.Errorf("adjust_interval must be positive")
	}
	return nil
}

// Hash returns the SHA-256 hash of the genesis configuration, used to
// identify the chain and detect genesis mismatches between peers.
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}
