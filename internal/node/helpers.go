package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/TrinityChain/TrinityChain/config"
	"github.com/TrinityChain/TrinityChain/internal/consensus"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// resolveCoinbase validates the configured coinbase address. Addresses are
// opaque strings, not bech32-encoded keys, so there is nothing to decode —
// only the empty case needs rejecting.
func resolveCoinbase(coinbaseStr string) (types.Address, error) {
	if strings.TrimSpace(coinbaseStr) == "" {
		return "", fmt.Errorf("mining.enabled requires mining.coinbase to be set")
	}
	return types.Address(coinbaseStr), nil
}

// createEngine builds the consensus engine from genesis protocol rules.
// TrinityChain has a single consensus type, so there is no engine-type
// switch left to make.
func createEngine(genesis *config.Genesis) (consensus.Engine, error) {
	pow, err := consensus.NewPoW(
		genesis.Protocol.InitialDifficulty,
		genesis.Protocol.AdjustInterval,
		genesis.Protocol.TargetBlockTimeMs,
	)
	if err != nil {
		return nil, fmt.Errorf("create pow engine: %w", err)
	}
	return pow, nil
}

// formatDifficulty returns a human-readable difficulty string (e.g. "1.05M").
func formatDifficulty(d uint64) string {
	switch {
	case d >= 1_000_000_000_000:
		return fmt.Sprintf("%.2fT", float64(d)/1_000_000_000_000)
	case d >= 1_000_000_000:
		return fmt.Sprintf("%.2fG", float64(d)/1_000_000_000)
	case d >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(d)/1_000_000)
	case d >= 1_000:
		return fmt.Sprintf("%.2fK", float64(d)/1_000)
	default:
		return fmt.Sprintf("%d", d)
	}
}
