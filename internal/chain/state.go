package chain

import "github.com/TrinityChain/TrinityChain/pkg/types"

// State holds the current chain tip.
type State struct {
	Height       uint64
	TipHash      types.Hash
	TipTimestamp uint64
}

// IsGenesis reports whether no blocks have been applied yet.
func (s *State) IsGenesis() bool {
	return s.Height == 0 && s.TipHash.IsZero()
}
