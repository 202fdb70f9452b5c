package walletkit

import "github.com/TrinityChain/TrinityChain/pkg/types"

// Balance tracks triangle-UTXO balances for an address.
type Balance struct {
	Confirmed   types.Coord
	Unconfirmed types.Coord
}
