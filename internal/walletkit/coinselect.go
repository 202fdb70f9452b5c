package walletkit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoUTXOs           = errors.New("no spendable triangles")
)

// UTXO pairs a triangle with the hash it is keyed by in the UTXO set.
type UTXO struct {
	Hash     types.Hash
	Triangle types.Triangle
}

// Value returns the triangle's spendable amount.
func (u UTXO) Value() types.Coord {
	return u.Triangle.EffectiveValue()
}

// CoinSelection holds the result of coin selection: the single triangle to
// spend as a TransferTx input, plus the change state application will
// produce automatically from whatever value is left over.
type CoinSelection struct {
	Input  UTXO
	Total  types.Coord // Input's effective value.
	Change types.Coord // Total - target; state application mints this back to the sender.
}

// SelectCoins chooses the triangle to spend for a transfer of the given
// target amount (the recipient amount plus fee). Unlike a multi-input UTXO
// model, a TransferTx spends exactly one triangle — there is no
// accumulation across inputs, so selection only has to pick which single
// triangle to offer. It picks the smallest triangle that still covers the
// target, which minimizes the leftover change triangle handed back to the
// sender.
func SelectCoins(utxos []UTXO, target types.Coord) (*CoinSelection, error) {
	if len(utxos) == 0 {
		return nil, ErrNoUTXOs
	}
	if target.Sign() <= 0 {
		return nil, fmt.Errorf("target must be positive")
	}

	candidates := make([]UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.Value().Sign() > 0 {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoUTXOs
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Value().Cmp(candidates[j].Value()) < 0
	})

	for _, u := range candidates {
		if u.Value().Cmp(target) >= 0 {
			return &CoinSelection{
				Input:  u,
				Total:  u.Value(),
				Change: u.Value().Sub(target),
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: largest triangle worth %s, need %s",
		ErrInsufficientFunds, candidates[len(candidates)-1].Value(), target)
}
