package utxo

import (
	"fmt"

	"github.com/TrinityChain/TrinityChain/pkg/crypto"
	"github.com/TrinityChain/TrinityChain/pkg/tx"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// changeDisambiguator is hashed together with a Transfer's tx hash to derive
// its change output's key. The tx hash alone is already the recipient
// output's key, so the change output needs a second, equally deterministic
// key two honest nodes converge on independently.
var changeDisambiguator = crypto.Hash([]byte("trinitychain-change-output"))

// State bundles a UTXO set with its derived address-balance index and
// applies transactions to both together.
type State struct {
	UTXOs    Set
	Balances *BalanceIndex
}

// NewState wraps set with a freshly rebuilt balance index.
func NewState(set Set) (*State, error) {
	bal := NewBalanceIndex()
	if err := bal.Rebuild(set); err != nil {
		return nil, err
	}
	return &State{UTXOs: set, Balances: bal}, nil
}

// GetBalance returns addr's current balance.
func (s *State) GetBalance(addr types.Address) types.Coord {
	return s.Balances.Get(addr)
}

// RebuildBalances recomputes the derived balance map from the UTXO set.
// Used after loading a snapshot, where the balance index isn't persisted.
func (s *State) RebuildBalances() error {
	return s.Balances.Rebuild(s.UTXOs)
}

// Apply runs the full state transition for one transaction at the given
// block height: stateful validation, then the UTXO/balance mutation.
// Validation happens before any mutation, so a rejected transaction leaves
// the UTXO set and balance map exactly as they were.
func (s *State) Apply(transaction *tx.Transaction, height uint64) error {
	if err := transaction.ValidateStateful(s.UTXOs); err != nil {
		return fmt.Errorf("apply: %w", err)
	}

	switch transaction.Kind {
	case tx.KindCoinbase:
		return s.applyCoinbase(transaction)
	case tx.KindTransfer:
		return s.applyTransfer(transaction)
	case tx.KindSubdivision:
		return s.applySubdivision(transaction)
	default:
		return fmt.Errorf("apply: unknown transaction kind %q", transaction.Kind)
	}
}

// ApplyGenesisCoinbase mints the genesis block's coinbase directly,
// bypassing the ordinary MaxCoinbaseReward sanity bound that stateless
// validation applies to every other coinbase. That bound exists to catch a
// malformed or hostile mined block; genesis is a one-time, operator-chosen
// initial supply and is never subject to it.
func (s *State) ApplyGenesisCoinbase(transaction *tx.Transaction) error {
	if transaction.Kind != tx.KindCoinbase {
		return fmt.Errorf("apply genesis: transaction kind %q is not coinbase", transaction.Kind)
	}
	return s.applyCoinbase(transaction)
}

// applyCoinbase inserts a zero-area synthetic triangle keyed by the tx hash
// (Height already makes that hash unique across blocks paying the same
// reward to the same beneficiary) and credits the beneficiary's balance.
func (s *State) applyCoinbase(transaction *tx.Transaction) error {
	cb := transaction.Coinbase
	hash := transaction.Hash()
	tri := types.NewTriangle(types.Point{}, types.Point{}, types.Point{}, cb.Beneficiary).WithValue(cb.RewardArea)
	if err := s.UTXOs.Put(hash, tri); err != nil {
		return fmt.Errorf("apply coinbase: %w", err)
	}
	s.Balances.add(cb.Beneficiary, cb.RewardArea)
	return nil
}

// applyTransfer removes the spent input, inserts a recipient UTXO keyed by
// the tx hash, and — if input_value - amount - fee_area clears the
// geometric tolerance — a change UTXO back to the sender keyed by a
// disambiguated derivative of the tx hash. The fee_area itself is not
// credited to any UTXO; it is the block's accounting slack, claimed by the
// miner only through the coinbase reward.
func (s *State) applyTransfer(transaction *tx.Transaction) error {
	tr := transaction.Transfer
	input, ok := s.UTXOs.Get(tr.InputHash)
	if !ok {
		return fmt.Errorf("apply transfer: input %s vanished between validation and apply", tr.InputHash)
	}

	if err := s.UTXOs.Delete(tr.InputHash); err != nil {
		return fmt.Errorf("apply transfer: delete input: %w", err)
	}
	s.Balances.sub(input.Owner, input.EffectiveValue())

	txHash := transaction.Hash()
	recipient := types.Triangle{A: input.A, B: input.B, C: input.C, Owner: tr.NewOwner}.WithValue(tr.Amount)
	if err := s.UTXOs.Put(txHash, recipient); err != nil {
		return fmt.Errorf("apply transfer: put recipient: %w", err)
	}
	s.Balances.add(tr.NewOwner, tr.Amount)

	remaining := input.EffectiveValue().Sub(tr.Amount).Sub(tr.FeeArea)
	if remaining.Cmp(types.GeometricTolerance) > 0 {
		changeHash := crypto.HashConcat(txHash, changeDisambiguator)
		change := types.Triangle{A: input.A, B: input.B, C: input.C, Owner: tr.Sender}.WithValue(remaining)
		if err := s.UTXOs.Put(changeHash, change); err != nil {
			return fmt.Errorf("apply transfer: put change: %w", err)
		}
		s.Balances.add(tr.Sender, remaining)
	}
	return nil
}

// applySubdivision removes the spent parent and inserts the three children,
// each keyed by its own canonical triangle hash.
func (s *State) applySubdivision(transaction *tx.Transaction) error {
	sd := transaction.Subdivision
	parent, ok := s.UTXOs.Get(sd.ParentHash)
	if !ok {
		return fmt.Errorf("apply subdivision: parent %s vanished between validation and apply", sd.ParentHash)
	}

	if err := s.UTXOs.Delete(sd.ParentHash); err != nil {
		return fmt.Errorf("apply subdivision: delete parent: %w", err)
	}
	s.Balances.sub(parent.Owner, parent.EffectiveValue())

	for _, child := range sd.Children {
		childHash := child.Hash()
		if err := s.UTXOs.Put(childHash, child); err != nil {
			return fmt.Errorf("apply subdivision: put child: %w", err)
		}
		s.Balances.add(child.Owner, child.EffectiveValue())
	}
	return nil
}
