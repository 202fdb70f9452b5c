package tx

import "github.com/TrinityChain/TrinityChain/pkg/types"

// UTXOLookup is the minimal read access stateful validation needs against a
// UTXO snapshot. internal/utxo.Set and any staged scratch copy satisfy it.
type UTXOLookup interface {
	Get(hash types.Hash) (types.Triangle, bool)
}

// ValidateStateful runs stateless validation first, then checks the
// transaction against a UTXO snapshot: referenced UTXOs exist, ownership
// matches, and value/geometry invariants hold.
func (t *Transaction) ValidateStateful(state UTXOLookup) error {
	if err := t.Validate(); err != nil {
		return err
	}
	switch t.Kind {
	case KindCoinbase:
		return nil
	case KindTransfer:
		return t.validateTransferStateful(state)
	case KindSubdivision:
		return t.validateSubdivisionStateful(state)
	default:
		return structuralf("unknown transaction kind %q", t.Kind)
	}
}

func (t *Transaction) validateTransferStateful(state UTXOLookup) error {
	tr := t.Transfer
	input, ok := state.Get(tr.InputHash)
	if !ok {
		return referentialf("transfer input %s not found in UTXO set", tr.InputHash)
	}
	if input.Owner != tr.Sender {
		return authf("sender %s does not own input triangle (owned by %s)", tr.Sender, input.Owner)
	}

	inputValue := input.EffectiveValue()
	spent := tr.Amount.Add(tr.FeeArea)
	if inputValue.Sub(spent).Cmp(types.GeometricTolerance) < 0 {
		return valuef("insufficient triangle value: input has %v but amount+fee_area is %v", inputValue, spent)
	}
	return nil
}

func (t *Transaction) validateSubdivisionStateful(state UTXOLookup) error {
	sd := t.Subdivision
	parent, ok := state.Get(sd.ParentHash)
	if !ok {
		return referentialf("subdivision parent %s not found in UTXO set", sd.ParentHash)
	}
	if parent.Owner != sd.Owner {
		return authf("owner %s does not own parent triangle (owned by %s)", sd.Owner, parent.Owner)
	}

	expectedValue := parent.EffectiveValue().Sub(sd.FeeArea)
	expected := parent.SubdivideWithValue(expectedValue)

	var sum types.Coord
	for i, child := range sd.Children {
		if !child.SameGeometry(expected[i]) {
			return valuef("child %d geometry does not match expected subdivision", i)
		}
		sum = sum.Add(child.EffectiveValue())
	}
	if sum != expectedValue {
		return valuef("children values sum to %v, want %v (parent - fee_area)", sum, expectedValue)
	}
	return nil
}
