package tx

import (
	"errors"
	"testing"

	"github.com/TrinityChain/TrinityChain/pkg/crypto"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// fakeUTXOSet is a minimal in-memory UTXOLookup for testing pkg/tx in
// isolation from internal/utxo.
type fakeUTXOSet map[types.Hash]types.Triangle

func (s fakeUTXOSet) Get(h types.Hash) (types.Triangle, bool) {
	t, ok := s[h]
	return t, ok
}

func TestValidateStatefulCoinbaseAlwaysPasses(t *testing.T) {
	cb := NewCoinbase(CoinbaseTx{RewardArea: types.CoordFromInt(10), Beneficiary: "miner1", Height: 1})
	if err := cb.ValidateStateful(fakeUTXOSet{}); err != nil {
		t.Fatalf("coinbase stateful validation must always pass, got %v", err)
	}
}

func TestValidateStatefulTransferMissingInput(t *testing.T) {
	txn, priv := signedTransfer(t, nil)
	if err := txn.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := txn.ValidateStateful(fakeUTXOSet{}); !errors.Is(err, ErrReferential) {
		t.Fatalf("missing input must be a referential error, got %v", err)
	}
}

func TestValidateStatefulTransferWrongSender(t *testing.T) {
	priv, _ := crypto.GenerateKey()
	inputHash := types.Hash{7}
	state := fakeUTXOSet{
		inputHash: sampleTriangle("not-the-sender").WithValue(types.CoordFromInt(10)),
	}

	txn, _ := signedTransfer(t, func(tr *TransferTx) { tr.InputHash = inputHash })
	if err := txn.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := txn.ValidateStateful(state); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("sender not matching UTXO owner must be an authorization error, got %v", err)
	}
}

func TestValidateStatefulTransferInsufficientValue(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	sender := crypto.AddressFromPubKey(priv.PublicKey())
	inputHash := types.Hash{7}
	state := fakeUTXOSet{
		inputHash: sampleTriangle(sender).WithValue(types.CoordFromInt(3)),
	}

	tr := TransferTx{
		InputHash: inputHash,
		Sender:    sender,
		NewOwner:  "recipient",
		Amount:    types.CoordFromInt(10),
		FeeArea:   types.CoordFromInt(1),
	}
	txn := NewTransfer(tr)
	if err := txn.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := txn.ValidateStateful(state); !errors.Is(err, ErrValue) {
		t.Fatalf("amount+fee exceeding input value must be a value error, got %v", err)
	}
}

func TestValidateStatefulTransferOK(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	sender := crypto.AddressFromPubKey(priv.PublicKey())
	inputHash := types.Hash{7}
	state := fakeUTXOSet{
		inputHash: sampleTriangle(sender).WithValue(types.CoordFromInt(10)),
	}

	tr := TransferTx{
		InputHash: inputHash,
		Sender:    sender,
		NewOwner:  "recipient",
		Amount:    types.CoordFromInt(8),
		FeeArea:   types.CoordFromInt(1),
	}
	txn := NewTransfer(tr)
	if err := txn.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := txn.ValidateStateful(state); err != nil {
		t.Fatalf("transfer within input value (with change left over) must validate, got %v", err)
	}
}

func TestValidateStatefulSubdivisionMissingParent(t *testing.T) {
	txn, priv, _ := signedSubdivision(t)
	if err := txn.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := txn.ValidateStateful(fakeUTXOSet{}); !errors.Is(err, ErrReferential) {
		t.Fatalf("missing parent must be a referential error, got %v", err)
	}
}

func TestValidateStatefulSubdivisionWrongOwner(t *testing.T) {
	txn, priv, parent := signedSubdivision(t)
	if err := txn.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	mismatched := parent
	mismatched.Owner = "someone-else"
	state := fakeUTXOSet{parent.Hash(): mismatched}

	if err := txn.ValidateStateful(state); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("owner not matching parent UTXO owner must be an authorization error, got %v", err)
	}
}

func TestValidateStatefulSubdivisionOK(t *testing.T) {
	txn, priv, parent := signedSubdivision(t)
	if err := txn.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	state := fakeUTXOSet{parent.Hash(): parent}

	if err := txn.ValidateStateful(state); err != nil {
		t.Fatalf("well-formed subdivision against its real parent must validate, got %v", err)
	}
}

func TestValidateStatefulSubdivisionBadGeometry(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	owner := crypto.AddressFromPubKey(priv.PublicKey())
	parent := sampleTriangle(owner)
	children := parent.SubdivideWithValue(parent.EffectiveValue())
	children[0].A = types.NewPoint(types.CoordFromInt(999), types.CoordFromInt(999))

	sd := NewSubdivision(SubdivisionTx{
		ParentHash: parent.Hash(),
		Children:   children,
		Owner:      owner,
		FeeArea:    types.CoordFromInt(0),
	})
	if err := sd.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	state := fakeUTXOSet{parent.Hash(): parent}

	if err := sd.ValidateStateful(state); !errors.Is(err, ErrValue) {
		t.Fatalf("children not matching expected midpoint geometry must be a value error, got %v", err)
	}
}

func TestValidateStatefulSubdivisionFeeReducesChildrenValue(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	owner := crypto.AddressFromPubKey(priv.PublicKey())
	parent := sampleTriangle(owner).WithValue(types.CoordFromInt(9))
	fee := types.CoordFromInt(3)
	expectedValue := parent.EffectiveValue().Sub(fee)
	children := parent.SubdivideWithValue(expectedValue)

	sd := NewSubdivision(SubdivisionTx{
		ParentHash: parent.Hash(),
		Children:   children,
		Owner:      owner,
		FeeArea:    fee,
	})
	if err := sd.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	state := fakeUTXOSet{parent.Hash(): parent}

	if err := sd.ValidateStateful(state); err != nil {
		t.Fatalf("children summing to parent value minus fee must validate, got %v", err)
	}
}
