// Package tx defines TrinityChain's transaction types: a tagged variant
// with three cases (Coinbase, Transfer, Subdivision), their canonical byte
// encodings for hashing and signing, and their stateless/stateful
// validators.
package tx

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/TrinityChain/TrinityChain/pkg/crypto"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// MaxTransactionSize bounds the serialized size of any transaction.
const MaxTransactionSize = 100_000

// MaxMemoLength bounds the Transfer memo field.
const MaxMemoLength = 256

// Kind tags which variant a Transaction carries. Every hash, sign, and
// validate path switches on this tag explicitly rather than relying on
// hidden interface dispatch, so two independent implementations compute
// the same bytes.
type Kind string

const (
	KindCoinbase    Kind = "coinbase"
	KindTransfer    Kind = "transfer"
	KindSubdivision Kind = "subdivision"
)

// CoinbaseTx mints new value to a beneficiary. Carries no fee and no
// mempool identity — it may only appear as transactions[0] of a block.
//
// Height is not a consensus-relevant value attribute; it is a BIP34-style
// uniqueness salt so that two coinbases paying the same reward to the same
// beneficiary at different heights still hash to distinct transaction
// identities (and therefore distinct UTXO keys — the UTXO set keys
// coinbase outputs by tx hash).
type CoinbaseTx struct {
	RewardArea  types.Coord   `json:"reward_area"`
	Beneficiary types.Address `json:"beneficiary"`
	Height      uint64        `json:"height"`
}

// TransferTx moves ownership of a triangle, optionally splitting off a
// change UTXO back to the sender (handled by state application, not here).
type TransferTx struct {
	InputHash types.Hash    `json:"input_hash"`
	Sender    types.Address `json:"sender"`
	NewOwner  types.Address `json:"new_owner"`
	Amount    types.Coord   `json:"amount"`
	FeeArea   types.Coord   `json:"fee_area"`
	Nonce     uint64        `json:"nonce"`
	Signature []byte        `json:"signature,omitempty"`
	PubKey    []byte        `json:"pubkey,omitempty"`
	Memo      string        `json:"memo,omitempty"`
}

// SubdivisionTx splits one parent triangle into three geometric children.
type SubdivisionTx struct {
	ParentHash types.Hash       `json:"parent_hash"`
	Children   [3]types.Triangle `json:"children"`
	Owner      types.Address    `json:"owner"`
	FeeArea    types.Coord      `json:"fee_area"`
	Nonce      uint64           `json:"nonce"`
	Signature  []byte           `json:"signature,omitempty"`
	PubKey     []byte           `json:"pubkey,omitempty"`
}

// Transaction is the tagged union consumed by the mempool, blocks, and the
// Merkle root. Exactly one of Coinbase/Transfer/Subdivision is set,
// matching Kind.
type Transaction struct {
	Kind        Kind
	Coinbase    *CoinbaseTx
	Transfer    *TransferTx
	Subdivision *SubdivisionTx
}

// NewCoinbase wraps a CoinbaseTx as a Transaction.
func NewCoinbase(t CoinbaseTx) Transaction {
	return Transaction{Kind: KindCoinbase, Coinbase: &t}
}

// NewTransfer wraps a TransferTx as a Transaction.
func NewTransfer(t TransferTx) Transaction {
	return Transaction{Kind: KindTransfer, Transfer: &t}
}

// NewSubdivision wraps a SubdivisionTx as a Transaction.
func NewSubdivision(t SubdivisionTx) Transaction {
	return Transaction{Kind: KindSubdivision, Subdivision: &t}
}

// FeeArea returns the implicit fee: zero for Coinbase, fee_area otherwise.
func (t *Transaction) FeeArea() types.Coord {
	switch t.Kind {
	case KindTransfer:
		return t.Transfer.FeeArea
	case KindSubdivision:
		return t.Subdivision.FeeArea
	default:
		return 0
	}
}

// Hash computes the SHA-256 of the variant-tagged canonical byte sequence.
// This is what the mempool, blocks, and Merkle root reference.
func (t *Transaction) Hash() types.Hash {
	h := sha256.New()
	switch t.Kind {
	case KindCoinbase:
		h.Write([]byte("coinbase"))
		h.Write(t.Coinbase.RewardArea.Bytes())
		h.Write([]byte(t.Coinbase.Beneficiary))
		h.Write(leUint64(t.Coinbase.Height))
	case KindTransfer:
		tr := t.Transfer
		h.Write([]byte("transfer"))
		h.Write(tr.InputHash[:])
		h.Write([]byte(tr.NewOwner))
		h.Write([]byte(tr.Sender))
		h.Write(tr.Amount.Bytes())
		h.Write(tr.FeeArea.Bytes())
		h.Write(leUint64(tr.Nonce))
	case KindSubdivision:
		sd := t.Subdivision
		h.Write(sd.ParentHash[:])
		for _, child := range sd.Children {
			ch := child.Hash()
			h.Write(ch[:])
		}
		h.Write([]byte(sd.Owner))
		h.Write(sd.FeeArea.Bytes())
		h.Write(leUint64(sd.Nonce))
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// SignableMessage returns the canonical bytes a sender signs and a
// verifier recomputes. Coinbase transactions are never signed.
func (t *Transaction) SignableMessage() ([]byte, error) {
	switch t.Kind {
	case KindTransfer:
		tr := t.Transfer
		buf := []byte("TRANSFER:")
		buf = append(buf, tr.InputHash[:]...)
		buf = append(buf, []byte(tr.NewOwner)...)
		buf = append(buf, []byte(tr.Sender)...)
		buf = append(buf, tr.Amount.Bytes()...)
		buf = append(buf, tr.FeeArea.Bytes()...)
		buf = append(buf, leUint64(tr.Nonce)...)
		return buf, nil
	case KindSubdivision:
		sd := t.Subdivision
		buf := append([]byte{}, sd.ParentHash[:]...)
		for _, child := range sd.Children {
			ch := child.Hash()
			buf = append(buf, ch[:]...)
		}
		buf = append(buf, []byte(sd.Owner)...)
		buf = append(buf, sd.FeeArea.Bytes()...)
		buf = append(buf, leUint64(sd.Nonce)...)
		return buf, nil
	default:
		return nil, fmt.Errorf("transaction kind %q is not signable", t.Kind)
	}
}

// Sign signs the transaction's signable message and attaches the resulting
// signature and public key. Not valid for Coinbase.
func (t *Transaction) Sign(priv *crypto.PrivateKey) error {
	msg, err := t.SignableMessage()
	if err != nil {
		return err
	}
	digest := crypto.Hash(msg)
	sig, err := priv.Sign(digest[:])
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	switch t.Kind {
	case KindTransfer:
		t.Transfer.Signature = sig
		t.Transfer.PubKey = priv.PublicKey()
	case KindSubdivision:
		t.Subdivision.Signature = sig
		t.Subdivision.PubKey = priv.PublicKey()
	default:
		return fmt.Errorf("transaction kind %q is not signable", t.Kind)
	}
	return nil
}

// Size returns the JSON-serialized byte length, used for the size-limit
// check in stateless validation.
func (t *Transaction) Size() (int, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return 0, fmt.Errorf("size: %w", err)
	}
	return len(b), nil
}

func leUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// txJSON is the wire shape: a discriminated union encoded as a tag field
// plus exactly one populated payload field.
type txJSON struct {
	Kind        Kind             `json:"kind"`
	Coinbase    *CoinbaseTx      `json:"coinbase,omitempty"`
	Transfer    *TransferTx      `json:"transfer,omitempty"`
	Subdivision *SubdivisionTx   `json:"subdivision,omitempty"`
}

// MarshalJSON encodes the tagged union with an explicit "kind" discriminator.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(txJSON{
		Kind:        t.Kind,
		Coinbase:    t.Coinbase,
		Transfer:    t.Transfer,
		Subdivision: t.Subdivision,
	})
}

// UnmarshalJSON decodes a tagged union, validating that exactly the payload
// matching Kind is present.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var w txJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case KindCoinbase:
		if w.Coinbase == nil {
			return fmt.Errorf("transaction kind %q missing coinbase payload", w.Kind)
		}
	case KindTransfer:
		if w.Transfer == nil {
			return fmt.Errorf("transaction kind %q missing transfer payload", w.Kind)
		}
	case KindSubdivision:
		if w.Subdivision == nil {
			return fmt.Errorf("transaction kind %q missing subdivision payload", w.Kind)
		}
	default:
		return fmt.Errorf("unknown transaction kind %q", w.Kind)
	}
	t.Kind = w.Kind
	t.Coinbase = w.Coinbase
	t.Transfer = w.Transfer
	t.Subdivision = w.Subdivision
	return nil
}
