package tx

import (
	"errors"
	"fmt"

	"github.com/TrinityChain/TrinityChain/pkg/crypto"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// MaxCoinbaseReward bounds a single coinbase's reward_area as a sanity
// check against malformed or hostile blocks. It is not the halving
// schedule (see DESIGN.md open question 2: the schedule itself is not
// enforced), just an upper sanity bound, grounded on the same constant the
// original implementation used for this purpose.
var MaxCoinbaseReward = types.CoordFromInt(1000)

// Sentinel errors for the error taxonomy in spec.md §7. Callers that need a
// stable identifier can use errors.Is against these.
var (
	ErrStructural     = errors.New("structural")
	ErrCryptographic  = errors.New("cryptographic")
	ErrReferential    = errors.New("referential")
	ErrAuthorization  = errors.New("authorization")
	ErrValue          = errors.New("value")
)

func structuralf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrStructural}, args...)...)
}

func cryptof(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCryptographic}, args...)...)
}

func referentialf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrReferential}, args...)...)
}

func authf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrAuthorization}, args...)...)
}

func valuef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValue}, args...)...)
}

// Validate runs stateless validation: field-shape checks and (where
// applicable) signature verification. It never touches UTXO state.
func (t *Transaction) Validate() error {
	size, err := t.Size()
	if err != nil {
		return structuralf("compute size: %v", err)
	}
	if size > MaxTransactionSize {
		return structuralf("transaction too large: %d bytes (max %d)", size, MaxTransactionSize)
	}

	switch t.Kind {
	case KindCoinbase:
		return t.validateCoinbase()
	case KindTransfer:
		return t.validateTransfer()
	case KindSubdivision:
		return t.validateSubdivision()
	default:
		return structuralf("unknown transaction kind %q", t.Kind)
	}
}

func (t *Transaction) validateCoinbase() error {
	cb := t.Coinbase
	if cb.RewardArea.Sign() <= 0 {
		return valuef("coinbase reward_area must be greater than zero")
	}
	if cb.RewardArea.Cmp(MaxCoinbaseReward) > 0 {
		return valuef("coinbase reward_area %v exceeds maximum %v", cb.RewardArea, MaxCoinbaseReward)
	}
	if cb.Beneficiary.Empty() {
		return structuralf("coinbase beneficiary address cannot be empty")
	}
	return nil
}

func (t *Transaction) validateTransfer() error {
	tr := t.Transfer
	if tr.Sender.Empty() {
		return structuralf("transfer sender address cannot be empty")
	}
	if tr.NewOwner.Empty() {
		return structuralf("transfer new_owner address cannot be empty")
	}
	if tr.Sender == tr.NewOwner {
		return structuralf("sender and new_owner cannot be the same")
	}
	if tr.Amount.Sign() < 0 {
		return valuef("transfer amount cannot be negative")
	}
	if tr.FeeArea.Sign() < 0 {
		return valuef("transfer fee_area cannot be negative")
	}
	if tr.Amount.Sign() == 0 && tr.FeeArea.Sign() == 0 {
		return valuef("transfer amount and fee_area cannot both be zero")
	}
	if len(tr.Memo) > MaxMemoLength {
		return structuralf("memo exceeds maximum length of %d characters", MaxMemoLength)
	}
	return t.verifySignature()
}

func (t *Transaction) validateSubdivision() error {
	sd := t.Subdivision
	if sd.Owner.Empty() {
		return structuralf("subdivision owner address cannot be empty")
	}
	if sd.FeeArea.Sign() < 0 {
		return valuef("subdivision fee_area cannot be negative")
	}
	return t.verifySignature()
}

// verifySignature checks the attached signature against the signable
// message, for the variants that carry one.
func (t *Transaction) verifySignature() error {
	var sig, pubKey []byte
	switch t.Kind {
	case KindTransfer:
		sig, pubKey = t.Transfer.Signature, t.Transfer.PubKey
	case KindSubdivision:
		sig, pubKey = t.Subdivision.Signature, t.Subdivision.PubKey
	default:
		return nil
	}
	if len(sig) == 0 || len(pubKey) == 0 {
		return cryptof("transaction not signed")
	}
	msg, err := t.SignableMessage()
	if err != nil {
		return cryptof("%v", err)
	}
	digest := crypto.Hash(msg)
	if !crypto.VerifySignature(digest[:], sig, pubKey) {
		return cryptof("invalid signature")
	}
	return nil
}
