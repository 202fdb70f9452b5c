// Package feeest estimates a reasonable fee_area for a transaction from its
// size and current mempool congestion. It is advisory only: nothing here
// affects consensus, and a transaction paying less than the suggested fee
// is still valid as long as it clears the protocol's stateful checks.
package feeest

import (
	"github.com/TrinityChain/TrinityChain/pkg/tx"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// congestionScale is the fixed-point scale for the congestion multiplier
// (milli-units: 1000 == 1.0x) so the estimator never touches floats.
const congestionScale = 1000

// maxCongestionMultiplier caps the multiplier at 3x, matching a pool that
// is completely full.
const maxCongestionMultiplier = 3 * congestionScale

// FeeStats summarizes the current fee market for display.
type FeeStats struct {
	MinFee          types.Coord
	MedianFee       types.Coord
	HighPriorityFee types.Coord
	CongestionLevel uint8 // 0-100
}

// Estimator suggests a fee_area for a transaction of a given size.
type Estimator struct {
	baseFeePerKB       types.Coord
	congestionMultiple int64 // milli-units, congestionScale == 1.0x
}

// New creates an estimator with no observed congestion (1.0x multiplier).
func New(baseFeePerKB types.Coord) *Estimator {
	return &Estimator{baseFeePerKB: baseFeePerKB, congestionMultiple: congestionScale}
}

// UpdateFromPoolSize recomputes the congestion multiplier from the
// mempool's current occupancy, scaling linearly from 1x empty to 3x full.
func (e *Estimator) UpdateFromPoolSize(poolSize, maxPoolSize int) {
	if maxPoolSize <= 0 {
		e.congestionMultiple = congestionScale
		return
	}
	congestion := poolSize * 2 * congestionScale / maxPoolSize
	if congestion > 2*congestionScale {
		congestion = 2 * congestionScale
	}
	e.congestionMultiple = congestionScale + congestion
	if e.congestionMultiple > maxCongestionMultiplier {
		e.congestionMultiple = maxCongestionMultiplier
	}
}

// EstimateStandard returns the base fee for a transaction of the given
// size, scaled by the current congestion multiplier.
func (e *Estimator) EstimateStandard(txSizeBytes int) types.Coord {
	base := e.baseFeePerKB.Mul(types.CoordFromInt(int64(txSizeBytes)))
	base, _ = base.DivSmall(1000) // per KB
	scaled := base.Mul(types.CoordFromRaw(e.congestionMultiple * (int64(1) << 32) / congestionScale))
	return scaled
}

// EstimateLowPriority returns half the standard fee — slower confirmation,
// cheaper.
func (e *Estimator) EstimateLowPriority(txSizeBytes int) types.Coord {
	half, _ := e.EstimateStandard(txSizeBytes).DivSmall(2)
	return half
}

// EstimateHighPriority returns twice the standard fee — faster
// confirmation, more expensive.
func (e *Estimator) EstimateHighPriority(txSizeBytes int) types.Coord {
	return e.EstimateStandard(txSizeBytes).Mul(types.CoordFromInt(2))
}

// GetStats reports the current fee market using a typical 250-byte
// transaction as the reference size.
func (e *Estimator) GetStats(poolSize, maxPoolSize int) FeeStats {
	const typicalTxSize = 250

	congestionLevel := 0
	if maxPoolSize > 0 {
		congestionLevel = poolSize * 100 / maxPoolSize
		if congestionLevel > 100 {
			congestionLevel = 100
		}
	}

	return FeeStats{
		MinFee:          e.baseFeePerKB,
		MedianFee:       e.EstimateStandard(typicalTxSize),
		HighPriorityFee: e.EstimateHighPriority(typicalTxSize),
		CongestionLevel: uint8(congestionLevel),
	}
}

// IsAcceptableFee reports whether fee meets or exceeds the low-priority
// threshold for a transaction of the given size.
func (e *Estimator) IsAcceptableFee(fee types.Coord, txSizeBytes int) bool {
	return fee.Cmp(e.EstimateLowPriority(txSizeBytes)) >= 0
}

// IsHighPriority reports whether fee meets or exceeds the high-priority
// threshold for a transaction of the given size.
func (e *Estimator) IsHighPriority(fee types.Coord, txSizeBytes int) bool {
	return fee.Cmp(e.EstimateHighPriority(txSizeBytes)) >= 0
}

// EstimateSize approximates the serialized size in bytes of a transaction
// before it is built, so the CLI can suggest a fee ahead of signing.
func EstimateSize(kind tx.Kind, memoLen int) int {
	switch kind {
	case tx.KindTransfer:
		return 160 + memoLen
	case tx.KindSubdivision:
		return 100 + 3*50
	case tx.KindCoinbase:
		return 50
	default:
		return 0
	}
}
