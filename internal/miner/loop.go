package miner

import (
	"context"
	"fmt"
	"sync"

	"github.com/TrinityChain/TrinityChain/internal/log"
)

// Loop drives a Miner continuously in a background goroutine: produce,
// apply, repeat, until Stop is called. It is the daemon-facing control
// surface behind the RPC contract's start_mining/stop_mining/mining_status
// methods — Miner itself only knows how to produce one block at a time.
type Loop struct {
	miner *Miner
	apply func(interface{}) error

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	mined   uint64
	lastErr error
}

// NewLoop wraps m with start/stop control. apply is called with each
// produced *block.Block; the caller supplies a closure so this package
// doesn't need to import internal/chain or internal/mempool, which would
// otherwise import internal/miner back for ChainState/MempoolSelector.
func NewLoop(m *Miner, apply func(interface{}) error) *Loop {
	return &Loop{miner: m, apply: apply}
}

// Start begins mining in a background goroutine. A no-op if already running.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.running = true
	go l.run(ctx)
}

// Stop halts mining, cancelling any in-progress PoW sealing. A no-op if not
// running.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.cancel()
	l.running = false
}

// Running reports whether the loop is currently mining.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// BlocksMined returns the count of blocks successfully applied so far.
func (l *Loop) BlocksMined() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mined
}

// LastError returns the most recent production/application error, if any.
func (l *Loop) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *Loop) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		blk, err := l.miner.ProduceBlockCtx(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return // Stopped mid-seal; not a real error.
			}
			l.recordErr(fmt.Errorf("produce block: %w", err))
			continue
		}

		if err := l.apply(blk); err != nil {
			l.recordErr(fmt.Errorf("apply mined block: %w", err))
			continue
		}

		l.mu.Lock()
		l.mined++
		l.lastErr = nil
		l.mu.Unlock()
	}
}

func (l *Loop) recordErr(err error) {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
	log.Miner.Warn().Err(err).Msg("mining iteration failed")
}
