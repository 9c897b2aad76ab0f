package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/event"
)

// miningOperations runs the mining rounds one after the other until the
// configured number of rounds is reached or a shutdown is signaled.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	defer close(w.done)

	for round := 1; w.rounds == 0 || round <= w.rounds; round++ {
		if w.isShutdown() {
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}

		err := w.runMiningOperation()
		switch {
		case err == nil:

		case isFatal(err):
			w.evHandler("worker: miningOperations: MINING: FATAL: round[%d]: %s", round, err)
			w.fatal <- err
			return

		case w.isShutdown():
			w.evHandler("worker: miningOperations: MINING: CANCEL: round[%d]", round)
			return

		default:
			w.evHandler("worker: miningOperations: MINING: ERROR: round[%d]: %s", round, err)
		}

		if !w.pause() {
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}

	w.evHandler("worker: miningOperations: completed rounds[%d]", w.rounds)
}

// runMiningOperation performs one round: it announces the block, adds the
// round's transactions to the mempool, mines the block and announces the
// new chain tip.
func (w *Worker) runMiningOperation() error {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	index := uint64(w.state.RetrieveChainLength())

	w.publisher.Publish(event.MiningStarted{
		BlockIndex: index,
		Miner:      w.miner,
		Timestamp:  uint64(time.Now().UTC().Unix()),
	})

	for _, tx := range w.collectTransactions() {
		if _, err := w.state.EnqueueTransaction(tx); err != nil {
			w.evHandler("worker: runMiningOperation: MINING: WARNING: tx[%s]: %s", tx, err)
			continue
		}

		w.publisher.Publish(event.TransactionCreated{
			Transaction:      tx,
			TargetBlockIndex: index,
		})
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Can't return from this function until this G is complete.
	var wg sync.WaitGroup
	wg.Add(1)

	// This G exists to cancel the mining operation.
	go func() {
		defer wg.Done()

		select {
		case <-w.shut:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
			cancel()
		case <-ctx.Done():
		}
	}()

	t := time.Now()
	block, err := w.state.MineNewBlock(ctx)
	duration := time.Since(t)

	cancel()
	wg.Wait()

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if err != nil {
		return fmt.Errorf("mining blk[%d]: %w", index, err)
	}

	w.publisher.Publish(event.BlockMined{
		Block: block,
		Miner: w.miner,
	})

	status := w.state.RetrieveStatus()
	w.publisher.Publish(event.ChainUpdated{
		ChainLength:       int(block.Index) + 1,
		LastHash:          block.Hash,
		TotalTransactions: status.TotalTransactions,
	})

	return nil
}

// collectTransactions drains the submitted transactions and adds the
// synthetic batch for this round.
func (w *Worker) collectTransactions() []database.Tx {
	var txs []database.Tx

	for {
		select {
		case tx := <-w.submit:
			txs = append(txs, tx)
		default:
			return append(txs, w.gen.next()...)
		}
	}
}

// pause waits the configured interval between rounds. It returns false if
// a shutdown was signaled while waiting.
func (w *Worker) pause() bool {
	if w.interval <= 0 {
		return !w.isShutdown()
	}

	t := time.NewTimer(w.interval)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-w.shut:
		return false
	}
}

// isFatal reports whether the error means the single writer rule for the
// chain was broken.
func isFatal(err error) bool {
	return errors.Is(err, database.ErrSequenceViolation) ||
		errors.Is(err, database.ErrLinkageViolation) ||
		errors.Is(err, database.ErrInvalidSeal)
}
