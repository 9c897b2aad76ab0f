package state

import (
	"fmt"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
)

// AppendBlock adds a sealed block to the end of the chain and removes its
// transactions from the mempool in one step.
func (s *State) AppendBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: AppendBlock: blk[%d]: write to chain", block.Index)

	if err := s.db.Append(block); err != nil {
		return fmt.Errorf("append blk[%d]: %w", block.Index, err)
	}

	n := s.mempool.Delete(block.Transactions...)

	s.evHandler("state: AppendBlock: blk[%d]: removed from mempool: txs[%d]", block.Index, n)

	return nil
}

// EnqueueTransaction adds a new transaction to the end of the mempool and
// returns the size of the mempool.
func (s *State) EnqueueTransaction(tx database.Tx) (int, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.mempool.Upsert(tx)

	s.evHandler("state: EnqueueTransaction: tx[%s]: txs[%d]", tx, n)

	return n, nil
}

// SubmitTransaction hands a user transaction to the mining worker. The
// worker is the only writer of the mempool, it adds the transaction at the
// start of its next round.
func (s *State) SubmitTransaction(tx database.Tx) error {
	if s.IsShutdown() {
		return ErrShutdown
	}

	if err := tx.Validate(); err != nil {
		return err
	}

	if s.Worker == nil {
		return ErrNoWorker
	}

	return s.Worker.SignalSubmitTx(tx)
}
