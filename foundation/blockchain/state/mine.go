package state

import (
	"context"
	"time"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
)

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: capture candidate")

	// Capture everything the block is built from. The lock is not held while
	// the POW is performed.
	s.mu.RLock()
	latestBlock := s.db.LatestBlock()
	trans := s.mempool.Copy()
	difficulty := s.db.Difficulty()
	s.mu.RUnlock()

	s.evHandler("state: MineNewBlock: MINING: perform POW")

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, latestBlock, trans, difficulty, time.Now(), s.evHandler)
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: update local state")

	if err := s.AppendBlock(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}
