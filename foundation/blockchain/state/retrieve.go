package state

import (
	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/genesis"
)

// View represents a point in time copy of the chain and the mempool. Nothing
// in a View changes after it is returned.
type View struct {
	Blocks  []database.Block
	Pending []database.Tx
}

// LatestBlock returns the last block in the view.
func (v View) LatestBlock() database.Block {
	if len(v.Blocks) == 0 {
		return database.Block{}
	}

	return v.Blocks[len(v.Blocks)-1]
}

// =============================================================================

// Snapshot returns a copy of the chain and the mempool taken under the same
// lock, so a block is never seen half appended.
func (s *State) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return View{
		Blocks:  s.db.CopyBlocks(),
		Pending: s.mempool.Copy(),
	}
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.LatestBlock()
}

// RetrieveChainLength returns the number of blocks in the chain.
func (s *State) RetrieveChainLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Len()
}

// RetrieveStatus returns the current status of the chain.
func (s *State) RetrieveStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		TotalBlocks:       s.db.Len(),
		TotalTransactions: s.db.TotalTransactions(),
		LastBlockHash:     s.db.LatestBlock().Hash,
		Uncommitted:       s.mempool.Count(),
	}
}
