package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
)

// TxRecord represents a transaction along with the block that holds it.
type TxRecord struct {
	BlockIndex uint64
	BlockHash  string
	Tx         database.Tx
}

// Status represents the current shape of the chain.
type Status struct {
	TotalBlocks       int
	TotalTransactions int
	LastBlockHash     string
	Uncommitted       int
}

// =============================================================================

// QueryBlocks returns a copy of every block in the chain.
func (s *State) QueryBlocks() ([]database.Block, error) {
	if s.IsShutdown() {
		return nil, ErrShutdown
	}

	return s.Snapshot().Blocks, nil
}

// QueryBlockByIndex returns the block at the specified index.
func (s *State) QueryBlockByIndex(index uint64) (database.Block, error) {
	if s.IsShutdown() {
		return database.Block{}, ErrShutdown
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	block, err := s.db.GetBlock(index)
	if err != nil {
		if errors.Is(err, database.ErrBlockNotFound) {
			return database.Block{}, fmt.Errorf("block %d: %w", index, ErrNotFound)
		}
		return database.Block{}, err
	}

	return block, nil
}

// QueryBlockTransactions returns the transactions of the block at the
// specified index.
func (s *State) QueryBlockTransactions(index uint64) ([]TxRecord, error) {
	block, err := s.QueryBlockByIndex(index)
	if err != nil {
		return nil, err
	}

	return txRecords(block), nil
}

// QueryTransactions returns every transaction in the chain ordered by block
// and then by position inside the block.
func (s *State) QueryTransactions() ([]TxRecord, error) {
	if s.IsShutdown() {
		return nil, ErrShutdown
	}

	var out []TxRecord
	for _, block := range s.Snapshot().Blocks {
		out = append(out, txRecords(block)...)
	}

	return out, nil
}

// QueryMempool returns a copy of the transactions waiting to be mined.
func (s *State) QueryMempool() ([]database.Tx, error) {
	if s.IsShutdown() {
		return nil, ErrShutdown
	}

	return s.mempool.Copy(), nil
}

// QueryStatus returns the current status of the chain.
func (s *State) QueryStatus() (Status, error) {
	if s.IsShutdown() {
		return Status{}, ErrShutdown
	}

	return s.RetrieveStatus(), nil
}

// =============================================================================

func txRecords(block database.Block) []TxRecord {
	out := make([]TxRecord, len(block.Transactions))
	for i, tx := range block.Transactions {
		out[i] = TxRecord{
			BlockIndex: block.Index,
			BlockHash:  block.Hash,
			Tx:         tx,
		}
	}

	return out
}
