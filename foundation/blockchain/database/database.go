// Package database handles all the lower level support for maintaining the
// blockchain in memory. The chain is a strictly linear, append only log.
package database

import (
	"errors"
	"fmt"
)

// ErrBlockNotFound is returned when a block index is past the end of the chain.
var ErrBlockNotFound = errors.New("block not found")

// =============================================================================

// Database manages the ordered set of sealed blocks. A Database is not safe
// for concurrent use, the caller must provide the synchronization.
type Database struct {
	difficulty uint
	blocks     []Block
}

// New constructs a new database starting with the specified genesis block.
func New(genesis Block, difficulty uint) (*Database, error) {
	db := Database{
		difficulty: difficulty,
	}

	if err := db.Append(genesis); err != nil {
		return nil, fmt.Errorf("applying genesis: %w", err)
	}

	return &db, nil
}

// Difficulty returns the difficulty every block must be sealed with.
func (db *Database) Difficulty() uint {
	return db.difficulty
}

// Append validates the block is the next block of the chain and adds it.
func (db *Database) Append(b Block) error {
	if len(db.blocks) == 0 {
		if b.Index != 0 {
			return fmt.Errorf("%w: got %d, exp 0", ErrSequenceViolation, b.Index)
		}
		if !b.IsSealed(db.difficulty) {
			return fmt.Errorf("%w: blk[0]: %s", ErrInvalidSeal, b.Hash)
		}

		db.blocks = append(db.blocks, b)
		return nil
	}

	if err := ValidateNext(db.LatestBlock(), b, db.difficulty); err != nil {
		return err
	}

	db.blocks = append(db.blocks, b)
	return nil
}

// Len returns the number of blocks in the chain.
func (db *Database) Len() int {
	return len(db.blocks)
}

// LatestBlock returns the last block in the chain.
func (db *Database) LatestBlock() Block {
	if len(db.blocks) == 0 {
		return Block{}
	}

	return db.blocks[len(db.blocks)-1]
}

// GetBlock returns the block at the specified index.
func (db *Database) GetBlock(index uint64) (Block, error) {
	if index >= uint64(len(db.blocks)) {
		return Block{}, fmt.Errorf("%w: index %d, length %d", ErrBlockNotFound, index, len(db.blocks))
	}

	return db.blocks[index], nil
}

// CopyBlocks returns a copy of the chain. Blocks are never modified after
// they are appended, so the transactions inside them can be shared.
func (db *Database) CopyBlocks() []Block {
	blocks := make([]Block, len(db.blocks))
	copy(blocks, db.blocks)

	return blocks
}

// TotalTransactions returns the number of transactions across all blocks.
func (db *Database) TotalTransactions() int {
	var total int
	for _, b := range db.blocks {
		total += len(b.Transactions)
	}

	return total
}
