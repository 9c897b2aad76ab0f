package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ardanlabs/blocksim/foundation/blockchain/signature"
)

// Set of errors returned when a block can't be appended to the chain. Any of
// these means the single writer rule for the chain was broken.
var (
	ErrSequenceViolation = errors.New("block index is not the next index")
	ErrLinkageViolation  = errors.New("block prev hash does not match the latest block")
	ErrInvalidSeal       = errors.New("block hash is not a valid seal")
)

// ErrNonceExhausted is returned when every nonce was tried without finding
// a hash that solves the difficulty.
var ErrNonceExhausted = errors.New("nonce space exhausted")

// =============================================================================

// Block represents a group of transactions batched together.
type Block struct {
	Index        uint64 `json:"index"`        // Position of the block in the chain, starting at 0.
	PrevHash     string `json:"prev_hash"`    // Hash of the previous block, empty for the genesis block.
	TimeStamp    uint64 `json:"timestamp"`    // Unix seconds when the block was built.
	Transactions []Tx   `json:"transactions"` // Transactions in pool order at sealing time.
	Nonce        uint64 `json:"nonce"`        // Value identified to solve the hash solution.
	Hash         string `json:"hash"`         // Hash of the fields above with the nonce applied.
}

// blockData is the canonical form of a block that gets hashed. The field
// order here is the serialization order.
type blockData struct {
	Index        uint64 `json:"index"`
	PrevHash     string `json:"prev_hash"`
	TimeStamp    uint64 `json:"timestamp"`
	Transactions []Tx   `json:"transactions"`
	Nonce        uint64 `json:"nonce"`
}

// NewBlock constructs an unsealed block that follows the previous block.
// The transactions are copied so the caller's slice can keep changing.
func NewBlock(prevBlock Block, trans []Tx, now time.Time) Block {
	txs := make([]Tx, len(trans))
	copy(txs, trans)

	return Block{
		Index:        prevBlock.Index + 1,
		PrevHash:     prevBlock.Hash,
		TimeStamp:    uint64(now.UTC().Unix()),
		Transactions: txs,
	}
}

// ComputeHash returns the hash for the block contents using the block's
// current nonce.
func (b Block) ComputeHash() string {
	return hashWithNonce(b, b.Nonce)
}

// IsSealed validates the stored hash matches the contents and solves
// the difficulty.
func (b Block) IsSealed(difficulty uint) bool {
	return b.Hash == b.ComputeHash() && signature.IsSolved(difficulty, b.Hash)
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("blk[%d]:%s:txs[%d]", b.Index, b.Hash, len(b.Transactions))
}

// =============================================================================

// Seal performs the work of mining to find a nonce and hash for the block
// that solves the difficulty. The search starts at nonce 0 and increments by
// 1, so the same block and difficulty always produce the same result. The
// nonce does not wrap, if every value fails ErrNonceExhausted is returned.
func Seal(ctx context.Context, b Block, difficulty uint) (uint64, string, error) {
	if err := signature.ValidateDifficulty(difficulty); err != nil {
		return 0, "", err
	}

	var nonce uint64
	for {

		// Did we get cancelled trying to solve the problem.
		if ctx.Err() != nil {
			return 0, "", ctx.Err()
		}

		hash := hashWithNonce(b, nonce)
		if signature.IsSolved(difficulty, hash) {
			return nonce, hash, nil
		}

		if nonce == math.MaxUint64 {
			return 0, "", ErrNonceExhausted
		}
		nonce++
	}
}

// POW constructs a new Block on top of the previous block and performs the
// work to find a nonce that solves the cryptographic POW puzzle.
func POW(ctx context.Context, prevBlock Block, trans []Tx, difficulty uint, now time.Time, evHandler func(v string, args ...any)) (Block, error) {
	nb := NewBlock(prevBlock, trans, now)

	evHandler("database: POW: MINING: started: blk[%d]: txs[%d]", nb.Index, len(nb.Transactions))

	t := time.Now()
	nonce, hash, err := Seal(ctx, nb, difficulty)
	if err != nil {
		evHandler("database: POW: MINING: CANCELLED: blk[%d]: %s", nb.Index, err)
		return Block{}, err
	}

	nb.Nonce = nonce
	nb.Hash = hash

	evHandler("database: POW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]: duration[%v]", nb.PrevHash, nb.Hash, nonce+1, time.Since(t))

	return nb, nil
}

// Genesis constructs and seals the first block of a chain. The genesis block
// has no previous hash and no transactions.
func Genesis(ctx context.Context, date time.Time, difficulty uint) (Block, error) {
	gb := Block{
		TimeStamp:    uint64(date.UTC().Unix()),
		Transactions: []Tx{},
	}

	nonce, hash, err := Seal(ctx, gb, difficulty)
	if err != nil {
		return Block{}, fmt.Errorf("sealing genesis: %w", err)
	}

	gb.Nonce = nonce
	gb.Hash = hash

	return gb, nil
}

// ValidateNext checks the block can be appended directly after the
// previous block.
func ValidateNext(prevBlock Block, b Block, difficulty uint) error {
	if b.Index != prevBlock.Index+1 {
		return fmt.Errorf("%w: got %d, exp %d", ErrSequenceViolation, b.Index, prevBlock.Index+1)
	}

	if b.PrevHash != prevBlock.Hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrLinkageViolation, b.PrevHash, prevBlock.Hash)
	}

	if !b.IsSealed(difficulty) {
		return fmt.Errorf("%w: blk[%d]: %s", ErrInvalidSeal, b.Index, b.Hash)
	}

	return nil
}

// =============================================================================

// hashWithNonce hashes the canonical form of the block with the given nonce.
func hashWithNonce(b Block, nonce uint64) string {
	return signature.Hash(blockData{
		Index:        b.Index,
		PrevHash:     b.PrevHash,
		TimeStamp:    b.TimeStamp,
		Transactions: b.Transactions,
		Nonce:        nonce,
	})
}
