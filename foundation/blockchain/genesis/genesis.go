// Package genesis maintains the settings the chain is started with.
package genesis

import (
	"time"

	"github.com/ardanlabs/blocksim/foundation/blockchain/signature"
)

// Genesis represents the settings for the first block and the chain.
type Genesis struct {
	Date       time.Time `json:"date"`       // Timestamp recorded in the genesis block.
	Difficulty uint      `json:"difficulty"` // Number of leading 0's needed to solve the work problem.
}

// New constructs the genesis settings dated now.
func New(difficulty uint) (Genesis, error) {
	if err := signature.ValidateDifficulty(difficulty); err != nil {
		return Genesis{}, err
	}

	gen := Genesis{
		Date:       time.Now().UTC(),
		Difficulty: difficulty,
	}

	return gen, nil
}
