package worker

import (
	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
)

// DefaultTraders is the roster used when no traders are configured.
var DefaultTraders = []string{
	"shivraj", "jarvihs", "phantom", "metamask", "larry", "harry", "zain", "watson", "anna",
}

// Base values for synthetic transactions. The n-th transaction in a batch
// moves n times the base amount and pays n times the base fee.
const (
	baseAmount = 1000
	baseFee    = 10
)

// generator produces the synthetic transactions for each round. Each round
// trades between a sender and the next trader on the roster, the recipient
// becomes the sender of the following round and the last trader pays the
// miner.
type generator struct {
	miner   string
	traders []string
	batch   int
	pos     int
	sender  string
}

func newGenerator(miner string, traders []string, batch int) *generator {
	if len(traders) == 0 {
		traders = DefaultTraders
	}

	return &generator{
		miner:   miner,
		traders: traders,
		batch:   batch,
		sender:  miner,
	}
}

// next returns the batch of transactions for the next round.
func (g *generator) next() []database.Tx {
	recipient := g.miner
	if g.pos < len(g.traders)-1 {
		recipient = g.traders[g.pos+1]
	}

	txs := make([]database.Tx, g.batch)
	for i := range txs {
		n := uint64(i + 1)

		from, to := g.sender, recipient
		if i%2 == 1 {
			from, to = recipient, g.sender
		}

		txs[i] = database.Tx{
			From:   from,
			To:     to,
			Amount: n * baseAmount,
			Fee:    n * baseFee,
		}
	}

	g.sender = recipient
	g.pos = (g.pos + 1) % len(g.traders)

	return txs
}
