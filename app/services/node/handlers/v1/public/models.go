package public

import (
	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/state"
)

type status struct {
	TotalBlocks       int    `json:"total_blocks"`
	TotalTransactions int    `json:"total_transactions"`
	Uncommitted       int    `json:"uncommitted"`
	ConnectedClients  int    `json:"connected_clients"`
	LastBlockHash     string `json:"last_block_hash"`
	Timestamp         int64  `json:"timestamp"`
}

type txRecord struct {
	BlockIndex  uint64      `json:"block_index"`
	Transaction database.Tx `json:"transaction"`
	BlockHash   string      `json:"block_hash"`
}

func toTxRecords(recs []state.TxRecord) []txRecord {
	out := make([]txRecord, len(recs))
	for i, rec := range recs {
		out[i] = txRecord{
			BlockIndex:  rec.BlockIndex,
			Transaction: rec.Tx,
			BlockHash:   rec.BlockHash,
		}
	}
	return out
}

// NewTx is what a client submits to have a transaction mined.
type NewTx struct {
	From      string `json:"from" validate:"required"`
	To        string `json:"to" validate:"required"`
	Amount    uint64 `json:"amount"`
	Fee       uint64 `json:"fee"`
	Signature string `json:"signature,omitempty" validate:"omitempty,hexadecimal"`
}
