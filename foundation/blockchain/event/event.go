// Package event defines the closed set of domain events produced while
// mining and how they are encoded for streaming.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
)

// Set of event type names used as the tag in the encoded form.
const (
	TypeMiningStarted      = "MiningStarted"
	TypeTransactionCreated = "TransactionCreated"
	TypeBlockMined         = "BlockMined"
	TypeChainUpdated       = "ChainUpdated"
)

// Event represents one of the domain events. The set is closed, only the
// types in this package implement it.
type Event interface {
	Type() string
	event()
}

// =============================================================================

// MiningStarted is published when the miner starts working on a new block.
type MiningStarted struct {
	BlockIndex uint64 `json:"block_index"`
	Miner      string `json:"miner"`
	Timestamp  uint64 `json:"timestamp"`
}

// TransactionCreated is published when a transaction enters the mempool.
type TransactionCreated struct {
	Transaction      database.Tx `json:"transaction"`
	TargetBlockIndex uint64      `json:"target_block_index"`
}

// BlockMined is published when a sealed block has been appended.
type BlockMined struct {
	Block database.Block `json:"block"`
	Miner string         `json:"miner"`
}

// ChainUpdated is published after every append with the new chain tip.
type ChainUpdated struct {
	ChainLength       int    `json:"chain_length"`
	LastHash          string `json:"last_hash"`
	TotalTransactions int    `json:"total_transactions"`
}

// Type implements the Event interface.
func (MiningStarted) Type() string { return TypeMiningStarted }

// Type implements the Event interface.
func (TransactionCreated) Type() string { return TypeTransactionCreated }

// Type implements the Event interface.
func (BlockMined) Type() string { return TypeBlockMined }

// Type implements the Event interface.
func (ChainUpdated) Type() string { return TypeChainUpdated }

func (MiningStarted) event()      {}
func (TransactionCreated) event() {}
func (BlockMined) event()         {}
func (ChainUpdated) event()       {}

// =============================================================================

// envelope is the tagged record written to clients.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Marshal encodes the event as a tagged record carrying the variant name
// and its fields.
func Marshal(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.Type(), err)
	}

	return json.Marshal(envelope{Type: e.Type(), Data: data})
}

// Unmarshal decodes a tagged record back into its event variant.
func Unmarshal(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case TypeMiningStarted:
		return decode[MiningStarted](env)
	case TypeTransactionCreated:
		return decode[TransactionCreated](env)
	case TypeBlockMined:
		return decode[BlockMined](env)
	case TypeChainUpdated:
		return decode[ChainUpdated](env)
	}

	return nil, fmt.Errorf("unknown event type %q", env.Type)
}

func decode[T Event](env envelope) (Event, error) {
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}

	return v, nil
}
