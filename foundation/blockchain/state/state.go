// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/genesis"
	"github.com/ardanlabs/blocksim/foundation/blockchain/mempool"
)

// Set of error variables for the read API.
var (
	ErrNotFound = errors.New("not found")
	ErrShutdown = errors.New("node is shutting down")
	ErrNoWorker = errors.New("no mining worker is running")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalSubmitTx(tx database.Tx) error
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Genesis   genesis.Genesis
	EvHandler EventHandler
}

// State manages the blockchain database. Only the mining worker changes the
// chain and the mempool, everything else reads through copies.
type State struct {
	mu        sync.RWMutex
	evHandler EventHandler
	shut      atomic.Bool

	genesis genesis.Genesis
	db      *database.Database
	mempool *mempool.Mempool

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Seal the genesis block so every block in the chain, including the
	// first, satisfies the difficulty.
	gb, err := database.Genesis(context.Background(), cfg.Genesis.Date, cfg.Genesis.Difficulty)
	if err != nil {
		return nil, err
	}

	db, err := database.New(gb, cfg.Genesis.Difficulty)
	if err != nil {
		return nil, err
	}

	ev("state: New: genesis: blk[%s]: difficulty[%d]", gb.Hash, cfg.Genesis.Difficulty)

	// Create the State to provide support for managing the blockchain.
	state := State{
		evHandler: ev,
		genesis:   cfg.Genesis,
		db:        db,
		mempool:   mempool.New(),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down. Reads fail with ErrShutdown from
// this point on.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	s.shut.Store(true)

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// IsShutdown reports whether Shutdown has been called.
func (s *State) IsShutdown() bool {
	return s.shut.Load()
}
