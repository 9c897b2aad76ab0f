// Package worker implements mining for the blockchain.
package worker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/event"
	"github.com/ardanlabs/blocksim/foundation/blockchain/state"
)

// Set of errors returned when a submitted transaction can't be queued.
var (
	ErrQueueFull    = errors.New("submit queue full")
	ErrMinerStopped = errors.New("miner has stopped, no more blocks will be mined")
)

// defaultSubmitQueue represents the number of submitted transactions that
// can wait for the next mining round.
const defaultSubmitQueue = 100

// =============================================================================

// Publisher represents the behavior required to send domain events to
// any interested party.
type Publisher interface {
	Publish(e event.Event) int
}

// Config represents the settings for the mining worker.
type Config struct {
	State       *state.State
	Publisher   Publisher
	Miner       string
	Rounds      int           // Number of blocks to mine, 0 mines until shutdown.
	Interval    time.Duration // Pause between rounds.
	BatchSize   int           // Synthetic transactions generated per round.
	SubmitQueue int           // Capacity of the submitted transaction queue.
	Traders     []string      // Names used for synthetic transactions.
	EvHandler   state.EventHandler
}

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state     *state.State
	publisher Publisher
	miner     string
	rounds    int
	interval  time.Duration
	gen       *generator
	wg        sync.WaitGroup
	shut      chan struct{}
	shutOnce  sync.Once
	done      chan struct{}
	submit    chan database.Tx
	fatal     chan error
	evHandler state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(cfg Config) (*Worker, error) {
	if cfg.State == nil || cfg.Publisher == nil {
		return nil, errors.New("worker requires a state and a publisher")
	}

	if cfg.Miner == "" {
		return nil, errors.New("worker requires a miner name")
	}

	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", cfg.BatchSize)
	}

	if cfg.SubmitQueue <= 0 {
		cfg.SubmitQueue = defaultSubmitQueue
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	w := Worker{
		state:     cfg.State,
		publisher: cfg.Publisher,
		miner:     cfg.Miner,
		rounds:    cfg.Rounds,
		interval:  cfg.Interval,
		gen:       newGenerator(cfg.Miner, cfg.Traders, cfg.BatchSize),
		shut:      make(chan struct{}),
		done:      make(chan struct{}),
		submit:    make(chan database.Tx, cfg.SubmitQueue),
		fatal:     make(chan error, 1),
		evHandler: ev,
	}

	// Register this worker with the state package.
	cfg.State.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for range g {
		<-hasStarted
	}

	return &w, nil
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work. An in progress POW is
// cancelled.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: terminate goroutines")
	w.shutOnce.Do(func() {
		close(w.shut)
	})
	w.wg.Wait()
}

// SignalSubmitTx queues a submitted transaction for the next mining round.
// If the queue is full the transaction is rejected.
func (w *Worker) SignalSubmitTx(tx database.Tx) error {
	if w.isShutdown() {
		return state.ErrShutdown
	}

	// Nothing reads the queue once the configured rounds are mined.
	select {
	case <-w.done:
		w.evHandler("worker: SignalSubmitTx: miner stopped, tx[%s] rejected", tx)
		return ErrMinerStopped
	default:
	}

	select {
	case w.submit <- tx:
		w.evHandler("worker: SignalSubmitTx: tx[%s]: queued", tx)
		return nil
	default:
		w.evHandler("worker: SignalSubmitTx: queue full, tx[%s] rejected", tx)
		return ErrQueueFull
	}
}

// =============================================================================

// Done returns a channel that is closed when the mining goroutine has
// stopped, either after the configured rounds, a fatal error or shutdown.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Fatal returns a channel that receives an error when the chain integrity
// was broken and the node can't continue.
func (w *Worker) Fatal() <-chan error {
	return w.fatal
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
