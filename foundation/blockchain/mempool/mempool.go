// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sync"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
)

// Mempool represents a cache of transactions waiting to be included in a
// block, kept in the order they were added.
type Mempool struct {
	pool []database.Tx
	mu   sync.RWMutex
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds a transaction to the end of the mempool and returns the
// new size of the pool.
func (mp *Mempool) Upsert(tx database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append(mp.pool, tx)

	return len(mp.pool)
}

// Delete removes the first matching occurrence of each specified transaction
// from the mempool and returns the number removed.
func (mp *Mempool) Delete(txs ...database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var removed int
	for _, tx := range txs {
		for i := range mp.pool {
			if mp.pool[i].Equals(tx) {
				mp.pool = append(mp.pool[:i:i], mp.pool[i+1:]...)
				removed++
				break
			}
		}
	}

	return removed
}

// Copy returns a copy of the transactions in pool order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]database.Tx, len(mp.pool))
	copy(cpy, mp.pool)

	return cpy
}
