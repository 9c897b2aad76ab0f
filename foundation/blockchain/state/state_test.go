package state_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/genesis"
	"github.com/ardanlabs/blocksim/foundation/blockchain/state"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func ifErrFailNow(t *testing.T, err error) {
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

func newState(t *testing.T) *state.State {
	st, err := state.New(state.Config{
		Genesis: genesis.Genesis{
			Date:       time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			Difficulty: 2,
		},
	})
	ifErrFailNow(t, err)

	return st
}

// =============================================================================

func Test_Snapshot(t *testing.T) {
	st := newState(t)

	t.Log("Given the need to read the chain while it changes.")
	{
		t.Logf("\tTest 0:\tWhen a snapshot is taken before a block is mined.")
		{
			txs := []database.Tx{
				{From: "larry", To: "harry", Amount: 1000, Fee: 10},
				{From: "harry", To: "larry", Amount: 2000, Fee: 20},
			}
			for _, tx := range txs {
				_, err := st.EnqueueTransaction(tx)
				ifErrFailNow(t, err)
			}

			before := st.Snapshot()
			if len(before.Blocks) != 1 || len(before.Pending) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould see 1 block and 2 pending, got %d and %d.", failed, len(before.Blocks), len(before.Pending))
			}
			t.Logf("\t%s\tTest 0:\tShould see 1 block and 2 pending.", success)

			block, err := st.MineNewBlock(context.Background())
			ifErrFailNow(t, err)
			t.Logf("\t%s\tTest 0:\tShould be able to mine a block: %s", success, block)

			if len(before.Blocks) != 1 || len(before.Pending) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould not change an earlier snapshot.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not change an earlier snapshot.", success)

			after := st.Snapshot()
			if len(after.Blocks) != 2 || len(after.Pending) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould see 2 blocks and no pending, got %d and %d.", failed, len(after.Blocks), len(after.Pending))
			}
			t.Logf("\t%s\tTest 0:\tShould see 2 blocks and no pending.", success)

			if after.LatestBlock().Hash != block.Hash || len(after.LatestBlock().Transactions) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould see the mined block with its transactions.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould see the mined block with its transactions.", success)

			after.Blocks[0].Hash = "changed"
			if st.RetrieveLatestBlock().Index != 1 || st.Snapshot().Blocks[0].Hash == "changed" {
				t.Fatalf("\t%s\tTest 0:\tShould not alias the chain through a snapshot.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not alias the chain through a snapshot.", success)
		}
	}
}

func Test_AppendViolations(t *testing.T) {
	st := newState(t)

	t.Log("Given the need to protect the chain from a second writer.")
	{
		latest := st.RetrieveLatestBlock()

		nb, err := database.POW(context.Background(), latest, nil, 2, time.Now(), func(string, ...any) {})
		ifErrFailNow(t, err)
		ifErrFailNow(t, st.AppendBlock(nb))

		if err := st.AppendBlock(nb); !errors.Is(err, database.ErrSequenceViolation) {
			t.Fatalf("\t%s\tShould get a sequence violation: %v", failed, err)
		}
		t.Logf("\t%s\tShould get a sequence violation.", success)

		stale, err := database.POW(context.Background(), latest, nil, 2, time.Now().Add(time.Second), func(string, ...any) {})
		ifErrFailNow(t, err)
		stale.Index = 2
		nonce, hash, err := database.Seal(context.Background(), stale, 2)
		ifErrFailNow(t, err)
		stale.Nonce, stale.Hash = nonce, hash

		if err := st.AppendBlock(stale); !errors.Is(err, database.ErrLinkageViolation) {
			t.Fatalf("\t%s\tShould get a linkage violation: %v", failed, err)
		}
		t.Logf("\t%s\tShould get a linkage violation.", success)

		if st.RetrieveChainLength() != 2 {
			t.Fatalf("\t%s\tShould still have 2 blocks, got %d.", failed, st.RetrieveChainLength())
		}
		t.Logf("\t%s\tShould still have 2 blocks.", success)

		if _, err := st.EnqueueTransaction(database.Tx{To: "anna"}); !errors.Is(err, database.ErrMalformedTx) {
			t.Fatalf("\t%s\tShould reject a malformed transaction: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a malformed transaction.", success)
	}
}

func Test_ConcurrentReads(t *testing.T) {
	st := newState(t)

	t.Log("Given the need to read while a single writer mines.")
	{
		done := make(chan struct{})
		var wg sync.WaitGroup

		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-done:
						return
					default:
					}

					view := st.Snapshot()
					for n, b := range view.Blocks {
						if b.Index != uint64(n) || (n > 0 && b.PrevHash != view.Blocks[n-1].Hash) {
							t.Errorf("\t%s\tShould always see a linked chain at block %d.", failed, n)
							return
						}
					}

					recs, err := st.QueryTransactions()
					if err != nil {
						t.Errorf("\t%s\tShould be able to query transactions: %v", failed, err)
						return
					}
					for _, rec := range recs {
						if rec.BlockIndex == 0 {
							t.Errorf("\t%s\tShould never see transactions in genesis.", failed)
							return
						}
					}
				}
			}()
		}

		for i := range 5 {
			_, err := st.EnqueueTransaction(database.Tx{From: "zain", To: "watson", Amount: uint64(i), Fee: 1})
			ifErrFailNow(t, err)

			_, err = st.MineNewBlock(context.Background())
			ifErrFailNow(t, err)
		}

		close(done)
		wg.Wait()

		status, err := st.QueryStatus()
		ifErrFailNow(t, err)
		if status.TotalBlocks != 6 || status.TotalTransactions != 5 || status.Uncommitted != 0 {
			t.Fatalf("\t%s\tShould report 6 blocks and 5 transactions: %+v", failed, status)
		}
		t.Logf("\t%s\tShould report 6 blocks and 5 transactions.", success)
	}
}

func Test_NotFound(t *testing.T) {
	st := newState(t)

	t.Log("Given the need to query blocks that don't exist.")
	{
		if _, err := st.QueryBlockByIndex(99); !errors.Is(err, state.ErrNotFound) {
			t.Fatalf("\t%s\tShould not find block 99: %v", failed, err)
		}
		t.Logf("\t%s\tShould not find block 99.", success)

		if _, err := st.QueryBlockTransactions(99); !errors.Is(err, state.ErrNotFound) {
			t.Fatalf("\t%s\tShould not find transactions for block 99: %v", failed, err)
		}
		t.Logf("\t%s\tShould not find transactions for block 99.", success)

		ifErrFailNow(t, st.Shutdown())

		if _, err := st.QueryBlockByIndex(0); !errors.Is(err, state.ErrShutdown) {
			t.Fatalf("\t%s\tShould reject reads after shutdown: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject reads after shutdown.", success)
	}
}
