package worker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/event"
	"github.com/ardanlabs/blocksim/foundation/blockchain/genesis"
	"github.com/ardanlabs/blocksim/foundation/blockchain/state"
	"github.com/ardanlabs/blocksim/foundation/blockchain/worker"
	"github.com/ardanlabs/blocksim/foundation/events"
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

func newState(t *testing.T, difficulty uint) *state.State {
	st, err := state.New(state.Config{
		Genesis: genesis.Genesis{
			Date:       time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			Difficulty: difficulty,
		},
	})
	ifErrFailNow(t, err)

	return st
}

func waitDone(t *testing.T, w *worker.Worker) {
	select {
	case <-w.Done():
	case <-time.After(30 * time.Second):
		t.Fatalf("\t%s\tShould finish mining in time.", failed)
	}
}

func drain(sub *events.Subscriber[event.Event]) []event.Event {
	var evts []event.Event
	for {
		select {
		case e, open := <-sub.Events():
			if !open {
				return evts
			}
			evts = append(evts, e)
		default:
			return evts
		}
	}
}

// =============================================================================

func Test_MineRounds(t *testing.T) {
	st := newState(t, 2)
	evts := events.New[event.Event](100, nil)

	t.Log("Given the need to mine a number of rounds.")
	{
		t.Logf("\tTest 0:\tWhen the chain only holds the genesis block.")
		{
			status, err := st.QueryStatus()
			ifErrFailNow(t, err)

			if status.TotalBlocks != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould report 1 block, got %d.", failed, status.TotalBlocks)
			}
			t.Logf("\t%s\tTest 0:\tShould report 1 block.", success)
		}

		sub1, err := evts.Subscribe()
		ifErrFailNow(t, err)
		sub2, err := evts.Subscribe()
		ifErrFailNow(t, err)

		w, err := worker.Run(worker.Config{
			State:     st,
			Publisher: evts,
			Miner:     "nexa",
			Rounds:    3,
			BatchSize: 2,
		})
		ifErrFailNow(t, err)
		defer st.Shutdown()

		waitDone(t, w)

		t.Logf("\tTest 1:\tWhen 3 rounds of 2 transactions are mined.")
		{
			blocks, err := st.QueryBlocks()
			ifErrFailNow(t, err)

			if len(blocks) != 4 {
				t.Fatalf("\t%s\tTest 1:\tShould have 4 blocks, got %d.", failed, len(blocks))
			}
			t.Logf("\t%s\tTest 1:\tShould have 4 blocks.", success)

			for n, b := range blocks {
				if b.Index != uint64(n) || (n > 0 && b.PrevHash != blocks[n-1].Hash) {
					t.Fatalf("\t%s\tTest 1:\tShould have a linked chain at block %d.", failed, n)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould have a linked chain.", success)

			recs, err := st.QueryTransactions()
			ifErrFailNow(t, err)

			if len(recs) != 6 {
				t.Fatalf("\t%s\tTest 1:\tShould have 6 transactions, got %d.", failed, len(recs))
			}
			for i, rec := range recs {
				exp := uint64(i/2 + 1)
				if rec.BlockIndex != exp || rec.BlockHash != blocks[exp].Hash {
					t.Logf("\t%s\tTest 1:\tgot: %d %s", failed, rec.BlockIndex, rec.BlockHash)
					t.Logf("\t%s\tTest 1:\texp: %d %s", failed, exp, blocks[exp].Hash)
					t.Fatalf("\t%s\tTest 1:\tShould have the right block for transaction %d.", failed, i)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould have 6 transactions with the right blocks.", success)

			if _, err := st.QueryBlockByIndex(99); !errors.Is(err, state.ErrNotFound) {
				t.Fatalf("\t%s\tTest 1:\tShould not find block 99: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould not find block 99.", success)

			mp, err := st.QueryMempool()
			ifErrFailNow(t, err)
			if len(mp) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould have an empty mempool, got %d.", failed, len(mp))
			}
			t.Logf("\t%s\tTest 1:\tShould have an empty mempool.", success)
		}

		t.Logf("\tTest 2:\tWhen two subscribers watch the rounds.")
		{
			got1 := drain(sub1)
			got2 := drain(sub2)

			exp := []string{
				event.TypeMiningStarted,
				event.TypeTransactionCreated,
				event.TypeTransactionCreated,
				event.TypeBlockMined,
				event.TypeChainUpdated,
			}

			if len(got1) != 3*len(exp) || len(got2) != len(got1) {
				t.Fatalf("\t%s\tTest 2:\tShould receive %d events, got %d and %d.", failed, 3*len(exp), len(got1), len(got2))
			}
			t.Logf("\t%s\tTest 2:\tShould receive %d events on each subscriber.", success, 3*len(exp))

			for i, e := range got1 {
				if e.Type() != exp[i%len(exp)] {
					t.Fatalf("\t%s\tTest 2:\tShould receive event %d as %s, got %s.", failed, i, exp[i%len(exp)], e.Type())
				}
			}
			t.Logf("\t%s\tTest 2:\tShould receive the events of a round in order.", success)

			for i, e := range got1 {
				bm, ok := e.(event.BlockMined)
				if !ok {
					continue
				}

				bm2 := got2[i].(event.BlockMined)
				if bm.Block.Hash != bm2.Block.Hash || bm.Block.Hash == "" {
					t.Fatalf("\t%s\tTest 2:\tShould see the same mined block hash on both subscribers.", failed)
				}

				cu := got1[i+1].(event.ChainUpdated)
				if cu.LastHash != bm.Block.Hash || cu.ChainLength != int(bm.Block.Index)+1 {
					t.Fatalf("\t%s\tTest 2:\tShould update the chain with the mined block.", failed)
				}
			}
			t.Logf("\t%s\tTest 2:\tShould see the same mined block hash on both subscribers.", success)
		}

		t.Logf("\tTest 3:\tWhen the node is shut down.")
		{
			ifErrFailNow(t, st.Shutdown())

			if _, err := st.QueryBlocks(); !errors.Is(err, state.ErrShutdown) {
				t.Fatalf("\t%s\tTest 3:\tShould reject reads: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould reject reads.", success)
		}
	}
}

func Test_Shutdown(t *testing.T) {
	st := newState(t, 1)
	evts := events.New[event.Event](100, nil)

	sub, err := evts.Subscribe()
	ifErrFailNow(t, err)

	t.Log("Given the need to stop the worker between rounds.")
	{
		w, err := worker.Run(worker.Config{
			State:     st,
			Publisher: evts,
			Miner:     "nexa",
			BatchSize: 1,
			Interval:  time.Hour,
		})
		ifErrFailNow(t, err)

		// Wait for the first round so the worker is parked in its pause.
		timeout := time.After(30 * time.Second)
	wait:
		for {
			select {
			case e := <-sub.Events():
				if e.Type() == event.TypeChainUpdated {
					break wait
				}
			case <-timeout:
				t.Fatalf("\t%s\tShould mine the first block.", failed)
			}
		}
		t.Logf("\t%s\tShould mine the first block.", success)

		start := time.Now()
		w.Shutdown()
		waitDone(t, w)

		if time.Since(start) > 5*time.Second {
			t.Fatalf("\t%s\tShould stop promptly, took %v.", failed, time.Since(start))
		}
		t.Logf("\t%s\tShould stop promptly.", success)

		select {
		case err := <-w.Fatal():
			t.Fatalf("\t%s\tShould not report a fatal error: %v", failed, err)
		default:
		}
		t.Logf("\t%s\tShould not report a fatal error.", success)

		if err := w.SignalSubmitTx(database.Tx{From: "anna", To: "zain"}); !errors.Is(err, state.ErrShutdown) {
			t.Fatalf("\t%s\tShould reject submitted transactions: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject submitted transactions.", success)
	}
}

func Test_SubmitTransaction(t *testing.T) {
	st := newState(t, 1)
	evts := events.New[event.Event](100, nil)

	t.Log("Given the need to mine submitted transactions.")
	{
		tx := database.Tx{From: "watson", To: "anna", Amount: 42, Fee: 1, Signature: []byte{0x01}}

		if err := st.SubmitTransaction(tx); !errors.Is(err, state.ErrNoWorker) {
			t.Fatalf("\t%s\tShould reject transactions without a worker: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject transactions without a worker.", success)

		w, err := worker.Run(worker.Config{
			State:     st,
			Publisher: evts,
			Miner:     "nexa",
			Rounds:    2,
			BatchSize: 3,
			Interval:  100 * time.Millisecond,
		})
		ifErrFailNow(t, err)
		defer st.Shutdown()

		ifErrFailNow(t, st.SubmitTransaction(tx))
		t.Logf("\t%s\tShould accept a submitted transaction.", success)

		if err := st.SubmitTransaction(database.Tx{From: "watson"}); !errors.Is(err, database.ErrMalformedTx) {
			t.Fatalf("\t%s\tShould reject a malformed transaction: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a malformed transaction.", success)

		waitDone(t, w)

		recs, err := st.QueryTransactions()
		ifErrFailNow(t, err)

		if len(recs) != 7 {
			t.Fatalf("\t%s\tShould have 7 transactions, got %d.", failed, len(recs))
		}
		t.Logf("\t%s\tShould have 7 transactions.", success)

		var found bool
		for _, rec := range recs {
			if rec.Tx.Equals(tx) {
				found = true
			}
		}
		if !found {
			t.Fatalf("\t%s\tShould have mined the submitted transaction.", failed)
		}
		t.Logf("\t%s\tShould have mined the submitted transaction.", success)
	}
}

func Test_SubmitAfterRounds(t *testing.T) {
	st := newState(t, 1)
	evts := events.New[event.Event](100, nil)

	t.Log("Given the need to refuse transactions once mining has finished.")
	{
		w, err := worker.Run(worker.Config{
			State:     st,
			Publisher: evts,
			Miner:     "nexa",
			Rounds:    1,
			BatchSize: 1,
		})
		ifErrFailNow(t, err)
		defer st.Shutdown()

		waitDone(t, w)

		tx := database.Tx{From: "larry", To: "harry", Amount: 5, Fee: 1}
		if err := st.SubmitTransaction(tx); !errors.Is(err, worker.ErrMinerStopped) {
			t.Fatalf("\t%s\tShould reject a transaction after the last round: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a transaction after the last round.", success)

		status, err := st.QueryStatus()
		ifErrFailNow(t, err)
		if status.TotalBlocks != 2 || status.Uncommitted != 0 {
			t.Fatalf("\t%s\tShould still have 2 blocks and nothing pending: %+v", failed, status)
		}
		t.Logf("\t%s\tShould still have 2 blocks and nothing pending.", success)
	}
}
