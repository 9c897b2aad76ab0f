package commands

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/blocksim/app/services/node/handlers"
	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/event"
	"github.com/ardanlabs/blocksim/foundation/blockchain/genesis"
	"github.com/ardanlabs/blocksim/foundation/blockchain/state"
	"github.com/ardanlabs/blocksim/foundation/blockchain/worker"
	"github.com/ardanlabs/blocksim/foundation/events"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newNode(t *testing.T) (*state.State, *events.Events[event.Event]) {
	st, err := state.New(state.Config{
		Genesis: genesis.Genesis{
			Date:       time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			Difficulty: 1,
		},
	})
	require.NoError(t, err)

	evts := events.New[event.Event](100, nil)

	srv := httptest.NewServer(handlers.PublicMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		Evts:     evts,
	}))
	t.Cleanup(srv.Close)

	url = srv.URL
	log = zap.NewNop().Sugar()

	return st, evts
}

func mine(t *testing.T, st *state.State, evts *events.Events[event.Event], rounds int) *worker.Worker {
	w, err := worker.Run(worker.Config{
		State:     st,
		Publisher: evts,
		Miner:     "miner1",
		Rounds:    rounds,
		BatchSize: 2,
	})
	require.NoError(t, err)

	select {
	case <-w.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("mining did not finish in time")
	}

	return w
}

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

// =============================================================================

func Test_Queries(t *testing.T) {
	st, evts := newNode(t)
	mine(t, st, evts, 2)

	out, err := run(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Blocks:       3")
	require.Contains(t, out, "Transactions: 4")

	out, err = run(t, "blocks")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)

	out, err = run(t, "block", "1")
	require.NoError(t, err)

	var block database.Block
	require.NoError(t, json.Unmarshal([]byte(out), &block))
	require.Equal(t, uint64(1), block.Index)
	require.Len(t, block.Transactions, 2)

	_, err = run(t, "block", "99")
	require.ErrorContains(t, err, "404")

	out, err = run(t, "txs")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)

	out, err = run(t, "txs", "2")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)

	out, err = run(t, "mempool")
	require.NoError(t, err)
	require.Empty(t, out)

	_, err = run(t, "submit", "--from", "anna", "--to", "zain", "--amount", "10")
	require.ErrorContains(t, err, "miner has stopped")
}

func Test_Submit(t *testing.T) {
	st, evts := newNode(t)

	_, err := worker.Run(worker.Config{
		State:     st,
		Publisher: evts,
		Miner:     "miner1",
		BatchSize: 1,
		Interval:  time.Hour,
	})
	require.NoError(t, err)
	defer st.Shutdown()

	out, err := run(t, "submit", "--from", "anna", "--to", "zain", "--amount", "10", "--sig", "0a0b")
	require.NoError(t, err)
	require.Contains(t, out, "queued")
}

func Test_Export(t *testing.T) {
	st, evts := newNode(t)
	mine(t, st, evts, 1)

	path := filepath.Join(t.TempDir(), "chain.json")

	out, err := run(t, "export", "--file", path)
	require.NoError(t, err)
	require.Contains(t, out, "saved 2 blocks")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var blocks []database.Block
	require.NoError(t, json.Unmarshal(data, &blocks))
	require.Len(t, blocks, 2)
	require.Equal(t, blocks[0].Hash, blocks[1].PrevHash)
}

func Test_Watch(t *testing.T) {
	st, evts := newNode(t)

	done := make(chan struct{})
	var out string
	var err error
	go func() {
		defer close(done)
		out, err = run(t, "watch", "--count", "4")
	}()

	require.Eventually(t, func() bool { return evts.Count() == 1 }, 5*time.Second, 10*time.Millisecond)

	mine(t, st, evts, 1)

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop after 4 events")
	}

	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[0], event.TypeMiningStarted))
	require.True(t, strings.HasPrefix(lines[3], event.TypeBlockMined))
}
