// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/blocksim/business/web/errs"
	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/event"
	"github.com/ardanlabs/blocksim/foundation/blockchain/signature"
	"github.com/ardanlabs/blocksim/foundation/blockchain/state"
	"github.com/ardanlabs/blocksim/foundation/blockchain/worker"
	"github.com/ardanlabs/blocksim/foundation/events"
	"github.com/ardanlabs/blocksim/foundation/validate"
	"github.com/ardanlabs/blocksim/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Timing for the websocket connection.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events[event.Event]
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	if h.State.IsShutdown() {
		return stateError(state.ErrShutdown)
	}

	sub, err := h.Evts.Subscribe()
	if err != nil {
		return errs.NewTrusted(err, http.StatusServiceUnavailable)
	}
	defer h.Evts.Unsubscribe(sub.ID())

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// The upgrader has already replied to the client on failure.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Errorw("websocket", "traceid", v.TraceID, "status", "upgrade", "ERROR", err)
		return nil
	}
	defer c.Close()

	// The upgrade wrote the response.
	web.SetStatusCode(ctx, http.StatusSwitchingProtocols)

	h.Log.Infow("websocket", "traceid", v.TraceID, "status", "client connected", "subscriber", sub.ID())
	defer h.Log.Infow("websocket", "traceid", v.TraceID, "status", "client disconnected", "subscriber", sub.ID())

	// A client that stops answering pings is detected by the read deadline.
	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	// The reader goroutine is required to process control frames and to
	// detect the client closing the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			typ, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			if typ != websocket.TextMessage {
				continue
			}

			switch string(msg) {
			case "ping":
				h.Log.Infow("websocket", "traceid", v.TraceID, "status", "ping received", "subscriber", sub.ID())
			default:
				h.Log.Infow("websocket", "traceid", v.TraceID, "status", "message received", "subscriber", sub.ID(), "message", string(msg))
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-sub.Events():

			// The queue is closed on shutdown or when this client fell
			// too far behind.
			if !ok {
				c.SetWriteDeadline(time.Now().Add(writeWait))
				c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return nil
			}

			data, err := event.Marshal(evt)
			if err != nil {
				h.Log.Errorw("websocket", "traceid", v.TraceID, "status", "marshal event", "ERROR", err)
				continue
			}

			c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				return nil
			}

		case <-ticker.C:
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}

		case <-closed:
			return nil

		case <-ctx.Done():
			return nil
		}
	}
}

// Status returns the current shape of the chain.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st, err := h.State.QueryStatus()
	if err != nil {
		return stateError(err)
	}

	resp := status{
		TotalBlocks:       st.TotalBlocks,
		TotalTransactions: st.TotalTransactions,
		Uncommitted:       st.Uncommitted,
		ConnectedClients:  h.Evts.Count(),
		LastBlockHash:     st.LastBlockHash,
		Timestamp:         time.Now().Unix(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the settings the chain was started with.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.State.IsShutdown() {
		return stateError(state.ErrShutdown)
	}

	return web.Respond(ctx, w, h.State.RetrieveGenesis(), http.StatusOK)
}

// Blocks returns every block in the chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks, err := h.State.QueryBlocks()
	if err != nil {
		return stateError(err)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// BlockByIndex returns the block at the specified index.
func (h Handlers) BlockByIndex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := blockIndex(r)
	if err != nil {
		return err
	}

	block, err := h.State.QueryBlockByIndex(index)
	if err != nil {
		return stateError(err)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// BlockTransactions returns the transactions held by the block at the
// specified index.
func (h Handlers) BlockTransactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := blockIndex(r)
	if err != nil {
		return err
	}

	recs, err := h.State.QueryBlockTransactions(index)
	if err != nil {
		return stateError(err)
	}

	return web.Respond(ctx, w, toTxRecords(recs), http.StatusOK)
}

// Transactions returns every transaction in the chain in block order.
func (h Handlers) Transactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	recs, err := h.State.QueryTransactions()
	if err != nil {
		return stateError(err)
	}

	return web.Respond(ctx, w, toTxRecords(recs), http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	trans, err := h.State.QueryMempool()
	if err != nil {
		return stateError(err)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// SubmitTransaction hands a new user transaction to the miner.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx NewTx
	if err := web.Decode(r, &ntx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(ntx); err != nil {
		return err
	}

	sig, err := signature.DecodeSignature(ntx.Signature)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("signature: %w", err), http.StatusBadRequest)
	}

	tx, err := database.NewTx(ntx.From, ntx.To, ntx.Amount, ntx.Fee, sig)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "tx", tx)

	if err := h.State.SubmitTransaction(tx); err != nil {
		return stateError(err)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction queued for the next block",
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// =============================================================================

// blockIndex reads the block index from the route.
func blockIndex(r *http.Request) (uint64, error) {
	s := web.Param(r, "index")

	index, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errs.NewTrusted(fmt.Errorf("invalid block index %q", s), http.StatusBadRequest)
	}

	return index, nil
}

// stateError maps the errors returned by the state package to the status the
// client should receive.
func stateError(err error) error {
	switch {
	case errors.Is(err, state.ErrNotFound):
		return errs.NewTrusted(err, http.StatusNotFound)

	case errors.Is(err, state.ErrShutdown),
		errors.Is(err, state.ErrNoWorker),
		errors.Is(err, worker.ErrQueueFull),
		errors.Is(err, worker.ErrMinerStopped):
		return errs.NewTrusted(err, http.StatusServiceUnavailable)
	}

	return err
}
