package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ardanlabs/blocksim/foundation/blockchain/event"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var watchCount int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream the node events as they happen.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wsURL := "ws" + strings.TrimPrefix(url, "http") + "/v1/events"

		c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", wsURL, err)
		}
		defer c.Close()

		if log != nil {
			log.Infow("watch", "status", "connected", "url", wsURL)
		}

		if err := c.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
			return err
		}

		// Closing the connection unblocks the read below.
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sig)
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-sig:
				c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				c.Close()
			case <-done:
			}
		}()

		for n := 0; watchCount == 0 || n < watchCount; n++ {
			_, data, err := c.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					return nil
				}
				return err
			}

			e, err := event.Unmarshal(data)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), describe(e))
		}

		return nil
	},
}

// describe renders an event as a single line.
func describe(e event.Event) string {
	switch e := e.(type) {
	case event.MiningStarted:
		return fmt.Sprintf("%-18s blk[%d] miner[%s]", e.Type(), e.BlockIndex, e.Miner)
	case event.TransactionCreated:
		return fmt.Sprintf("%-18s blk[%d] %s", e.Type(), e.TargetBlockIndex, e.Transaction)
	case event.BlockMined:
		return fmt.Sprintf("%-18s %s miner[%s]", e.Type(), e.Block, e.Miner)
	case event.ChainUpdated:
		return fmt.Sprintf("%-18s len[%d] txs[%d] hash[%s]", e.Type(), e.ChainLength, e.TotalTransactions, e.LastHash)
	}

	return e.Type()
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVarP(&watchCount, "count", "n", 0, "Stop after this many events, 0 watches until interrupted.")
}
