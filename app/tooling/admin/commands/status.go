package commands

import (
	"fmt"
	"time"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

type status struct {
	TotalBlocks       int    `json:"total_blocks"`
	TotalTransactions int    `json:"total_transactions"`
	Uncommitted       int    `json:"uncommitted"`
	ConnectedClients  int    `json:"connected_clients"`
	LastBlockHash     string `json:"last_block_hash"`
	Timestamp         int64  `json:"timestamp"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the status of the node.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var st status
		if err := get("/v1/status", &st); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Blocks:       %d\n", st.TotalBlocks)
		fmt.Fprintf(out, "Transactions: %d\n", st.TotalTransactions)
		fmt.Fprintf(out, "Uncommitted:  %d\n", st.Uncommitted)
		fmt.Fprintf(out, "Clients:      %d\n", st.ConnectedClients)
		fmt.Fprintf(out, "Last Hash:    %s\n", st.LastBlockHash)
		fmt.Fprintf(out, "Time:         %s\n", time.Unix(st.Timestamp, 0).UTC().Format(time.RFC3339))
		return nil
	},
}

var mempoolCmd = &cobra.Command{
	Use:   "mempool",
	Short: "Print the transactions waiting for the next block.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var trans []database.Tx
		if err := get("/v1/mempool", &trans); err != nil {
			return err
		}

		for _, tx := range trans {
			fmt.Fprintln(cmd.OutOrStdout(), tx)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, mempoolCmd)
}
