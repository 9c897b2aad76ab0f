package commands

import (
	"fmt"
	"strconv"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Print every block in the chain.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var blocks []database.Block
		if err := get("/v1/blocks", &blocks); err != nil {
			return err
		}

		for _, block := range blocks {
			fmt.Fprintf(cmd.OutOrStdout(), "%s txs[%d]\n", block, len(block.Transactions))
		}
		return nil
	},
}

var blockCmd = &cobra.Command{
	Use:   "block <index>",
	Short: "Print the block at the index.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid block index %q", args[0])
		}

		var block database.Block
		if err := get(fmt.Sprintf("/v1/blocks/%d", index), &block); err != nil {
			return err
		}

		return printJSON(cmd, block)
	},
}

// txRecord matches the transaction records returned by the node.
type txRecord struct {
	BlockIndex  uint64      `json:"block_index"`
	Transaction database.Tx `json:"transaction"`
	BlockHash   string      `json:"block_hash"`
}

var txsCmd = &cobra.Command{
	Use:   "txs [index]",
	Short: "Print the mined transactions, optionally only for one block.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/v1/transactions"
		if len(args) == 1 {
			index, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid block index %q", args[0])
			}
			path = fmt.Sprintf("/v1/blocks/%d/transactions", index)
		}

		var recs []txRecord
		if err := get(path, &recs); err != nil {
			return err
		}

		for _, rec := range recs {
			fmt.Fprintf(cmd.OutOrStdout(), "blk[%d] %s %s\n", rec.BlockIndex, rec.BlockHash, rec.Transaction)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blocksCmd, blockCmd, txsCmd)
}
