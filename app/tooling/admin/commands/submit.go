package commands

import (
	"fmt"

	"github.com/ardanlabs/blocksim/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var (
	from   string
	to     string
	amount uint64
	fee    uint64
	sig    []byte
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a transaction for the next block.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tx := struct {
			From      string `json:"from"`
			To        string `json:"to"`
			Amount    uint64 `json:"amount"`
			Fee       uint64 `json:"fee"`
			Signature string `json:"signature,omitempty"`
		}{
			From:   from,
			To:     to,
			Amount: amount,
			Fee:    fee,
		}
		if len(sig) > 0 {
			tx.Signature = signature.SignatureString(sig)
		}

		var resp struct {
			Status string `json:"status"`
		}
		if err := post("/v1/tx/submit", tx, &resp); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVarP(&from, "from", "f", "", "Name of the sender.")
	submitCmd.Flags().StringVarP(&to, "to", "t", "", "Name of the recipient.")
	submitCmd.Flags().Uint64VarP(&amount, "amount", "a", 0, "Amount to send.")
	submitCmd.Flags().Uint64VarP(&fee, "fee", "c", 0, "Fee paid to the miner.")
	submitCmd.Flags().BytesHexVarP(&sig, "sig", "s", nil, "Signature bytes in hex.")
	submitCmd.MarkFlagRequired("from")
	submitCmd.MarkFlagRequired("to")
}
