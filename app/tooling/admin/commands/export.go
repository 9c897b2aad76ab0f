package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var exportFile string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Save the chain to a JSON file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var blocks []database.Block
		if err := get("/v1/blocks", &blocks); err != nil {
			return err
		}

		data, err := json.MarshalIndent(blocks, "", "  ")
		if err != nil {
			return err
		}

		if err := os.WriteFile(exportFile, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", exportFile, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "saved %d blocks to %s\n", len(blocks), exportFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFile, "file", "o", "blockchain_data.json", "File to write the chain to.")
}
