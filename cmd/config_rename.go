package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/cbzmaker/internal/config"
)

var configRenameCmd = &cobra.Command{
	Use:   "rename <old_label> <new_label>",
	Short: "Give a stored config a new label",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := config.DefaultStore()

		if err := store.Rename(args[0], args[1]); err != nil {
			return err
		}

		path, err := store.Path(args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Renamed config %q to %q (%s)\n", args[0], args[1], path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configRenameCmd)
}
