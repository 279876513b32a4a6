package cmd

import (
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/brogergvhs/cbzmaker/internal/config"
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the Default profile and make it active",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := config.DefaultStore()
		path := store.PathFor(config.DefaultLabel)

		if _, err := store.Path(config.DefaultLabel); err == nil {
			fmt.Printf("Default profile already exists at %s\n", path)
			fmt.Println("Run `cbzmaker config reset Default` to restore its values.")
			return nil
		}

		fmt.Printf("The Default profile will be written to %s with:\n", path)
		config.DefaultConfig().Print(os.Stdout)
		fmt.Println()

		confirm := promptui.Prompt{Label: "Create it", IsConfirm: true}
		if _, err := confirm.Run(); err != nil {
			fmt.Println("Aborted.")
			return nil
		}

		if _, _, err := store.Init(); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		fmt.Printf("Created %s, now the active profile.\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
