package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/cbzmaker/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective config and manage the stored profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, used, err := loadConfig(config.Options{})
		if err != nil {
			return err
		}

		label, err := config.DefaultStore().ActiveLabel()
		switch {
		case errors.Is(err, config.ErrNoConfig):
			fmt.Println("Active profile: none")
		case err != nil:
			return err
		default:
			fmt.Printf("Active profile: %s\n", label)
		}

		fmt.Printf("Loaded from:\n  %s\n\n", used)
		cfg.Print(os.Stdout)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
