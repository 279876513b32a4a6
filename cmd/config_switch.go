package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/brogergvhs/cbzmaker/internal/config"
)

var configSwitchCmd = &cobra.Command{
	Use:   "switch [label]",
	Short: "Make another config profile the active one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := config.DefaultStore()

		label := ""
		if len(args) == 1 {
			label = args[0]
		} else {
			picked, err := pickProfile(store)
			if err != nil {
				return err
			}
			label = picked
		}

		cfg, err := store.Load(label)
		if err != nil {
			return err
		}
		if err := store.Switch(label); err != nil {
			return err
		}

		describeProfile(os.Stdout, label, cfg)
		return nil
	},
}

func pickProfile(store config.Store) (string, error) {
	list, err := store.List()
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", fmt.Errorf("no configs available, run `cbzmaker config init` first")
	}

	items := make([]string, len(list))
	for i, p := range list {
		items[i] = p.Label
		if p.Active {
			items[i] += "  (active)"
		}
	}

	sel := promptui.Select{Label: "Select config", Items: items}
	idx, _, err := sel.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled")
	}
	return list[idx].Label, nil
}

// describeProfile prints the settings that decide where a run ends up.
func describeProfile(w io.Writer, label string, cfg *config.Config) {
	fmt.Fprintf(w, "Switched to: %s\n", label)
	fmt.Fprintf(w, " -series: %s\n", cfg.Series)
	fmt.Fprintf(w, " -output: %s\n", cfg.Output)
	fmt.Fprintf(w, " -batch_size: %d\n", cfg.BatchSize)
}

func init() {
	configCmd.AddCommand(configSwitchCmd)
}
