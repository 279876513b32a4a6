package cmd

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/brogergvhs/cbzmaker/internal/config"
)

var configAddCmd = &cobra.Command{
	Use:   "add [label]",
	Short: "Create a new config with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string
		if len(args) == 1 {
			label = args[0]
		} else {
			prompt := promptui.Prompt{
				Label: "Label for new config",
				Validate: func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("label cannot be empty")
					}
					return nil
				},
			}

			var err error
			label, err = prompt.Run()
			if err != nil {
				return fmt.Errorf("aborted")
			}
		}

		path, err := config.DefaultStore().Create(strings.TrimSpace(label), config.DefaultConfig())
		if err != nil {
			return err
		}

		fmt.Printf("Created new config: %s\n", path)
		return nil
	},
}

var configImportCmd = &cobra.Command{
	Use:   "import <label> <file>",
	Short: "Store a YAML or TOML file as a new config",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.DefaultStore().Import(args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("Imported %s as %q (%s)\n", args[1], args[0], path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configAddCmd, configImportCmd)
}
