package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/cbzmaker/internal/config"
)

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stored config profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := config.DefaultStore().List()
		if err != nil {
			return fmt.Errorf("cannot read configs directory: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No configs yet, run `cbzmaker config init`.")
			return nil
		}

		return writeProfiles(os.Stdout, list)
	},
}

// writeProfiles prints one row per profile. Profiles that no longer parse
// are listed with the parse error in place of their settings.
func writeProfiles(out io.Writer, list []config.Profile) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "\tLABEL\tSERIES\tOUTPUT\tBATCH")

	for _, p := range list {
		mark := ""
		if p.Active {
			mark = "*"
		}

		cfg, err := config.LoadFile(p.Path)
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t(invalid: %v)\t\t\n", mark, p.Label, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", mark, p.Label, cfg.Series, cfg.Output, cfg.BatchSize)
	}

	return w.Flush()
}

func init() {
	configCmd.AddCommand(configListCmd)
}
