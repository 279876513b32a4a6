package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/cbzmaker/internal/config"
)

var configEditCmd = &cobra.Command{
	Use:   "edit [label]",
	Short: "Open the active or the named profile in $EDITOR",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := config.DefaultStore()

		label := ""
		if len(args) == 1 {
			label = args[0]
		} else {
			active, err := store.ActiveLabel()
			if err != nil {
				return fmt.Errorf("no profile given and none active: %w", err)
			}
			label = active
		}

		path, err := store.Path(label)
		if err != nil {
			return err
		}

		editor := editorCommand(os.Getenv("EDITOR"), path)
		editor.Stdin, editor.Stdout, editor.Stderr = os.Stdin, os.Stdout, os.Stderr
		if err := editor.Run(); err != nil {
			return fmt.Errorf("editor: %w", err)
		}

		if _, err := config.LoadFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s no longer parses: %v\n", path, err)
		}
		return nil
	},
}

// editorCommand runs $EDITOR, which may carry arguments ("code --wait"),
// on path. vi is used when $EDITOR is unset.
func editorCommand(editor, path string) *exec.Cmd {
	argv := strings.Fields(editor)
	if len(argv) == 0 {
		argv = []string{"vi"}
	}
	return exec.Command(argv[0], append(argv[1:], path)...)
}

func init() {
	configCmd.AddCommand(configEditCmd)
}
