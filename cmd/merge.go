package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/brogergvhs/cbzmaker/internal/config"
	"github.com/brogergvhs/cbzmaker/internal/volume"
	"github.com/brogergvhs/cbzmaker/internal/watch"
)

var (
	flagMergeInput   string
	flagMergeOutput  string
	flagBatchSize    int
	flagMergeCleanup bool
	flagWatch        bool
	flagYes          bool
)

func init() {
	mergeCmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge chapter archives into volumes of --batch-size chapters",
		RunE:  runMerge,
	}

	mergeCmd.Flags().StringVar(&flagMergeInput, "input", "", "folder holding the chapter archives (default: output from config)")
	mergeCmd.Flags().StringVar(&flagMergeOutput, "output", "", "folder receiving the volumes (default: volume_output from config)")
	mergeCmd.Flags().IntVar(&flagBatchSize, "batch-size", volume.DefaultBatchSize, "chapters per volume")
	mergeCmd.Flags().BoolVar(&flagMergeCleanup, "cleanup", false, "delete volume folders once archived")
	mergeCmd.Flags().BoolVar(&flagWatch, "watch", false, "merge again whenever new archives appear in the input folder")
	mergeCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "do not ask before deleting volume folders")

	padCmd := &cobra.Command{
		Use:   "pad-volumes <folder>",
		Short: "Rename volume files like series-1-10.cbz to series-00001-00010.cbz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			renames, err := volume.PadNames(args[0])
			for _, r := range renames {
				fmt.Printf("%s → %s\n", r.From, r.To)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Renamed %d files.\n", len(renames))
			return nil
		},
	}

	rootCmd.AddCommand(mergeCmd, padCmd)
}

func runMerge(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(config.Options{})
	if err != nil {
		return err
	}

	override(cmd.Flags(), "batch-size", &cfg.BatchSize, max(1, flagBatchSize))
	override(cmd.Flags(), "cleanup", &cfg.Cleanup, flagMergeCleanup)

	input := cfg.Output
	if flagMergeInput != "" {
		input = flagMergeInput
	}
	output := cfg.VolumeOutput
	if flagMergeOutput != "" {
		output = flagMergeOutput
	}

	logSvc := newRunLogger(cfg)

	if cfg.Cleanup && !flagYes {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Volume folders in %s will be deleted after archiving. Continue", output),
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := os.MkdirAll(output, 0755); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}

	m := volume.New(volume.Options{Cleanup: cfg.Cleanup, Logger: logSvc})

	merge := func() {
		rep, err := m.Merge(input, output, cfg.BatchSize)
		if err != nil {
			logSvc.Error("Merge failed", "err", err)
			return
		}
		printMergeReport(logSvc, rep)
	}

	merge()
	if !flagWatch {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(input, watch.Config{
		Ignore: func(path string) bool { return volume.IsVolume(filepath.Base(path)) },
		Logger: logSvc,
	}, merge)
	return w.Run(ctx)
}

func printMergeReport(l *log.Logger, rep volume.Report) {
	for _, v := range rep.Volumes {
		l.Info("Volume ready", "archive", v.Archive, "chapters", len(v.Chapters), "pages", v.Pages)
		for _, s := range v.Skipped {
			l.Warn("Skipped archive", "volume", v.Name, "archive", s)
		}
	}
	for _, f := range rep.Failed {
		l.Error("Volume failed", "volume", f)
	}
}
