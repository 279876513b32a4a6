package util

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// SetupInterruptHandler exits the process on SIGINT/SIGTERM. Chapter
// directories that were being filled stay on disk; a rerun overwrites them.
func SetupInterruptHandler(log interface{ Warnf(string, ...any) }) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		s := <-sig
		log.Warnf("Interrupt received (%s). Partially downloaded chapters are left on disk", s)
		os.Exit(1)
	}()
}

// RemoveIfEmpty deletes dir when it has no entries and reports whether it did.
func RemoveIfEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return false
	}

	return os.Remove(dir) == nil
}

// CleanupFolder removes folder recursively.
func CleanupFolder(folder string) error {
	if err := os.RemoveAll(folder); err != nil {
		return fmt.Errorf("remove %s: %w", folder, err)
	}
	return nil
}
