// Package chapters reads chapter URL lists and assigns ordinals.
package chapters

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/brogergvhs/cbzmaker/internal/queue"
)

// Chapter is one entry of the URL list.
type Chapter struct {
	URL     string
	Ordinal int
}

// Item converts c into a queue item.
func (c Chapter) Item() queue.Item {
	return queue.Item{URL: c.URL, Ordinal: c.Ordinal}
}

// ReadFile reads a URL list file. See Parse.
func ReadFile(path string, reverse bool) ([]Chapter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chapter list: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return Parse(f, reverse)
}

// Parse reads one URL per line. Blank lines are skipped and trailing
// slashes are removed. With reverse set the list is reversed before the
// 1-based ordinals are assigned.
func Parse(r io.Reader, reverse bool) ([]Chapter, error) {
	var lines []string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("chapter list: %w", err)
	}

	if reverse {
		slices.Reverse(lines)
	}

	out := make([]Chapter, 0, len(lines))
	for _, line := range lines {
		u := cleanupURL(line)
		if u == "" {
			continue
		}
		out = append(out, Chapter{URL: u, Ordinal: len(out) + 1})
	}

	return out, nil
}

func cleanupURL(u string) string {
	u = strings.TrimSpace(u)
	return strings.TrimRight(u, "/")
}
