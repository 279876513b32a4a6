package volume

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/brogergvhs/cbzmaker/internal/naming"
)

var reRange = regexp.MustCompile(`(\d+)-(\d+)`)

// Rename is one file renamed by PadNames.
type Rename struct {
	From string
	To   string
}

// PaddedName rewrites every "<a>-<b>" chapter range in name with five digit
// numbers, e.g. "series-1-10.cbz" becomes "series-00001-00010.cbz".
func PaddedName(name string) string {
	return reRange.ReplaceAllStringFunc(name, func(s string) string {
		m := reRange.FindStringSubmatch(s)
		lo, err1 := strconv.Atoi(m[1])
		hi, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			return s
		}
		return naming.Pad(lo) + "-" + naming.Pad(hi)
	})
}

// PadNames renames the entries of dir whose chapter ranges are not padded
// yet. It stops at the first entry whose padded name is already taken and
// returns the renames made so far.
func PadNames(dir string) ([]Rename, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var done []Rename
	for _, e := range entries {
		from := e.Name()
		to := PaddedName(from)
		if to == from {
			continue
		}

		dst := filepath.Join(dir, to)
		if _, err := os.Stat(dst); err == nil {
			return done, fmt.Errorf("rename %s: %s already exists", from, to)
		}
		if err := os.Rename(filepath.Join(dir, from), dst); err != nil {
			return done, fmt.Errorf("rename %s: %w", from, err)
		}
		done = append(done, Rename{From: from, To: to})
	}

	return done, nil
}
