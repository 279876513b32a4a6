package chapters

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter keeps the chapters selected by ordinal. rng ("5-12") takes
// precedence over list ("1,3,5"); with neither every chapter is kept.
// Entries of list that are not ordinals of all are dropped.
func Filter(all []Chapter, rng string, list string) ([]Chapter, error) {
	switch {
	case rng != "":
		lo, hi, ok := parseSpan(rng)
		if !ok {
			return nil, fmt.Errorf("invalid range %q (want start-end)", rng)
		}
		if lo < 1 || lo > hi || hi > len(all) {
			return nil, fmt.Errorf("range %q outside 1-%d", rng, len(all))
		}
		return all[lo-1 : hi], nil

	case list != "":
		out := []Chapter{}
		for field := range strings.SplitSeq(list, ",") {
			ord, err := strconv.Atoi(strings.TrimSpace(field))
			if err == nil && ord >= 1 && ord <= len(all) {
				out = append(out, all[ord-1])
			}
		}
		return out, nil
	}

	return all, nil
}

func parseSpan(s string) (lo, hi int, ok bool) {
	a, b, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, false
	}

	lo, err1 := strconv.Atoi(strings.TrimSpace(a))
	hi, err2 := strconv.Atoi(strings.TrimSpace(b))
	return lo, hi, err1 == nil && err2 == nil
}
