package generic

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// defaultAttrs are tried, in order, on every selected element after the
// configured attribute.
var defaultAttrs = []string{"src", "data-src", "data-lazy-src", "data-original", "content", "href"}

type collectedItem struct {
	URL   string
	Index int // -1 if none
	Order int // monotonically increasing discovery order
}

type imageCollector struct {
	allowed *regexp.Regexp
	items   []collectedItem
	seen    map[string]bool
}

func newImageCollector(allowed *regexp.Regexp) *imageCollector {
	return &imageCollector{
		allowed: allowed,
		items:   make([]collectedItem, 0, 64),
		seen:    make(map[string]bool),
	}
}

func (c *imageCollector) add(u string, idx int) {
	u = strings.TrimSpace(u)
	if u == "" || strings.HasPrefix(u, "javascript:") {
		return
	}

	lu := strings.ToLower(u)
	if strings.HasPrefix(lu, "data:") {
		return
	}
	if c.allowed != nil && !c.allowed.MatchString(stripQuery(lu)) {
		return
	}
	if c.seen[u] {
		return
	}

	c.seen[u] = true
	c.items = append(c.items, collectedItem{
		URL:   u,
		Index: idx,
		Order: len(c.items),
	})
}

// scan takes one URL per selected element: the first non-empty attribute
// among attrs, falling back to the first srcset candidate.
func (c *imageCollector) scan(sel *goquery.Selection, chapterURL string, attrs []string) int {
	before := len(c.items)

	sel.Each(func(_ int, el *goquery.Selection) {
		idx := getIndexFor(el)

		for _, k := range attrs {
			if v, ok := el.Attr(k); ok && strings.TrimSpace(v) != "" {
				c.add(resolve(chapterURL, strings.TrimSpace(v)), idx)
				return
			}
		}

		if ss, ok := el.Attr("srcset"); ok {
			if first := firstSrcset(ss); first != "" {
				c.add(resolve(chapterURL, first), idx)
			}
		}
	})

	return len(c.items) - before
}

// Finalize orders images by data-index when present, then by discovery.
func (c *imageCollector) Finalize() []string {
	if len(c.items) == 0 {
		return nil
	}

	list := make([]collectedItem, len(c.items))
	copy(list, c.items)

	sort.SliceStable(list, func(i, j int) bool {
		ai, aj := list[i].Index, list[j].Index
		if ai >= 0 && aj >= 0 && ai != aj {
			return ai < aj
		}
		if ai >= 0 && aj < 0 {
			return true
		}
		if ai < 0 && aj >= 0 {
			return false
		}

		return list[i].Order < list[j].Order
	})

	out := make([]string, len(list))
	for i := range list {
		out[i] = list[i].URL
	}

	return out
}

func firstSrcset(ss string) string {
	for p := range strings.SplitSeq(ss, ",") {
		parts := strings.Fields(strings.TrimSpace(p))
		if len(parts) > 0 {
			return parts[0]
		}
	}
	return ""
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

func normalizeExtList(list []string) []string {
	out := []string{}
	for _, ext := range list {
		ext = strings.ToLower(strings.TrimSpace(ext))
		ext = strings.TrimPrefix(ext, ".")
		if ext != "" {
			out = append(out, regexp.QuoteMeta(ext))
		}
	}

	return out
}

// buildExtRegex returns nil when every extension is allowed.
func buildExtRegex(exts []string) *regexp.Regexp {
	if len(exts) == 0 {
		return nil
	}

	return regexp.MustCompile(`(?i)\.(` + strings.Join(exts, "|") + `)$`)
}

func resolve(chapterURL, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u == nil {
		return raw
	}

	if u.IsAbs() {
		return u.String()
	}

	base, err := url.Parse(chapterURL)
	if err != nil || base == nil {
		return raw
	}

	return base.ResolveReference(u).String()
}

func getIndexFor(sel *goquery.Selection) int {
	if v, ok := sel.Attr("data-index"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}

	p := sel.ParentsFiltered("[data-index]").First()
	if p.Length() > 0 {
		if v, ok := p.Attr("data-index"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}

	return -1
}
