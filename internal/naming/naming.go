// Package naming derives chapter, image and volume file names.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// DefaultSeries is used when no series name is known.
const DefaultSeries = "unnamed-series"

var reDigits = regexp.MustCompile(`\d+`)

// Namer turns a chapter URL into its canonical name.
type Namer struct {
	Series string
	// Pattern, when set, extracts the chapter number from the last path
	// segment of the URL.
	Pattern *regexp.Regexp
}

// New compiles pattern (may be empty) into a Namer.
func New(series, pattern string) (Namer, error) {
	n := Namer{Series: series}
	if n.Series == "" {
		n.Series = DefaultSeries
	}
	if pattern == "" {
		return n, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return Namer{}, fmt.Errorf("chapter regex %q: %w", pattern, err)
	}
	n.Pattern = re

	return n, nil
}

// Name returns "{series}-{number:05d}". number <= 0 means no number was
// assigned up front. The order of precedence is:
//
//  1. no number and no Pattern: first digit run of the last URL segment;
//     a segment without digits, or whose digit run overflows an int, is
//     returned as is, without the series
//  2. Pattern matches the last segment: the matched number
//  3. the assigned number
func (n Namer) Name(sourceURL string, number int) string {
	seg := LastSegment(sourceURL)

	if number <= 0 && n.Pattern == nil {
		return n.detect(seg)
	}

	if n.Pattern != nil {
		if m := n.Pattern.FindString(seg); m != "" {
			if v, err := strconv.Atoi(m); err == nil {
				return n.padded(v)
			}
		}
		if number <= 0 {
			return n.detect(seg)
		}
	}

	return n.padded(number)
}

func (n Namer) detect(seg string) string {
	m := reDigits.FindString(seg)
	if m == "" {
		return seg
	}

	v, err := strconv.Atoi(m)
	if err != nil {
		return seg
	}

	return n.padded(v)
}

func (n Namer) padded(v int) string {
	return fmt.Sprintf("%s-%s", n.Series, Pad(v))
}

// Pad formats v as a five digit, zero padded decimal.
func Pad(v int) string {
	return fmt.Sprintf("%05d", v)
}

// LastSegment returns the final path segment of u, ignoring trailing
// slashes.
func LastSegment(u string) string {
	u = strings.TrimRight(u, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}

// ImageExt returns the text after the last dot of an image URL. URLs whose
// last dot is not in the final path segment fall back to "jpg".
func ImageExt(imageURL string) string {
	i := strings.LastIndex(imageURL, ".")
	if i < 0 || i == len(imageURL)-1 {
		return "jpg"
	}

	ext := imageURL[i+1:]
	if strings.ContainsAny(ext, `/\`) {
		return "jpg"
	}

	return ext
}

// ImageFile names the index-th image of a chapter, e.g. "0003.png".
func ImageFile(index int, imageURL string) string {
	return fmt.Sprintf("%04d.%s", index, ImageExt(imageURL))
}

// VolumeName names a merged volume directory.
func VolumeName(series string, minChapter, maxChapter int) string {
	return fmt.Sprintf("%s-%s-%s", series, Pad(minChapter), Pad(maxChapter))
}

// MemberFile names the index-th page of a volume, e.g. "00012.jpg".
func MemberFile(index int, ext string) string {
	return fmt.Sprintf("%s.%s", Pad(index), ext)
}

// Ext returns the extension of an archive member without the dot, or the
// whole name when there is none.
func Ext(name string) string {
	base := filepath.Base(name)
	if i := strings.LastIndex(base, "."); i >= 0 {
		return base[i+1:]
	}
	return base
}
