// Package volume merges single-chapter archives into multi-chapter volumes.
//
// Archives in the input directory are sorted by name and cut into batches.
// The pages of every batch are written into one directory under a single
// running page counter, and the directory is archived like a chapter.
package volume

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/brogergvhs/cbzmaker/internal/archive"
	"github.com/brogergvhs/cbzmaker/internal/naming"
	"github.com/brogergvhs/cbzmaker/internal/ui"
	"github.com/brogergvhs/cbzmaker/internal/util"
)

// DefaultBatchSize is the number of chapters per volume when none is given.
const DefaultBatchSize = 10

var (
	reSeries = regexp.MustCompile(`^(.*?)-\d+`)
	reNumber = regexp.MustCompile(`\d+`)
	reVolume = regexp.MustCompile(`-\d{5,}-\d{5,}\.[^.]+$`)
)

type Options struct {
	// Cleanup removes each volume directory once it has been archived.
	Cleanup bool
	Logger  *log.Logger
}

// Merger is sequential; a single Merger must not run two merges at once.
type Merger struct {
	opts Options
	log  *log.Logger
}

// Volume describes one merged batch.
type Volume struct {
	Name     string
	Archive  string
	Chapters []string
	Pages    int
	// Skipped lists the archives of the batch that contributed no pages.
	Skipped []string
}

type Report struct {
	Volumes []Volume
	// Failed lists volumes whose directory could not be created or archived.
	Failed []string
}

func New(opts Options) *Merger {
	return &Merger{
		opts: opts,
		log:  ui.OrDiscard(opts.Logger),
	}
}

// IsVolume reports whether name is an archive written by Merge, e.g.
// "series-00001-00010.cbz".
func IsVolume(name string) bool {
	return archive.IsArchive(name) && reVolume.MatchString(name)
}

// List returns the chapter archives in dir in lexical order. Volumes are
// left out, so merging into the input directory does not read them back.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !archive.IsArchive(e.Name()) || IsVolume(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	return names, nil
}

// Batches cuts names into contiguous groups of size. The last group may be
// shorter.
func Batches(names []string, size int) [][]string {
	if size < 1 {
		size = DefaultBatchSize
	}

	var out [][]string
	for i := 0; i < len(names); i += size {
		end := min(i+size, len(names))
		out = append(out, names[i:end])
	}

	return out
}

// Describe derives the series and chapter range of a batch. The series is
// taken from the first name; min and max come from the first digit run of
// every name. Names without digits do not count towards the range.
func Describe(batch []string) (series string, minChapter, maxChapter int) {
	series = naming.DefaultSeries
	if len(batch) == 0 {
		return series, 0, 0
	}

	if m := reSeries.FindStringSubmatch(batch[0]); m != nil && m[1] != "" {
		series = m[1]
	}

	found := false
	for _, name := range batch {
		d := reNumber.FindString(name)
		if d == "" {
			continue
		}
		v, err := strconv.Atoi(d)
		if err != nil {
			continue
		}

		if !found {
			minChapter, maxChapter = v, v
			found = true
			continue
		}
		minChapter = min(minChapter, v)
		maxChapter = max(maxChapter, v)
	}

	return series, minChapter, maxChapter
}

// Merge merges the archives of inputDir into volumes of batchSize chapters
// under outputDir. Only a failure to list inputDir is returned; problems
// inside a batch are logged and recorded in the Report.
func (m *Merger) Merge(inputDir, outputDir string, batchSize int) (Report, error) {
	var rep Report

	names, err := List(inputDir)
	if err != nil {
		return rep, err
	}
	if len(names) == 0 {
		m.log.Warnf("No archives found in %s", inputDir)
		return rep, nil
	}

	batches := Batches(names, batchSize)
	m.log.Infof("Merging %d archives into %d volumes", len(names), len(batches))

	for _, batch := range batches {
		vol, err := m.mergeBatch(inputDir, outputDir, batch)
		if err != nil {
			m.log.Errorf("Volume %s failed: %v", vol.Name, err)
			rep.Failed = append(rep.Failed, vol.Name)
			continue
		}
		rep.Volumes = append(rep.Volumes, vol)
	}

	return rep, nil
}

func (m *Merger) mergeBatch(inputDir, outputDir string, batch []string) (Volume, error) {
	series, lo, hi := Describe(batch)
	vol := Volume{
		Name:     naming.VolumeName(series, lo, hi),
		Chapters: batch,
	}
	vlog := m.log.With("volume", vol.Name)
	vlog.Infof("Series: %s, chapters %d-%d", series, lo, hi)

	dir := filepath.Join(outputDir, vol.Name)

	// Pages left over from an earlier merge would end up in the archive.
	if err := os.RemoveAll(dir); err != nil {
		return vol, fmt.Errorf("reset %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return vol, fmt.Errorf("create %s: %w", dir, err)
	}

	page := 1
	for _, name := range batch {
		n, err := m.extract(filepath.Join(inputDir, name), dir, page)
		if err != nil {
			vlog.Errorf("Skipping %s: %v", name, err)
			vol.Skipped = append(vol.Skipped, name)
		}
		page += n
	}
	vol.Pages = page - 1

	out, err := archive.CreateCBZ(dir)
	if err != nil {
		return vol, err
	}
	vol.Archive = out
	vlog.Infof("Created %s with %d pages", out, vol.Pages)

	if m.opts.Cleanup {
		if err := util.CleanupFolder(dir); err != nil {
			vlog.Errorf("Couldn't delete folder: %v", err)
		}
	}

	return vol, nil
}

// extract writes the members of src into dir, numbering them from first.
// It returns the number of pages written, which may be non-zero even when
// an error interrupts the archive.
func (m *Merger) extract(src, dir string, first int) (int, error) {
	r, err := archive.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = r.Close()
	}()

	if r.Len() == 0 {
		return 0, fmt.Errorf("%s: %w", src, archive.ErrEmptyArchive)
	}

	names := r.Names()
	ext := naming.Ext(names[0])
	sort.Strings(names)

	written := 0
	for _, member := range names {
		dest := filepath.Join(dir, naming.MemberFile(first+written, ext))
		if err := r.ExtractTo(member, dest); err != nil {
			_ = os.Remove(dest)
			return written, err
		}
		m.log.Debugf("Renamed %s to %s", member, filepath.Base(dest))
		written++
	}

	return written, nil
}
