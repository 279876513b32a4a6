// Package downloader drains the chapter queue with a fixed pool of workers.
// Each worker resolves a chapter's images through the Finder, fetches them
// into the chapter directory, archives the directory and optionally removes
// it. Failures stay inside the chapter that caused them.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/brogergvhs/cbzmaker/internal/archive"
	"github.com/brogergvhs/cbzmaker/internal/chapters"
	"github.com/brogergvhs/cbzmaker/internal/fetcher"
	"github.com/brogergvhs/cbzmaker/internal/naming"
	"github.com/brogergvhs/cbzmaker/internal/providers"
	"github.com/brogergvhs/cbzmaker/internal/queue"
	"github.com/brogergvhs/cbzmaker/internal/ui"
	"github.com/brogergvhs/cbzmaker/internal/util"
)

// ErrNoFinder is returned by New when no Finder is supplied.
var ErrNoFinder = errors.New("downloader: an image finder is required")

// DefaultThreads is the worker pool size used when Options.Threads is unset.
const DefaultThreads = 8

// Options configures a Downloader. It is read once by New.
type Options struct {
	// OutputDir receives chapter directories and archives.
	// Default: "."
	OutputDir string

	// Threads is the number of workers draining the queue.
	// Default: 8
	Threads int

	// Cleanup removes each chapter directory once it has been archived.
	Cleanup bool

	// DetectNumbers names chapters from their URL instead of passing the
	// list ordinal to the Namer.
	DetectNumbers bool

	Namer naming.Namer
	Fetch fetcher.Options

	// Progress is optional.
	Progress *ui.MPBProgressManager
	Logger   *log.Logger
}

type Downloader struct {
	finder  providers.Finder
	fetcher *fetcher.Fetcher
	opts    Options
	log     *log.Logger
	stats   *ui.Stats

	dirMu sync.Mutex
	dirs  map[string]*dirLock
}

type dirLock struct {
	sync.Mutex
	refs int
}

func New(c *http.Client, finder providers.Finder, opts Options) (*Downloader, error) {
	if finder == nil {
		return nil, ErrNoFinder
	}
	if f, ok := finder.(providers.FinderFunc); ok && f == nil {
		return nil, ErrNoFinder
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Threads < 1 {
		opts.Threads = DefaultThreads
	}
	if opts.Namer.Series == "" {
		opts.Namer.Series = naming.DefaultSeries
	}

	l := ui.OrDiscard(opts.Logger)
	if opts.Fetch.Logger == nil {
		opts.Fetch.Logger = l
	}

	return &Downloader{
		finder:  finder,
		fetcher: fetcher.New(c, opts.Fetch),
		opts:    opts,
		log:     l,
		stats:   &ui.Stats{},
		dirs:    make(map[string]*dirLock),
	}, nil
}

// Stats returns the counters accumulated by every Run.
func (d *Downloader) Stats() *ui.Stats {
	return d.stats
}

// Download enqueues chs in order and runs the pool until all of them have
// been processed.
func (d *Downloader) Download(ctx context.Context, chs []chapters.Chapter) {
	q := queue.New()
	for _, ch := range chs {
		q.Put(ch.Item())
	}

	d.Run(ctx, q)
}

// Run starts the workers on a fully populated queue and returns once every
// item has been marked done.
func (d *Downloader) Run(ctx context.Context, q *queue.Queue) {
	d.log.Infof("Downloading %d chapters with %d workers", q.Len(), d.opts.Threads)

	if err := os.MkdirAll(d.opts.OutputDir, 0755); err != nil {
		d.log.Errorf("Cannot create output folder %s: %v", d.opts.OutputDir, err)
	}

	for w := 0; w < d.opts.Threads; w++ {
		go d.worker(ctx, q)
	}

	d.log.Debugf("Waiting for queue to be processed")
	q.Join()
}

func (d *Downloader) worker(ctx context.Context, q *queue.Queue) {
	for {
		it, ok := q.Get()
		if !ok {
			return
		}

		func() {
			defer q.Done()

			if err := d.processChapter(ctx, it); err != nil {
				d.stats.FailedChapters.Add(1)
				d.log.Errorf("Chapter %s failed: %v", it.URL, err)
				return
			}
			d.stats.TotalChapters.Add(1)
		}()
	}
}

// ChapterName returns the name of the item's directory and archive.
func (d *Downloader) ChapterName(it queue.Item) string {
	number := it.Ordinal
	if d.opts.DetectNumbers {
		number = 0
	}
	return d.opts.Namer.Name(it.URL, number)
}

// ChapterDir is the directory the item's images are written to.
func (d *Downloader) ChapterDir(it queue.Item) string {
	return filepath.Join(d.opts.OutputDir, d.ChapterName(it))
}

func (d *Downloader) processChapter(ctx context.Context, it queue.Item) error {
	name := d.ChapterName(it)
	dir := filepath.Join(d.opts.OutputDir, name)
	clog := d.log.With("chapter", name)

	clog.Infof("Searching URL: %s", it.URL)
	images, err := d.finder.FindImages(ctx, it.URL)
	if err != nil {
		return fmt.Errorf("find images: %w", err)
	}
	if len(images) == 0 {
		return fmt.Errorf("find images: %w", providers.ErrNoImages)
	}
	clog.Infof("Found %d images", len(images))

	unlock := d.lockDir(dir)
	defer unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	handle := d.opts.Progress.Register("Ch." + name)
	handle.SetTotal(len(images))
	defer handle.MarkDone()

	failed := 0
	for i, u := range images {
		dest := filepath.Join(dir, naming.ImageFile(i, u))
		clog.Debugf("Downloading image %d: %s", i, u)

		res, err := d.fetcher.Fetch(ctx, u, dest, it.URL)
		handle.Increment(res.Bytes)
		if err != nil {
			failed++
			d.stats.FailedImages.Add(1)
			continue
		}

		d.stats.TotalImages.Add(1)
		d.stats.TotalBytes.Add(res.Bytes)
	}
	if failed > 0 {
		clog.Warnf("%d/%d images failed", failed, len(images))
	}

	out, archiveErr := archive.CreateCBZ(dir)
	if archiveErr != nil {
		archiveErr = fmt.Errorf("couldn't zip folder %s: %w", dir, archiveErr)
	} else {
		clog.Infof("Created %s", out)
	}

	if d.opts.Cleanup {
		if err := util.CleanupFolder(dir); err != nil {
			clog.Errorf("Couldn't delete folder: %v", err)
		}
	}

	clog.Infof("Finished downloading chapter")
	return archiveErr
}

// lockDir serializes workers whose chapters resolve to the same directory.
func (d *Downloader) lockDir(dir string) func() {
	d.dirMu.Lock()
	l, ok := d.dirs[dir]
	if !ok {
		l = &dirLock{}
		d.dirs[dir] = l
	} else {
		d.log.Warnf("Two chapters share the directory %s; they will run one after the other", dir)
	}
	l.refs++
	d.dirMu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()

		d.dirMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.dirs, dir)
		}
		d.dirMu.Unlock()
	}
}
