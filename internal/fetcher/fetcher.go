// Package fetcher downloads single resources to disk, retrying failed
// transfers with a randomized pause between attempts.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/brogergvhs/cbzmaker/internal/ui"
)

// ErrStatus marks a response whose status code was not 2xx.
var ErrStatus = errors.New("fetcher: unexpected status")

// Options configures a Fetcher.
type Options struct {
	// Retries is the number of additional attempts after the first one.
	// Default: 5
	Retries int

	// RetryUnit scales the random pause between attempts, which is drawn
	// from [1, 10] units.
	// Default: 1s
	RetryUnit time.Duration

	// Timeout bounds a single attempt.
	// Default: 30s
	Timeout time.Duration

	Logger *log.Logger
}

// DefaultOptions returns the process defaults.
func DefaultOptions() Options {
	return Options{
		Retries:   5,
		RetryUnit: time.Second,
		Timeout:   30 * time.Second,
	}
}

// Result describes a finished Fetch call.
type Result struct {
	Attempts int
	Bytes    int64
	Waited   time.Duration
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	client *http.Client
	opts   Options
	log    *log.Logger
}

func New(c *http.Client, opts Options) *Fetcher {
	if c == nil {
		c = http.DefaultClient
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryUnit <= 0 {
		opts.RetryUnit = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Fetcher{
		client: c,
		opts:   opts,
		log:    ui.OrDiscard(opts.Logger),
	}
}

// Fetch downloads src into dest, overwriting it. It makes at most
// Retries+1 attempts. When every attempt fails the failure is logged and
// returned; callers treat it as best effort.
func (f *Fetcher) Fetch(ctx context.Context, src, dest, referer string) (Result, error) {
	var res Result
	var err error

	for attempt := 0; attempt <= f.opts.Retries; attempt++ {
		if attempt > 0 {
			wait := f.pause()
			f.log.Warnf("Retrying download %d/%d in %s: %s (%v)", attempt, f.opts.Retries, wait, src, err)

			select {
			case <-ctx.Done():
				res.Attempts = attempt
				f.log.Errorf("Image couldn't be retrieved: %s -> %s: %v", src, dest, ctx.Err())
				return res, ctx.Err()
			case <-time.After(wait):
			}
			res.Waited += wait
		}

		var n int64
		n, err = f.download(ctx, src, dest, referer)
		if err == nil {
			res.Attempts = attempt + 1
			res.Bytes = n
			return res, nil
		}
	}

	res.Attempts = f.opts.Retries + 1
	f.log.Errorf("Image couldn't be retrieved after %d attempts: %s -> %s: %v", res.Attempts, src, dest, err)

	return res, fmt.Errorf("fetch %s: %w", src, err)
}

// pause draws the wait before the next attempt.
func (f *Fetcher) pause() time.Duration {
	return time.Duration(rand.IntN(10)+1) * f.opts.RetryUnit
}

func (f *Fetcher) download(ctx context.Context, src, dest, referer string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return 0, err
	}

	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: HTTP %d", ErrStatus, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// A cut-off transfer must not be archived as a page.
		_ = os.Remove(dest)
		return 0, err
	}

	return written, nil
}
