package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/cbzmaker/internal/chapters"
	"github.com/brogergvhs/cbzmaker/internal/config"
	"github.com/brogergvhs/cbzmaker/internal/downloader"
	"github.com/brogergvhs/cbzmaker/internal/fetcher"
	"github.com/brogergvhs/cbzmaker/internal/naming"
	"github.com/brogergvhs/cbzmaker/internal/providers/generic"
	"github.com/brogergvhs/cbzmaker/internal/ui"
	"github.com/brogergvhs/cbzmaker/internal/util"
)

var (
	// selection
	flagRange    string
	flagList     string
	flagReverse  bool
	flagDetect   bool
	flagSelector string
	flagAttr     string
	flagAllowExt string

	// naming
	flagSeries       string
	flagChapterRegex string

	// runtime
	flagOutput     string
	flagThreads    int
	flagRetries    int
	flagRetryUnit  string
	flagTimeout    string
	flagCleanup    bool
	flagDryRun     bool
	flagNoProgress bool

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
	flagCloudflare bool
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download <url-list>",
		Short: "Download every chapter of a URL list into CBZ files. Uses the defaults from the selected config, overwritten by CLI flags",
		Args:  cobra.ExactArgs(1),
		RunE:  runDownload,
	}

	// selection
	downloadCmd.Flags().StringVar(&flagRange, "range", "", "download range of chapters by position in the list (e.g. 5-12)")
	downloadCmd.Flags().StringVar(&flagList, "list", "", "download specific chapter positions (e.g. 1,3,5)")
	downloadCmd.Flags().BoolVar(&flagReverse, "reverse", false, "reverse the URL list before numbering (newest-first lists)")
	downloadCmd.Flags().BoolVar(&flagDetect, "detect-numbers", false, "name chapters from the number in their URL instead of their position")
	downloadCmd.Flags().StringVar(&flagSelector, "selector", "", "CSS selector for the elements carrying image URLs")
	downloadCmd.Flags().StringVar(&flagAttr, "attr", "", "attribute read first on every selected element")
	downloadCmd.Flags().StringVar(&flagAllowExt, "allow-ext", "", "Allowed image extensions (e.g. \"webp|jpg|png\")")

	// naming
	downloadCmd.Flags().StringVar(&flagSeries, "series", "", "series name used as the file name prefix")
	downloadCmd.Flags().StringVar(&flagChapterRegex, "chapter-regex", "", "regex extracting the chapter number from the last URL segment")

	// runtime
	downloadCmd.Flags().StringVar(&flagOutput, "output", "", "output folder for CBZ files")
	downloadCmd.Flags().IntVar(&flagThreads, "threads", 8, "parallel chapter downloads")
	downloadCmd.Flags().IntVar(&flagRetries, "retries", 5, "retries per image after the first attempt")
	downloadCmd.Flags().StringVar(&flagRetryUnit, "retry-unit", "1s", "retry pause unit; each pause is 1-10 units")
	downloadCmd.Flags().StringVar(&flagTimeout, "timeout", "30s", "timeout per HTTP request")
	downloadCmd.Flags().BoolVar(&flagCleanup, "cleanup", false, "delete chapter folders once archived")
	downloadCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show what would be downloaded, don’t download")
	downloadCmd.Flags().BoolVar(&flagNoProgress, "no-progress", false, "disable progress bars")

	// headers/auth
	downloadCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	downloadCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	downloadCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")
	downloadCmd.Flags().BoolVar(&flagCloudflare, "cloudflare", false, "use a browser-like TLS fingerprint for Cloudflare protected hosts")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, usedPath, err := loadConfig(config.Options{
		Output:       flagOutput,
		Series:       flagSeries,
		ChapterRegex: flagChapterRegex,
		Selector:     flagSelector,
		Attr:         flagAttr,
		Cookie:       flagCookie,
		CookieFile:   flagCookieFile,
		UserAgent:    flagUserAgent,
	})
	if err != nil {
		return err
	}

	f := cmd.Flags()
	override(f, "threads", &cfg.Threads, max(1, flagThreads))
	override(f, "retries", &cfg.Retries, max(0, flagRetries))
	override(f, "retry-unit", &cfg.RetryUnit, flagRetryUnit)
	override(f, "timeout", &cfg.Timeout, flagTimeout)
	override(f, "cleanup", &cfg.Cleanup, flagCleanup)
	override(f, "reverse", &cfg.Reverse, flagReverse)
	override(f, "detect-numbers", &cfg.DetectNumbers, flagDetect)
	override(f, "cloudflare", &cfg.CloudflareBypass, flagCloudflare)
	if flagNoProgress {
		cfg.Progress = false
	}
	if flagAllowExt != "" {
		cfg.AllowExt = splitExt(flagAllowExt)
	}

	logSvc := newRunLogger(cfg)
	if usedPath != "" {
		fmt.Printf("Config file: %s\n", usedPath)
	}

	fmt.Println("Full config:")
	cfg.Print(os.Stdout)
	fmt.Println()

	retryUnit, timeout, err := cfg.Durations()
	if err != nil {
		return err
	}

	namer, err := naming.New(cfg.Series, cfg.ChapterRegex)
	if err != nil {
		return err
	}

	all, err := chapters.ReadFile(args[0], cfg.Reverse)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d chapters in %s.\n\n", len(all), args[0])

	selected, err := chapters.Filter(all, flagRange, flagList)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return fmt.Errorf("no chapters selected")
	}

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:          timeout,
		UserAgent:        util.PickUserAgent(cfg.UserAgent),
		Cookie:           cfg.Cookie,
		CookieFile:       cfg.CookieFile,
		CloudflareBypass: cfg.CloudflareBypass,
		DebugLogger:      logSvc,
	})
	if err != nil {
		return err
	}

	scr, err := generic.NewScraper(client, generic.Options{
		Selector: cfg.Selector,
		Attr:     cfg.Attr,
		AllowExt: cfg.AllowExt,
		Logger:   logSvc,
	})
	if err != nil {
		return err
	}

	var pm *ui.MPBProgressManager
	if cfg.Progress && !flagDryRun {
		pm = ui.NewProgressManager(os.Stderr)
	}
	defer pm.Close()

	dl, err := downloader.New(client, scr, downloader.Options{
		OutputDir:     cfg.Output,
		Threads:       cfg.Threads,
		Cleanup:       cfg.Cleanup,
		DetectNumbers: cfg.DetectNumbers,
		Namer:         namer,
		Fetch: fetcher.Options{
			Retries:   cfg.Retries,
			RetryUnit: retryUnit,
			Timeout:   timeout,
		},
		Progress: pm,
		Logger:   logSvc,
	})
	if err != nil {
		return err
	}

	if flagDryRun {
		fmt.Printf("Dry-run: %d chapters selected.\n\n", len(selected))
		for _, ch := range selected {
			fmt.Printf("%3d) %s\n    %s\n", ch.Ordinal, dl.ChapterName(ch.Item()), ch.URL)
		}
		return nil
	}

	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}
	util.SetupInterruptHandler(logSvc)

	start := time.Now()
	dl.Download(context.Background(), selected)
	pm.Close()

	stats := dl.Stats()
	if stats.TotalChapters.Load() == 0 && util.RemoveIfEmpty(cfg.Output) {
		logSvc.Debugf("Removed empty output folder %s", cfg.Output)
	}

	fmt.Println()
	fmt.Println("Download Summary:")
	fmt.Printf("Chapters: %d (%d failed)\n", stats.TotalChapters.Load(), stats.FailedChapters.Load())
	fmt.Printf("Images:   %d (%d failed)\n", stats.TotalImages.Load(), stats.FailedImages.Load())
	fmt.Printf("Data:     %s\n", util.Human(stats.TotalBytes.Load()))
	fmt.Printf("Time:     %s\n", time.Since(start).Round(time.Second))
	fmt.Println("\nAll done.")

	return nil
}

func splitExt(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ',' || r == ' '
	})

	out := []string{}
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			out = append(out, f)
		}
	}

	return out
}
