package util

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type HTTPClientOptions struct {
	Timeout   time.Duration
	UserAgent string
	Cookie    string
	// CookieFile holds a Cookie header value on its first non-empty line.
	// It is appended to Cookie.
	CookieFile string
	// CloudflareBypass rewrites the TLS and header fingerprint of the base
	// transport so image hosts behind Cloudflare's browser check answer.
	CloudflareBypass bool
	// Transport is the base transport. Default: a pooled http.Transport
	Transport   http.RoundTripper
	DebugLogger interface {
		Debugf(string, ...any)
	}
}

// NewHTTPClient builds the client shared by page scraping and image
// downloads. Every request carries the configured User-Agent and cookies.
func NewHTTPClient(opts HTTPClientOptions) (*http.Client, error) {
	cookie, err := cookieHeader(opts.Cookie, opts.CookieFile)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	base := opts.Transport
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        100,
			MaxConnsPerHost:     100,
			MaxIdleConnsPerHost: 100,
		}
	}
	if opts.CloudflareBypass {
		base = cloudflarebp.AddCloudFlareByPass(base)
	}

	if opts.DebugLogger != nil {
		opts.DebugLogger.Debugf("HTTP client: timeout=%s ua=%q cookies=%t cloudflare=%t",
			opts.Timeout, opts.UserAgent, cookie != "", opts.CloudflareBypass)
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Jar:     jar,
		Transport: &headerTransport{
			base:   base,
			ua:     opts.UserAgent,
			cookie: cookie,
			log:    opts.DebugLogger,
		},
	}, nil
}

type headerTransport struct {
	base   http.RoundTripper
	ua     string
	cookie string
	log    interface{ Debugf(string, ...any) }
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrip must not modify the caller's request.
	req = req.Clone(req.Context())

	if t.ua != "" {
		req.Header.Set("User-Agent", t.ua)
	}
	if t.cookie != "" && req.Header.Get("Cookie") == "" {
		req.Header.Set("Cookie", t.cookie)
	}
	if t.log != nil {
		t.log.Debugf("HTTP %s %s", req.Method, req.URL)
	}

	return t.base.RoundTrip(req)
}

// cookieHeader joins the inline cookie with the first non-empty line of
// file. A file that cannot be read is an error.
func cookieHeader(inline, file string) (string, error) {
	parts := []string{}
	if s := strings.TrimSpace(inline); s != "" {
		parts = append(parts, s)
	}

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return "", fmt.Errorf("cookie file: %w", err)
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				parts = append(parts, line)
				break
			}
		}
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("cookie file: %w", err)
		}
	}

	return strings.Join(parts, "; "), nil
}

// DoWithRetry sends req up to attempts times, waiting backoff*n after the
// n-th failure. Transport errors and 5xx responses are retried; any other
// response is returned to the caller. The wait ends early when the request
// context is done.
func DoWithRetry(c *http.Client, req *http.Request, attempts int, backoff time.Duration) (*http.Response, error) {
	attempts = max(1, attempts)

	var lastErr error
	for n := 1; n <= attempts; n++ {
		resp, err := c.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d after %d attempts", resp.StatusCode, n)
		default:
			return resp, nil
		}

		if n == attempts {
			break
		}
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(backoff * time.Duration(n)):
		}
	}

	return nil, lastErr
}

// PickUserAgent returns override, or a desktop Chrome User-Agent.
func PickUserAgent(override string) string {
	if override != "" {
		return override
	}
	return defaultUserAgent
}
