// Package browser implements scraper.Source with a headless Chrome, for
// networks where the plain HTTP client gets challenged.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/chromedp/chromedp"

	"suggestguard/scraper"
	"suggestguard/scraper/google"
	"suggestguard/utils"
)

// Config configures a Source.
type Config struct {
	Endpoint  string
	Language  string
	Country   string
	UserAgent string
	ChromeBin string
}

// Source drives one browser process; each Fetch opens its own tab.
type Source struct {
	cfg           Config
	logger        *utils.Logger
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

// New starts the browser.
func New(cfg Config, logger *utils.Logger) (*Source, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = google.DefaultEndpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = google.DefaultUserAgent
	}
	if cfg.ChromeBin == "" {
		cfg.ChromeBin = findChromeBinary()
	}
	logger.Info("[browser] Using browser binary: %q", cfg.ChromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ChromeBin != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("browser: start: %w", err)
	}

	return &Source{
		cfg:           cfg,
		logger:        logger,
		browserCtx:    browserCtx,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
	}, nil
}

// Fetch implements scraper.Source.
func (s *Source) Fetch(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, scraper.NewFetchError(scraper.KindPermanent, query, 0, errors.New("empty query"))
	}
	target, err := google.BuildURL(s.cfg.Endpoint, query, s.cfg.Language, s.cfg.Country)
	if err != nil {
		return nil, scraper.NewFetchError(scraper.KindPermanent, query, 0, err)
	}

	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var body string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(target),
		chromedp.Text("body", &body, chromedp.ByQuery),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, scraper.NewFetchError(scraper.KindTransient, query, 0, err)
	}

	if strings.Contains(body, "unusual traffic") {
		return nil, scraper.NewFetchError(scraper.KindRateLimited, query, 0, errors.New("captcha challenge"))
	}

	suggestions, err := google.DecodeSuggestions([]byte(strings.TrimSpace(body)))
	if err != nil {
		return nil, scraper.NewFetchError(scraper.KindPermanent, query, 0, err)
	}
	return suggestions, nil
}

// Close shuts the browser down.
func (s *Source) Close() error {
	s.cancelBrowser()
	s.cancelAlloc()
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
