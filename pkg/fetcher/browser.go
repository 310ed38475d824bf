package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/dtnitsch/notion-corpus/models"
)

// BrowserFetcher renders pages in headless Chrome so script-built content is
// present in the returned HTML. The browser starts lazily on first use.
type BrowserFetcher struct {
	remoteURL string
	logger    *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewBrowserFetcher creates a BrowserFetcher. remoteURL is the DevTools
// WebSocket URL of a running Chrome; empty launches a local one.
func NewBrowserFetcher(remoteURL string, logger *slog.Logger) *BrowserFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserFetcher{remoteURL: remoteURL, logger: logger}
}

func (b *BrowserFetcher) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	wsURL := b.remoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		b.logger.Info("Launched local chrome", "url", wsURL)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	b.browser = browser
	return browser, nil
}

// Fetch navigates a stealth tab to url and returns the rendered document.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	browser, err := b.connect()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("%w: browser: create tab: %v", models.ErrSourceUnavailable, err)
	}
	defer page.Close()

	page = page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("browser: navigate %s: %w", url, ctx.Err())
		}
		return nil, fmt.Errorf("%w: browser: navigate %s: %v", models.ErrSourceUnavailable, url, err)
	}
	if err := page.WaitLoad(); err != nil {
		b.logger.Warn("Page load did not finish", "url", url, "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("%w: browser: read DOM: %v", models.ErrMalformedResponse, err)
	}
	return []byte(html), nil
}

// Close shuts down the browser and any locally launched Chrome.
func (b *BrowserFetcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return err
}
