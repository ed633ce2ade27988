package scraper

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"stay_scout/config"
)

const (
	pageLoadTimeoutMS = 60000
	selectorTimeoutMS = 15000
	scrollPasses      = 3
)

// Browser drives one Chromium context shared by all fetches of a pipeline.
// One page is active at a time; platforms wanting parallelism get their own
// Browser instance.
type Browser struct {
	cfg         *config.Config
	pw          *playwright.Playwright
	context     playwright.BrowserContext
	mu          sync.Mutex
	initialized bool
}

func NewBrowser(cfg *config.Config) *Browser {
	return &Browser{cfg: cfg}
}

func (b *Browser) ensureBrowser() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	var err error
	b.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	opts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(b.cfg.Scraper.Headless),
		Locale:   playwright.String("de-CH"),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	}
	if b.cfg.Proxy.URL != "" {
		opts.Proxy = &playwright.Proxy{Server: b.cfg.Proxy.URL}
	}

	cwd, _ := os.Getwd()
	userDataDir := filepath.Join(cwd, "browser_data")
	b.context, err = b.pw.Chromium.LaunchPersistentContext(userDataDir, opts)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	b.initialized = true
	return nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	if b.context != nil {
		if err := b.context.Close(); err != nil {
			firstErr = err
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.initialized = false
	return firstErr
}

// FetchDocument loads a URL, waits for waitSelector, scrolls to trigger lazy
// loading and returns the rendered DOM. Both the navigation and the selector
// wait are bounded; a timeout returns an error, never a hang.
func (b *Browser) FetchDocument(ctx context.Context, pageURL, waitSelector string) (*goquery.Document, error) {
	if err := b.ensureBrowser(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	_, err = page.Goto(pageURL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(pageLoadTimeoutMS),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	b.humanDelay(2000, 4000)
	b.handleConsent(page)

	if waitSelector != "" {
		err = page.Locator(waitSelector).First().WaitFor(playwright.LocatorWaitForOptions{
			Timeout: playwright.Float(selectorTimeoutMS),
		})
		if err != nil {
			log.Printf("Selector %q not found on %s: %v", waitSelector, pageURL, err)
		}
	}

	for i := 0; i < scrollPasses; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`)
		page.WaitForTimeout(float64(1000 + rand.Intn(1000)))
	}

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	return goquery.NewDocumentFromReader(strings.NewReader(content))
}

func (b *Browser) handleConsent(page playwright.Page) {
	consentSelectors := []string{
		"#onetrust-accept-btn-handler",
		"button[id*='onetrust-accept']",
		"button[data-testid='accept-cookies']",
		"button:has-text('Alle akzeptieren')",
		"button:has-text('Akzeptieren')",
		"button:has-text('Accept all')",
		"button:has-text('Accept')",
		"button:has-text('OK')",
	}

	for _, selector := range consentSelectors {
		btn := page.Locator(selector).First()
		if visible, _ := btn.IsVisible(); visible {
			log.Printf("Clicking consent button: %s", selector)
			btn.Click()
			page.WaitForTimeout(2000)
			break
		}
	}
}

func (b *Browser) humanDelay(minMs, maxMs int) {
	delay := minMs + rand.Intn(maxMs-minMs)
	time.Sleep(time.Duration(delay) * time.Millisecond)
}
