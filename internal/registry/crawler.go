package registry

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/JustJay7/court-registry/internal/config"
	"github.com/JustJay7/court-registry/pkg/logger"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// contextDepth is how many ancestors of a link are searched for its date.
const contextDepth = 6

// PageSource lists the anchors of one listing page.
type PageSource interface {
	Anchors(ctx context.Context, pageURL string) ([]Anchor, error)
}

// Browser renders listing pages in a headless browser. The registry builds
// its archive list client-side, so plain HTTP fetches see no links.
type Browser struct {
	cfg     *config.Config
	browser *rod.Browser
	mu      sync.Mutex
	logger  *logger.Logger
}

// NewBrowser launches the browser used for crawling.
func NewBrowser(cfg *config.Config, logger *logger.Logger) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.HeadlessMode).
		Set("user-agent", cfg.UserAgent).
		Set("disable-blink-features", "AutomationControlled").
		Delete("enable-automation")

	if cfg.BrowserPath != "" {
		l = l.Bin(cfg.BrowserPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Browser{
		cfg:     cfg,
		browser: browser,
		logger:  logger,
	}, nil
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.browser.Close()
}

// Anchors opens pageURL and returns every link with the first date found in
// the text of the link or one of its nearest ancestors.
func (b *Browser) Anchors(ctx context.Context, pageURL string) ([]Anchor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pageCtx, cancel := context.WithTimeout(ctx, b.cfg.ScraperTimeout)
	defer cancel()

	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()
	page = page.Context(pageCtx)

	b.logger.Debug("Opening listing page", "url", pageURL)
	if err := page.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		b.logger.Warn("Listing page load incomplete", "url", pageURL, "error", err)
	}

	links, err := page.Elements("a[href]")
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	anchors := make([]Anchor, 0, len(links))
	for _, el := range links {
		href, err := el.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		anchors = append(anchors, Anchor{Href: *href, Date: nearbyDate(el)})
	}

	return anchors, nil
}

func nearbyDate(el *rod.Element) string {
	node := el
	for i := 0; i < contextDepth && node != nil; i++ {
		text, err := node.Text()
		if err == nil {
			if m := publishedDatePattern.FindString(text); m != "" {
				return m
			}
		}
		parent, err := node.Parent()
		if err != nil {
			break
		}
		node = parent
	}
	return ""
}

// Crawler pages through the registry listing collecting archive links.
type Crawler struct {
	pages    PageSource
	listURL  string
	maxPages int
	delay    time.Duration
	logger   *logger.Logger
}

func NewCrawler(pages PageSource, listURL string, maxPages int, logger *logger.Logger) *Crawler {
	return &Crawler{
		pages:    pages,
		listURL:  listURL,
		maxPages: maxPages,
		delay:    500 * time.Millisecond,
		logger:   logger,
	}
}

// SetDelay changes the pause between listing pages.
func (c *Crawler) SetDelay(d time.Duration) {
	c.delay = d
}

// YearArchives returns the URLs of every archive published in year, newest
// listing page first.
func (c *Crawler) YearArchives(ctx context.Context, year int) ([]string, error) {
	seen := make(map[string]struct{})
	var links []string

	for page := 1; page <= c.maxPages; page++ {
		pageURL := PageURL(c.listURL, page)
		base, err := url.Parse(pageURL)
		if err != nil {
			return links, fmt.Errorf("invalid listing url %q: %w", pageURL, err)
		}

		anchors, err := c.pages.Anchors(ctx, pageURL)
		if err != nil {
			if len(links) > 0 {
				c.logger.Warn("Listing page failed, keeping links found so far", "page", page, "error", err)
				return links, nil
			}
			return nil, err
		}

		scan := ScanAnchors(base, anchors, year, seen)
		links = append(links, scan.Links...)
		c.logger.Info("Scanned listing page", "page", page, "year", year, "found", len(scan.Links))

		if scan.Done(year) {
			break
		}

		select {
		case <-ctx.Done():
			return links, ctx.Err()
		case <-time.After(c.delay):
		}
	}

	return links, nil
}
