package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/Gokul0616/scrapi/config"
)

// Engine supplies isolated browsing contexts, optionally proxy-backed.
type Engine interface {
	CreateContext(useProxy bool) (BrowserContext, error)
}

// BrowserContext is one isolated browser session. Pages created from it are
// exclusively owned by a single operation and must be closed on every exit path.
type BrowserContext interface {
	NewPage() (Page, error)
	Close()
}

// Page is a single browser tab.
type Page interface {
	Navigate(url string, timeout time.Duration) error
	Evaluate(script string, out any) error
	Content() (string, error)
	Press(key string) error
	Close()
}

// ChromeEngine implements Engine on top of chromedp. One CreateContext call
// launches one Chrome process; pages are tabs of that process.
type ChromeEngine struct {
	parent context.Context
	cfg    config.Config
}

// NewChromeEngine creates an engine whose contexts are children of parent;
// cancelling parent tears down every in-flight browser operation.
func NewChromeEngine(parent context.Context, cfg config.Config) *ChromeEngine {
	return &ChromeEngine{parent: parent, cfg: cfg}
}

// CreateContext launches a browser session. The proxy address is taken from
// configuration and only applied when useProxy is set.
func (e *ChromeEngine) CreateContext(useProxy bool) (BrowserContext, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(e.cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)
	if useProxy && e.cfg.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(e.cfg.ProxyURL))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(e.parent, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Start the browser now so every page shares one process.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &chromeContext{ctx: browserCtx, cancelBrowser: cancelBrowser, cancelAlloc: cancelAlloc}, nil
}

type chromeContext struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

func (c *chromeContext) NewPage() (Page, error) {
	tabCtx, cancelTab := chromedp.NewContext(c.ctx)
	return &chromePage{ctx: tabCtx, cancel: cancelTab}, nil
}

func (c *chromeContext) Close() {
	c.cancelBrowser()
	c.cancelAlloc()
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *chromePage) Navigate(url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) Evaluate(script string, out any) error {
	return chromedp.Run(p.ctx, chromedp.Evaluate(script, out))
}

func (p *chromePage) Content() (string, error) {
	var html string
	if err := chromedp.Run(p.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	return html, nil
}

func (p *chromePage) Press(key string) error {
	return chromedp.Run(p.ctx, chromedp.KeyEvent(key))
}

func (p *chromePage) Close() {
	p.cancel()
}
