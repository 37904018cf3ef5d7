package snapshot

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/zotbridge/pkg/logging"
)

var debugLog = logging.Component("snapshot")

const (
	// DefaultNavigationTimeout bounds page load when ctx has no deadline.
	DefaultNavigationTimeout = 60 * time.Second
	// DefaultWaitUntil is the load state a capture waits for.
	DefaultWaitUntil = "load"

	defaultViewportWidth  = 1280
	defaultViewportHeight = 800
)

// BrowserOptions configures a BrowserCapturer.
type BrowserOptions struct {
	// Headless defaults to true; set ShowBrowser to watch captures.
	ShowBrowser bool
	// WaitUntil is one of "load", "domcontentloaded", "networkidle".
	WaitUntil string
	// SkipInstall assumes the Playwright driver and Chromium are already
	// installed.
	SkipInstall bool
}

// BrowserCapturer renders pages in headless Chromium. The browser is started
// on first use and shared by all captures; every capture gets its own
// isolated browser context.
type BrowserCapturer struct {
	opts BrowserOptions

	mu          sync.Mutex
	playwright  *playwright.Playwright
	browser     playwright.Browser
	initialized bool
}

// NewBrowserCapturer returns a capturer that starts Playwright lazily.
func NewBrowserCapturer(opts BrowserOptions) *BrowserCapturer {
	if opts.WaitUntil == "" {
		opts.WaitUntil = DefaultWaitUntil
	}
	return &BrowserCapturer{opts: opts}
}

// initialize installs (unless skipped) and starts Playwright, then launches
// Chromium.
func (b *BrowserCapturer) initialize() (playwright.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return b.browser, nil
	}

	// Playwright output would corrupt the MCP stream on stdout.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if !b.opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	headless := !b.opts.ShowBrowser
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	debugLog.Infof("chromium started (headless=%v)", headless)
	b.playwright = pw
	b.browser = browser
	b.initialized = true
	return browser, nil
}

// Capture implements Capturer.
func (b *BrowserCapturer) Capture(ctx context.Context, req Request) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browser, err := b.initialize()
	if err != nil {
		return nil, err
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  defaultViewportWidth,
			Height: defaultViewportHeight,
		},
	}
	if req.UserAgent != "" {
		ua := req.UserAgent
		contextOpts.UserAgent = &ua
	}
	if req.Cookie != "" {
		contextOpts.ExtraHttpHeaders = map[string]string{"Cookie": req.Cookie}
	}

	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	defer func() { _ = bctx.Close() }()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	timeout := float64(navigationTimeout(ctx).Milliseconds())
	waitUntil := playwright.WaitUntilState(b.opts.WaitUntil)
	if _, err := page.Goto(req.URL, playwright.PageGotoOptions{
		WaitUntil: &waitUntil,
		Timeout:   &timeout,
	}); err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	return Prepare(content, page.URL())
}

func navigationTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			return d
		}
	}
	return DefaultNavigationTimeout
}

// Shutdown closes the browser and stops Playwright. The capturer can be
// used again afterwards; it restarts on the next capture.
func (b *BrowserCapturer) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil
	}
	_ = b.browser.Close()
	err := b.playwright.Stop()
	b.browser = nil
	b.playwright = nil
	b.initialized = false
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
