// Package browser adapts Playwright into the command surface the page objects use:
// locate by test-id, navigate, click, type, and web-first URL assertions.
package browser

import (
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/kgportal-e2e/internal/config"
	"github.com/kuitang/kgportal-e2e/internal/errs"
	"github.com/kuitang/kgportal-e2e/internal/obs"
)

// Runtime owns the Playwright driver process and one launched browser.
type Runtime struct {
	cfg *config.Config

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// Launch starts Playwright and the configured browser. A missing driver or
// browser install is reported as errs.Unavailable so suites can skip.
func Launch(cfg *config.Config) (*Runtime, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "start playwright", err)
	}

	browserType, err := browserTypeFor(pw, cfg.Browser)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		SlowMo:   playwright.Float(float64(cfg.SlowMo.Milliseconds())),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, errs.Wrap(errs.Unavailable, fmt.Sprintf("launch %s", cfg.Browser), err)
	}

	obs.Pkg("browser").Info("browser_launched",
		"browser", cfg.Browser,
		"headless", cfg.Headless,
		"version", browser.Version(),
	)
	return &Runtime{cfg: cfg, pw: pw, browser: browser}, nil
}

func browserTypeFor(pw *playwright.Playwright, name string) (playwright.BrowserType, error) {
	switch name {
	case "chromium", "":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit":
		return pw.WebKit, nil
	default:
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown browser %q", name))
	}
}

// NewPage opens a page in a fresh browser context with the configured timeouts.
// Closing the page's context releases both.
func (r *Runtime) NewPage() (playwright.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil, errs.New(errs.Unavailable, "browser runtime is closed")
	}

	bctx, err := r.browser.NewContext()
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "create browser context", err)
	}
	bctx.SetDefaultTimeout(r.cfg.TimeoutMillis())
	bctx.SetDefaultNavigationTimeout(r.cfg.TimeoutMillis())

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, errs.Wrap(errs.Unavailable, "create page", err)
	}
	return page, nil
}

// Close shuts down the browser and the Playwright driver.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			firstErr = err
		}
		r.browser = nil
	}
	if r.pw != nil {
		if err := r.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.pw = nil
	}
	return firstErr
}
