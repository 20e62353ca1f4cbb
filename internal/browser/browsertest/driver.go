package browsertest

import (
	"time"

	"github.com/kuitang/kgportal-e2e/internal/browser"
	"github.com/kuitang/kgportal-e2e/internal/config"
)

// Config returns a suite configuration pointing at base with the default
// test-id attribute.
func Config(base string) *config.Config {
	return &config.Config{
		BaseURL:         base,
		Browser:         config.DefaultBrowser,
		Headless:        true,
		Timeout:         time.Second,
		TestIDAttribute: config.DefaultTestIDAttribute,
	}
}

// NewDriver wraps page in a browser.Driver whose URL assertions use the fake
// Assertions.
func NewDriver(page *Page, cfg *config.Config, opts ...browser.Option) *browser.Driver {
	opts = append([]browser.Option{browser.WithPageAssertions(NewAssertions(page))}, opts...)
	return browser.NewDriver(page, cfg, opts...)
}
