package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/kgportal-e2e/internal/artifacts"
	"github.com/kuitang/kgportal-e2e/internal/config"
	"github.com/kuitang/kgportal-e2e/internal/errs"
	"github.com/kuitang/kgportal-e2e/internal/logutil"
	"github.com/kuitang/kgportal-e2e/internal/obs"
	"github.com/kuitang/kgportal-e2e/internal/urlutil"
)

const contentPreviewChars = 500

// T is the part of testing.TB the driver reports failures through. FailNow must
// stop the calling goroutine, as testing.T.FailNow does.
type T interface {
	Helper()
	Name() string
	Errorf(format string, args ...any)
	FailNow()
}

// FailureSink receives evidence for failed steps. *artifacts.Store implements it.
type FailureSink interface {
	SaveFailure(ctx context.Context, f artifacts.Failure) ([]string, error)
}

// Driver issues commands for one browser page. It holds no element handles:
// every locator it returns is re-resolved by Playwright on each action.
type Driver struct {
	page   playwright.Page
	cfg    *config.Config
	expect playwright.PageAssertions
	sink   FailureSink
	ctx    context.Context
}

// Option configures a Driver.
type Option func(*Driver)

// WithPageAssertions replaces the web-first assertions used for URL checks.
func WithPageAssertions(pa playwright.PageAssertions) Option {
	return func(d *Driver) { d.expect = pa }
}

// WithFailureSink uploads screenshots and HTML of failed steps.
func WithFailureSink(sink FailureSink) Option {
	return func(d *Driver) { d.sink = sink }
}

// WithContext sets the context used for logging correlation and artifact uploads.
func WithContext(ctx context.Context) Option {
	return func(d *Driver) { d.ctx = ctx }
}

// NewDriver wraps page. cfg is kept by pointer and read at call time.
func NewDriver(page playwright.Page, cfg *config.Config, opts ...Option) *Driver {
	d := &Driver{
		page: page,
		cfg:  cfg,
		ctx:  context.Background(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.expect == nil {
		d.expect = playwright.NewPlaywrightAssertions(cfg.TimeoutMillis()).Page(page)
	}
	return d
}

// Page returns the underlying Playwright page.
func (d *Driver) Page() playwright.Page {
	return d.page
}

// BaseURL returns the configured base URL as of this call.
func (d *Driver) BaseURL() string {
	return d.cfg.BaseURL
}

// ByTestID locates elements by test-id, each id scoped inside the previous one.
func (d *Driver) ByTestID(ids ...string) playwright.Locator {
	return d.page.Locator(TestIDSelector(d.cfg.TestIDAttribute, ids...))
}

// CurrentURL returns the browser's current location.
func (d *Driver) CurrentURL() string {
	return d.page.URL()
}

// Goto navigates to relativeURL resolved against the configured base URL.
func (d *Driver) Goto(t T, relativeURL string) {
	t.Helper()
	target := urlutil.Join(d.BaseURL(), relativeURL)
	d.logger(t, "goto").Debug("browser_goto", "url", target)

	_, err := d.page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		d.fail(t, "goto", errs.Wrap(errs.Unavailable, fmt.Sprintf("navigate to %s", target), err))
	}
}

// AssertURL fails the step unless the current URL equals want exactly. The
// runtime keeps re-reading the URL until it matches or the timeout expires.
func (d *Driver) AssertURL(t T, want string) {
	t.Helper()
	if err := d.expect.ToHaveURL(want); err != nil {
		msg := fmt.Sprintf("expected URL %q, got %q", want, d.page.URL())
		d.fail(t, "assert url", errs.Wrap(errs.URLMismatch, msg, err))
	}
}

// Click clicks the element loc resolves to; what names it in failure messages.
func (d *Driver) Click(t T, loc playwright.Locator, what string) {
	t.Helper()
	d.logger(t, "click").Debug("browser_click", "target", what)
	if err := loc.Click(); err != nil {
		d.fail(t, "click "+what, classify(err, "click "+what))
	}
}

// ClearAndType empties the input, types text key by key and presses Enter.
func (d *Driver) ClearAndType(t T, loc playwright.Locator, text string, what string) {
	t.Helper()
	d.logger(t, "type").Debug("browser_type", "target", what, "text", logutil.TruncateForLog(text, 80))
	if err := loc.Clear(); err != nil {
		d.fail(t, "clear "+what, classify(err, "clear "+what))
		return
	}
	if err := loc.PressSequentially(text); err != nil {
		d.fail(t, "type into "+what, classify(err, "type into "+what))
		return
	}
	if err := loc.Press("Enter"); err != nil {
		d.fail(t, "submit "+what, classify(err, "submit "+what))
	}
}

// InputValue returns the current value of an input element.
func (d *Driver) InputValue(t T, loc playwright.Locator, what string) string {
	t.Helper()
	value, err := loc.InputValue()
	if err != nil {
		d.fail(t, "read "+what, classify(err, "read "+what))
		return ""
	}
	return value
}

func (d *Driver) logger(t T, step string) *slog.Logger {
	return obs.From(obs.WithScenario(d.ctx, t.Name(), step)).With("pkg", "browser")
}

// fail logs the failure, uploads evidence when a sink is configured, and stops
// the step through require.
func (d *Driver) fail(t T, step string, err error) {
	t.Helper()
	log := d.logger(t, step)

	content, _ := d.page.Content()
	log.Error("browser_step_failed",
		"code", errs.CodeOf(err),
		"url", d.page.URL(),
		"error", err.Error(),
		"content_preview", logutil.TruncateForLog(content, contentPreviewChars),
	)

	if d.sink != nil {
		shot, shotErr := d.page.Screenshot(playwright.PageScreenshotOptions{
			FullPage: playwright.Bool(true),
		})
		if shotErr != nil {
			log.Warn("browser_screenshot_failed", "error", shotErr.Error())
		}
		keys, saveErr := d.sink.SaveFailure(d.ctx, artifacts.Failure{
			Scenario:   t.Name(),
			Step:       step,
			URL:        d.page.URL(),
			Err:        err,
			Screenshot: shot,
			HTML:       content,
		})
		if saveErr != nil {
			log.Warn("browser_artifacts_failed", "error", saveErr.Error())
		} else {
			log.Info("browser_artifacts_saved", "keys", keys)
		}
	}

	require.NoError(t, err, step)
}

// classify maps runtime errors to codes: a timed-out action means nothing
// matched the locator in time.
func classify(err error, action string) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return errs.Wrap(errs.ElementNotFound, action+": no matching element", err)
	}
	return errs.Wrap(errs.Internal, action, err)
}
