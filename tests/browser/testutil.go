// Package browser provides shared test utilities for Playwright browser tests.
// All browser test files use BrowserTestEnv via SetupBrowserTestEnv(t).
package browser

import (
	"context"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/kuitang/kgportal-e2e/internal/artifacts"
	e2ebrowser "github.com/kuitang/kgportal-e2e/internal/browser"
	"github.com/kuitang/kgportal-e2e/internal/config"
	"github.com/kuitang/kgportal-e2e/internal/errs"
	"github.com/kuitang/kgportal-e2e/internal/kg"
	"github.com/kuitang/kgportal-e2e/internal/obs"
	"github.com/kuitang/kgportal-e2e/internal/portal"
)

const (
	// Always use these timeout constants for browser tests. Never introduce a
	// larger timeout value anywhere in tests/browser.
	browserMaxTimeout = 5 * time.Second

	// Used where a step is expected to fail, so the suite does not sit out
	// the full timeout.
	browserFailFastTimeout = 1 * time.Second

	browserTestNodeCount = 50
)

var browserFixtureMu sync.Mutex
var browserSharedFixture *BrowserTestEnv

// BrowserTestEnv is the shared environment for browser tests: one fixture portal
// serving exact URLs, one redirecting searches to the normalized URL, and one
// launched browser.
type BrowserTestEnv struct {
	Server         *httptest.Server
	RedirectServer *httptest.Server
	BaseURL        string
	RedirectURL    string
	Store          *kg.Store
	Config         *config.Config
	Artifacts      *artifacts.Store

	runtime   *e2ebrowser.Runtime
	browserMu sync.Mutex
}

// SetupBrowserTestEnv returns the shared environment, creating it on first use.
// Browser tests are skipped in -short mode.
func SetupBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	if browserSharedFixture == nil {
		browserSharedFixture = createBrowserTestEnv(t)
	}
	return browserSharedFixture
}

func createBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()

	cfg := config.FromEnv()
	cfg.Timeout = browserMaxTimeout
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid browser test configuration: %v", err)
	}

	store, err := kg.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open node store: %v", err)
	}
	ctx := context.Background()
	if err := store.Put(ctx, kg.GenerateTestNodes(browserTestNodeCount, 1)...); err != nil {
		t.Fatalf("failed to seed test nodes: %v", err)
	}
	if err := store.Put(ctx,
		kg.Node{ID: "/c/en/foo", Label: "foo", Pos: "n", Datasource: "conceptnet"},
		kg.Node{ID: "/c/en/food", Label: "food", Pos: "n", Datasource: "conceptnet", Aliases: []string{"nourishment"}},
	); err != nil {
		t.Fatalf("failed to seed conceptnet nodes: %v", err)
	}

	exact, err := portal.NewServer(store, portal.Options{})
	if err != nil {
		t.Fatalf("failed to create portal: %v", err)
	}
	redirecting, err := portal.NewServer(store, portal.Options{NormalizeSearchRedirect: true})
	if err != nil {
		t.Fatalf("failed to create redirecting portal: %v", err)
	}

	env := &BrowserTestEnv{
		Server:         httptest.NewServer(exact.Handler()),
		RedirectServer: httptest.NewServer(redirecting.Handler()),
		Store:          store,
		Config:         cfg,
	}
	env.BaseURL = env.Server.URL
	env.RedirectURL = env.RedirectServer.URL

	if cfg.ArtifactsEnabled() {
		env.Artifacts, err = artifacts.New(ctx, artifacts.Config{
			Endpoint:        cfg.Artifacts.Endpoint,
			Region:          cfg.Artifacts.Region,
			AccessKeyID:     cfg.Artifacts.AccessKeyID,
			SecretAccessKey: cfg.Artifacts.SecretAccessKey,
			BucketName:      cfg.Artifacts.Bucket,
			UsePathStyle:    cfg.Artifacts.UsePathStyle,
		})
		if err != nil {
			t.Fatalf("failed to create artifact store: %v", err)
		}
		obs.Pkg("browser_test").Info("artifacts_enabled", "bucket", env.Artifacts.BucketName(), "run_id", env.Artifacts.RunID())
	}
	return env
}

func cleanupSharedBrowserTestEnv() {
	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	env := browserSharedFixture
	if env == nil {
		return
	}
	browserSharedFixture = nil

	env.browserMu.Lock()
	if env.runtime != nil {
		_ = env.runtime.Close()
		env.runtime = nil
	}
	env.browserMu.Unlock()

	env.Server.Close()
	env.RedirectServer.Close()
	_ = env.Store.Close()
}

func TestMain(m *testing.M) {
	code := m.Run()
	cleanupSharedBrowserTestEnv()
	os.Exit(code)
}

// InitBrowser launches the configured browser once, skipping the test when
// Playwright or the browser is not installed.
func (env *BrowserTestEnv) InitBrowser(t *testing.T) {
	t.Helper()

	env.browserMu.Lock()
	defer env.browserMu.Unlock()

	if env.runtime != nil {
		return
	}
	rt, err := e2ebrowser.Launch(env.Config)
	if err != nil {
		if errs.Is(err, errs.Unavailable) {
			t.Skip("Playwright not available:", err)
		}
		t.Fatalf("could not launch browser: %v", err)
	}
	env.runtime = rt
}

// NewDriver opens a fresh page whose base URL is baseURL. The page's context is
// closed when the test ends.
func (env *BrowserTestEnv) NewDriver(t *testing.T, baseURL string) *e2ebrowser.Driver {
	t.Helper()
	return env.newDriver(t, baseURL, env.Config.Timeout)
}

// NewFailFastDriver is NewDriver with a short assertion timeout, for steps that
// are expected to fail.
func (env *BrowserTestEnv) NewFailFastDriver(t *testing.T, baseURL string) *e2ebrowser.Driver {
	t.Helper()
	return env.newDriver(t, baseURL, browserFailFastTimeout)
}

func (env *BrowserTestEnv) newDriver(t *testing.T, baseURL string, timeout time.Duration) *e2ebrowser.Driver {
	t.Helper()

	page, err := env.runtime.NewPage()
	if err != nil {
		t.Fatalf("could not create page: %v", err)
	}
	t.Cleanup(func() { _ = page.Context().Close() })

	cfg := *env.Config
	cfg.BaseURL = baseURL
	cfg.Timeout = timeout
	page.SetDefaultTimeout(cfg.TimeoutMillis())

	opts := []e2ebrowser.Option{e2ebrowser.WithContext(obs.WithScenario(context.Background(), t.Name(), ""))}
	if env.Artifacts != nil {
		opts = append(opts, e2ebrowser.WithFailureSink(env.Artifacts))
	}
	return e2ebrowser.NewDriver(page, &cfg, opts...)
}
