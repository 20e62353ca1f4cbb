package browser_test

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/kgportal-e2e/internal/artifacts"
	"github.com/kuitang/kgportal-e2e/internal/browser"
	"github.com/kuitang/kgportal-e2e/internal/browser/browsertest"
	"github.com/kuitang/kgportal-e2e/internal/obs"
)

const base = "http://portal.test"

func newFixture() *browsertest.Page {
	page := browsertest.NewPage()
	page.Serve(base+"/", func(*url.URL) *browsertest.Element {
		return browsertest.E("div", "data-cy", "frame").Append(
			browsertest.E("form", "action", "/echo").Append(
				browsertest.E("input", "data-cy", "searchTextInput", "name", "q", "value", "old"),
			),
			browsertest.E("a", "href", "/echo?from=link", "data-cy", "link").WithText("go"),
			browsertest.E("span", "data-cy", "dup"),
			browsertest.E("span", "data-cy", "dup"),
		)
	})
	page.Serve(base+"/echo", func(u *url.URL) *browsertest.Element {
		return browsertest.E("p", "data-cy", "echo").WithText(u.RawQuery)
	})
	return page
}

func TestDriver_GotoJoinsBaseURL(t *testing.T) {
	page := newFixture()
	drv := browsertest.NewDriver(page, browsertest.Config(base))

	ft := browsertest.Run("goto", func(t *browsertest.T) {
		drv.Goto(t, "/")
		drv.AssertURL(t, base+"/")
	})
	require.False(t, ft.Failed(), ft.Errors())
	require.Equal(t, []string{base + "/"}, page.Visited())
	require.Equal(t, base+"/", drv.CurrentURL())
}

func TestDriver_BaseURLReadAtCallTime(t *testing.T) {
	cfg := browsertest.Config("http://one.test")
	drv := browsertest.NewDriver(browsertest.NewPage(), cfg)
	require.Equal(t, "http://one.test", drv.BaseURL())
	cfg.BaseURL = "http://two.test"
	require.Equal(t, "http://two.test", drv.BaseURL())
}

func TestDriver_GotoUnreachableFails(t *testing.T) {
	drv := browsertest.NewDriver(newFixture(), browsertest.Config(base))

	reached := false
	ft := browsertest.Run("goto missing", func(t *browsertest.T) {
		drv.Goto(t, "/nowhere")
		reached = true
	})
	require.True(t, ft.Failed())
	require.False(t, reached, "FailNow must stop the step")
	require.Contains(t, strings.Join(ft.Errors(), "\n"), "navigate to "+base+"/nowhere")
}

func TestDriver_AssertURLMismatchFails(t *testing.T) {
	drv := browsertest.NewDriver(newFixture(), browsertest.Config(base))

	ft := browsertest.Run("assert", func(t *browsertest.T) {
		drv.Goto(t, "/")
		drv.AssertURL(t, base+"/other")
	})
	require.True(t, ft.Failed())
	require.Contains(t, strings.Join(ft.Errors(), "\n"), `expected URL "`+base+`/other"`)
}

func TestDriver_ClickFollowsLink(t *testing.T) {
	page := newFixture()
	drv := browsertest.NewDriver(page, browsertest.Config(base))

	ft := browsertest.Run("click", func(t *browsertest.T) {
		drv.Goto(t, "/")
		drv.Click(t, drv.ByTestID("link"), "link")
		drv.AssertURL(t, base+"/echo?from=link")
	})
	require.False(t, ft.Failed(), ft.Errors())
}

func TestDriver_ClickMissingElementFails(t *testing.T) {
	drv := browsertest.NewDriver(newFixture(), browsertest.Config(base))

	ft := browsertest.Run("click missing", func(t *browsertest.T) {
		drv.Goto(t, "/")
		drv.Click(t, drv.ByTestID("frame", "absent"), "absent")
	})
	require.True(t, ft.Failed())
	require.Contains(t, strings.Join(ft.Errors(), "\n"), "no matching element")
}

func TestDriver_ClickAmbiguousElementFails(t *testing.T) {
	drv := browsertest.NewDriver(newFixture(), browsertest.Config(base))

	ft := browsertest.Run("click dup", func(t *browsertest.T) {
		drv.Goto(t, "/")
		drv.Click(t, drv.ByTestID("dup"), "dup")
	})
	require.True(t, ft.Failed())
	require.Contains(t, strings.Join(ft.Errors(), "\n"), "strict mode violation")
}

func TestDriver_ClearAndTypeReplacesValueAndSubmits(t *testing.T) {
	page := newFixture()
	drv := browsertest.NewDriver(page, browsertest.Config(base))

	ft := browsertest.Run("type", func(t *browsertest.T) {
		drv.Goto(t, "/")
		input := drv.ByTestID("frame", "searchTextInput")
		require.Equal(t, "old", drv.InputValue(t, input, "search input"))
		drv.ClearAndType(t, input, "bar", "search input")
		drv.AssertURL(t, base+"/echo?q=bar")
	})
	require.False(t, ft.Failed(), ft.Errors())
	require.Equal(t, []string{
		`clear locator([data-cy="frame"] [data-cy="searchTextInput"])`,
		`type "bar" into locator([data-cy="frame"] [data-cy="searchTextInput"])`,
		`press Enter on locator([data-cy="frame"] [data-cy="searchTextInput"])`,
	}, page.Actions())
}

func TestDriver_FailureUploadsArtifactsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	restore := obs.SetOutputForTests(&buf)
	defer restore()

	store := artifacts.TestStore(t, "e2e-artifacts")
	drv := browsertest.NewDriver(newFixture(), browsertest.Config(base), browser.WithFailureSink(store))

	ft := browsertest.Run("TestUpload", func(t *browsertest.T) {
		drv.Goto(t, "/")
		drv.AssertURL(t, base+"/elsewhere")
	})
	require.True(t, ft.Failed())

	keys, err := store.List(context.Background(), store.Prefix("TestUpload"))
	require.NoError(t, err)
	require.Len(t, keys, 3)

	html, err := store.Get(context.Background(), store.Prefix("TestUpload")+"assert-url.html")
	require.NoError(t, err)
	require.Contains(t, string(html), `data-cy="searchTextInput"`)

	logs := buf.String()
	require.Contains(t, logs, `"msg":"browser_step_failed"`)
	require.Contains(t, logs, `"code":"url_mismatch"`)
	require.Contains(t, logs, `"scenario_id":"TestUpload"`)
}
