package portal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/kgportal-e2e/internal/config"
	"github.com/kuitang/kgportal-e2e/internal/errs"
	"github.com/kuitang/kgportal-e2e/internal/kg"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	store, err := kg.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Put(context.Background(), kg.GenerateTestNodes(12, 7)...))
	require.NoError(t, store.Put(context.Background(),
		kg.Node{ID: "/c/en/food", Label: "food", Pos: "n", Datasource: "conceptnet", Other: "<script>alert(1)</script>"},
	))

	srv, err := NewServer(store, opts)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func get(t *testing.T, client *http.Client, url string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHome_HasFrameAndSearchInput(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, body := get(t, http.DefaultClient, ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `data-cy="frame"`)
	require.Contains(t, body, `data-cy="searchTextInput"`)
	require.Contains(t, body, `action="/node/search"`)
	require.Contains(t, body, "13 nodes loaded")
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestSearch_RendersMatchingRows(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, body := get(t, http.DefaultClient, ts.URL+"/node/search?text=Test+node+1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Contains(t, body, `data-cy="matchingNodesTable"`)
	require.Contains(t, body, `data-cy="visualizationContainer"`)
	require.Contains(t, body, `value="Test node 1"`)
	// "Test node 1", "Test node 10", "Test node 11"
	require.Equal(t, 3, strings.Count(body, `<a href="/node/portal_test_data:`))
	require.Contains(t, body, `<a href="/node/portal_test_data:10">Test node 10</a>`)
}

func TestSearch_MatchesAliases(t *testing.T) {
	ts := newTestServer(t, Options{})
	_, body := get(t, http.DefaultClient, ts.URL+"/node/search?text=node+alias+4")
	require.Contains(t, body, `href="/node/portal_test_data:4"`)
}

func TestSearch_NoMatches(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, body := get(t, http.DefaultClient, ts.URL+"/node/search?text=zzz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `data-cy="noMatchingNodes"`)
	require.NotContains(t, body, `<a href="/node/`)
	require.Contains(t, body, `<link rel="canonical" href="`+ts.URL+`/node/search?text=zzz">`)
}

func TestSearch_NormalizeRedirect(t *testing.T) {
	ts := newTestServer(t, Options{NormalizeSearchRedirect: true})

	resp, _ := get(t, noRedirectClient(), ts.URL+"/node/search?text=foo")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/node/search?text=foo&normalized=true", resp.Header.Get("Location"))

	resp, body := get(t, noRedirectClient(), ts.URL+"/node/search?text=foo&normalized=true")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `href="/node/%2Fc%2Fen%2Ffood"`)
}

func TestNode_RendersSanitizedDescription(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := get(t, http.DefaultClient, ts.URL+"/node/%2Fc%2Fen%2Ffood")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `<h1 data-cy="nodeLabel">food</h1>`)
	require.Contains(t, body, `data-cy="visualizationContainer"`)
	require.Contains(t, body, "<strong>Datasource:</strong> conceptnet")
	require.NotContains(t, body, "<script>alert(1)</script>")

	resp, body = get(t, http.DefaultClient, ts.URL+"/node/portal_test_data:3")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Test node 3")
	require.Contains(t, body, "<li>Node alias 3</li>")
}

func TestNode_MissingIsNotFound(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, body := get(t, http.DefaultClient, ts.URL+"/node/nope")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, body, `node &#34;nope&#34; not found`)

	resp, _ = get(t, http.DefaultClient, ts.URL+"/elsewhere")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, body := get(t, http.DefaultClient, ts.URL+"/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Equal(t, "ok", got["status"])
	require.Equal(t, float64(13), got["nodes"])
}

func TestDescribe(t *testing.T) {
	md := Describe(kg.Node{ID: "x:1", Label: "x", Pos: "v", Datasource: "ds", Aliases: []string{"a", "b"}})
	require.Contains(t, md, "**Part of speech:** v")
	require.Contains(t, md, "- a\n- b\n")
	require.NotContains(t, md, "```")
}

func TestLoadNodes(t *testing.T) {
	ctx := context.Background()

	t.Run("generated", func(t *testing.T) {
		store, err := kg.OpenInMemory()
		require.NoError(t, err)
		defer store.Close()

		n, err := LoadNodes(ctx, store, &config.Config{FixtureNodeCount: 25, FixtureSeed: 3})
		require.NoError(t, err)
		require.Equal(t, 25, n)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nodes.tsv")
		require.NoError(t, os.WriteFile(path, []byte("id\tlabel\taliases\tpos\tdatasource\tother\n/c/en/a\ta\t\tn\tcn\t\n"), 0o600))

		store, err := kg.OpenInMemory()
		require.NoError(t, err)
		defer store.Close()

		n, err := LoadNodes(ctx, store, &config.Config{NodesFile: path})
		require.NoError(t, err)
		require.Equal(t, 1, n)
		node, err := store.Get(ctx, "/c/en/a")
		require.NoError(t, err)
		require.Equal(t, "a", node.Label)
	})

	t.Run("missing file", func(t *testing.T) {
		store, err := kg.OpenInMemory()
		require.NoError(t, err)
		defer store.Close()

		_, err = LoadNodes(ctx, store, &config.Config{NodesFile: filepath.Join(t.TempDir(), "absent.tsv")})
		require.True(t, errs.Is(err, errs.InvalidArgument), "got %v", err)
	})
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "", truncate("abc", 0))
	require.Equal(t, "abc", truncate("abc", 3))
	require.Equal(t, "ab", truncate("abcdef", 2))
	require.Equal(t, "héllo...", truncate("héllo world", 8))
}
