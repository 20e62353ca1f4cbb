package kg

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/kgportal-e2e/internal/errs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestReadNodesTSV(t *testing.T) {
	input := strings.Join([]string{
		"id\tlabel\taliases\tpos\tdatasource\tother",
		"/c/en/dog\tdog\thound|pup\tn\tconceptnet\t",
		"/c/en/cat\t\"cat\"\t\tn\tconceptnet\t{\"x\": 1}",
		"\tmissing id\t\tn\tconceptnet\t",
		"/c/en/nods\tno datasource\t\tn\t\t",
		"",
		"/c/en/run\trun\t\tv\tconceptnet",
	}, "\n")

	nodes, err := ReadNodesTSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []Node{
		{ID: "/c/en/dog", Label: "dog", Aliases: []string{"hound", "pup"}, Pos: "n", Datasource: "conceptnet"},
		{ID: "/c/en/cat", Label: `"cat"`, Pos: "n", Datasource: "conceptnet", Other: `{"x": 1}`},
		{ID: "/c/en/run", Label: "run", Pos: "v", Datasource: "conceptnet"},
	}, nodes)
}

func TestReadNodesTSV_ColumnOrderFromHeader(t *testing.T) {
	input := "datasource\tid\tlabel\r\nwn\twn:dog.n.01\tdog\r\n"
	nodes, err := ReadNodesTSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []Node{{ID: "wn:dog.n.01", Label: "dog", Datasource: "wn"}}, nodes)
}

func TestReadNodesTSV_BadHeader(t *testing.T) {
	_, err := ReadNodesTSV(strings.NewReader("label\tdatasource\nx\ty\n"))
	require.ErrorContains(t, err, "no id column")

	_, err = ReadNodesTSV(strings.NewReader(""))
	require.ErrorContains(t, err, "empty input")
}

func testTSVRoundTrip(t *rapid.T) {
	field := rapid.StringMatching(`[^\t\r\n|]{0,12}`)
	nodes := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) Node {
		n := Node{
			ID:         "id:" + rapid.StringMatching(`[a-z0-9]{1,8}`).Draw(t, "id"),
			Label:      field.Draw(t, "label"),
			Pos:        rapid.SampledFrom(PartsOfSpeech).Draw(t, "pos"),
			Datasource: "ds",
			Other:      field.Draw(t, "other"),
		}
		for _, a := range rapid.SliceOfN(rapid.StringMatching(`[a-z][a-z ]{0,6}[a-z]`), 0, 3).Draw(t, "aliases") {
			n.Aliases = append(n.Aliases, a)
		}
		return n
	}), 0, 10).Draw(t, "nodes")

	var buf bytes.Buffer
	if err := WriteNodesTSV(&buf, nodes); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadNodesTSV(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(nodes) {
		t.Fatalf("read %d nodes, wrote %d", len(got), len(nodes))
	}
	for i := range nodes {
		want := nodes[i]
		if !slices.Equal(got[i].Aliases, want.Aliases) {
			t.Fatalf("node %d aliases = %q, want %q", i, got[i].Aliases, want.Aliases)
		}
		g := got[i]
		if g.ID != want.ID || g.Label != want.Label || g.Pos != want.Pos || g.Datasource != want.Datasource || g.Other != want.Other {
			t.Fatalf("node %d = %+v, want %+v", i, got[i], want)
		}
	}
}

func TestNodesTSV_RoundTrip(t *testing.T) {
	rapid.Check(t, testTSVRoundTrip)
}

func TestGenerateTestNodes(t *testing.T) {
	nodes := GenerateTestNodes(5, 42)
	require.Len(t, nodes, 5)
	require.Equal(t, "portal_test_data:3", nodes[3].ID)
	require.Equal(t, "Test node 3", nodes[3].Label)
	require.Equal(t, []string{"Node 3", "Node alias 3"}, nodes[3].Aliases)
	require.Equal(t, TestDataSource, nodes[3].Datasource)
	require.Equal(t, `{"index": 3}`, nodes[3].Other)
	for _, n := range nodes {
		require.Contains(t, PartsOfSpeech, n.Pos)
		require.NoError(t, n.Validate())
	}
	require.Equal(t, nodes, GenerateTestNodes(5, 42), "same seed must give same nodes")
}

func TestStore_PutGetCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, GenerateTestNodes(20, 1)...))
	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 20, n)

	got, err := store.Get(ctx, "portal_test_data:7")
	require.NoError(t, err)
	require.Equal(t, GenerateTestNodes(20, 1)[7], got)

	updated := got
	updated.Label = "Renamed"
	require.NoError(t, store.Put(ctx, updated))
	got, err = store.Get(ctx, "portal_test_data:7")
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Label)

	n, err = store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 20, n)
}

func TestStore_GetMissingIsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	require.True(t, errs.Is(err, errs.NotFound), "got %v", err)
}

func TestStore_PutRejectsInvalidNode(t *testing.T) {
	store := newTestStore(t)
	err := store.Put(context.Background(), Node{ID: "x"})
	require.True(t, errs.Is(err, errs.InvalidArgument), "got %v", err)
}

func TestStore_Search(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx,
		Node{ID: "/c/en/food", Label: "food", Datasource: "cn"},
		Node{ID: "/c/en/foo", Label: "foo", Datasource: "cn"},
		Node{ID: "/c/en/bar", Label: "bar", Aliases: []string{"Fool's bar"}, Datasource: "cn"},
		Node{ID: "/c/de/straße", Label: "Straße", Datasource: "cn"},
	))

	ids := func(nodes []Node) []string {
		var out []string
		for _, n := range nodes {
			out = append(out, n.ID)
		}
		return out
	}

	got, err := store.Search(ctx, "FOO", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"/c/en/bar", "/c/en/foo", "/c/en/food"}, ids(got))

	got, err = store.Search(ctx, "foo", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = store.Search(ctx, "STRASSE", 0)
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = store.Search(ctx, "STRAßE", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"/c/de/straße"}, ids(got))

	got, err = store.Search(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, got, 4)
}

func TestStore_SearchDoesNotSpanAliases(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx,
		Node{ID: "/c/en/pipe", Label: "pipe", Aliases: []string{"tube", "conduit"}, Datasource: "cn"},
		Node{ID: "/c/en/or", Label: "a|b", Datasource: "cn"},
	))

	got, err := store.Search(ctx, "tube|con", 0)
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = store.Search(ctx, "CONDUIT", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "/c/en/pipe", got[0].ID)

	got, err = store.Search(ctx, "a|b", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "/c/en/or", got[0].ID)
}
