package pages_test

import (
	"net/url"
	"strings"

	"github.com/kuitang/kgportal-e2e/internal/browser/browsertest"
	"github.com/kuitang/kgportal-e2e/internal/urlutil"
)

const base = "http://portal.test"

type fixtureNode struct {
	id    string // empty renders a row without a link
	label string
}

var e = browsertest.E

// newPortal serves a minimal copy of the portal DOM for nodes.
func newPortal(nodes ...fixtureNode) *browsertest.Page {
	page := browsertest.NewPage()

	page.Serve(base+"/", func(*url.URL) *browsertest.Element {
		return frame("")
	})

	page.Serve(base+"/node/search", func(u *url.URL) *browsertest.Element {
		text := u.Query().Get("text")
		body := e("tbody")
		for _, n := range nodes {
			if !strings.Contains(strings.ToLower(n.label), strings.ToLower(text)) {
				continue
			}
			cell := e("td")
			if n.id != "" {
				cell.Append(e("a", "href", urlutil.NodePath(n.id)).WithText(n.label))
			} else {
				cell.WithText(n.label)
			}
			body.Append(e("tr").Append(cell, e("td").WithText(n.id)))
		}
		recent := e("table", "data-cy", "recentNodesTable").Append(
			e("tbody").Append(e("tr").Append(e("td").Append(e("a", "href", "/node/recent").WithText("Recent")))),
		)
		return e("main").Append(
			frame(text),
			recent,
			e("table", "data-cy", "matchingNodesTable").Append(
				e("thead").Append(e("tr").Append(e("th").WithText("Label"))),
				body,
			),
			e("div", "data-cy", "visualizationContainer"),
		)
	})

	for _, n := range nodes {
		if n.id == "" {
			continue
		}
		page.Serve(base+urlutil.NodePath(n.id), func(*url.URL) *browsertest.Element {
			return e("main").Append(
				frame(""),
				e("h1", "data-cy", "nodeLabel").WithText(n.label),
				e("div", "data-cy", "visualizationContainer"),
			)
		})
	}
	return page
}

func frame(text string) *browsertest.Element {
	return e("div", "data-cy", "frame").Append(
		e("nav").Append(
			e("form", "action", "/node/search", "method", "get").Append(
				e("input", "data-cy", "searchTextInput", "name", "text", "value", text),
			),
		),
	)
}

func sampleNodes() []fixtureNode {
	return []fixtureNode{
		{id: "portal_test_data:0", label: "Test node 0"},
		{id: "portal_test_data:1", label: "Test node 1"},
		{id: "/c/en/foo", label: "foo"},
		{id: "/c/en/food", label: "food"},
		{id: "", label: "foo without link"},
	}
}
