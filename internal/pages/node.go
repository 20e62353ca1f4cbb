package pages

import (
	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/kgportal-e2e/internal/browser"
	"github.com/kuitang/kgportal-e2e/internal/urlutil"
)

// NodePage shows one node.
type NodePage struct {
	Base
	id string
}

// NewNodePage returns the detail page for the node with id.
func NewNodePage(drv *browser.Driver, id string) NodePage {
	return NodePage{Base: NewBase(drv), id: id}
}

// ID returns the node id the page was built for.
func (p NodePage) ID() string { return p.id }

// RelativeURL is "/node/" followed by the path-escaped id.
func (p NodePage) RelativeURL() string {
	return urlutil.NodePath(p.id)
}

// Heading locates the node label.
func (p NodePage) Heading() playwright.Locator {
	return p.drv.ByTestID(TestIDNodeLabel)
}

// VisualizationContainer locates the graph visualization.
func (p NodePage) VisualizationContainer() playwright.Locator {
	return p.drv.ByTestID(TestIDVisualizationContainer)
}

// Visit navigates to the node page and asserts it loaded.
func (p NodePage) Visit(t browser.T) NodePage {
	t.Helper()
	return Visit(t, p)
}

// AssertLoaded fails t unless the browser is on this node page.
func (p NodePage) AssertLoaded(t browser.T) NodePage {
	t.Helper()
	AssertLoaded(t, p)
	return p
}
