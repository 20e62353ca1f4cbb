package pages

import (
	"strconv"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/kgportal-e2e/internal/browser"
)

// NodeSearchResultsPage lists the nodes whose label matches a search.
type NodeSearchResultsPage struct {
	Base
	search string

	NodeResultsTable NodeResultsTable
}

// NewNodeSearchResultsPage returns the results page for search.
func NewNodeSearchResultsPage(drv *browser.Driver, search string) NodeSearchResultsPage {
	return NodeSearchResultsPage{
		Base:             NewBase(drv),
		search:           search,
		NodeResultsTable: NodeResultsTable{drv: drv},
	}
}

// Search returns the search text the page was built for.
func (p NodeSearchResultsPage) Search() string {
	return p.search
}

// RelativeURL puts the search text into the query as given. Callers searching
// for text with reserved URL characters must encode it first.
func (p NodeSearchResultsPage) RelativeURL() string {
	return "/node/search?text=" + p.search
}

// VisualizationContainer locates the graph visualization.
func (p NodeSearchResultsPage) VisualizationContainer() playwright.Locator {
	return p.drv.ByTestID(TestIDVisualizationContainer)
}

// Visit opens the results page and asserts the browser landed on it exactly.
func (p NodeSearchResultsPage) Visit(t browser.T) NodeSearchResultsPage {
	t.Helper()
	return Visit(t, p)
}

// AssertLoaded asserts the browser is on this results page.
func (p NodeSearchResultsPage) AssertLoaded(t browser.T) NodeSearchResultsPage {
	t.Helper()
	AssertLoaded(t, p)
	return p
}

// NodeResultsTable is the table of matching nodes.
type NodeResultsTable struct {
	drv *browser.Driver
}

// Get locates the table container. Row queries are scoped to it.
func (tbl NodeResultsTable) Get() playwright.Locator {
	return tbl.drv.ByTestID(TestIDMatchingNodesTable)
}

// Row returns the row at index without querying the page. An index past the
// last row only fails once the row is acted on.
func (tbl NodeResultsTable) Row(index int) NodeResultsTableRow {
	return NodeResultsTableRow{
		table:    tbl,
		index:    index,
		NodeLink: NodeLink{table: tbl, index: index},
	}
}

// NodeResultsTableRow is one body row of the results table.
type NodeResultsTableRow struct {
	table NodeResultsTable
	index int

	NodeLink NodeLink
}

// Index returns the 0-based row position.
func (r NodeResultsTableRow) Index() int {
	return r.index
}

// Get locates the row.
func (r NodeResultsTableRow) Get() playwright.Locator {
	return rowLocator(r.table, r.index)
}

func rowLocator(tbl NodeResultsTable, index int) playwright.Locator {
	return tbl.Get().Locator("tbody>tr").Nth(index)
}

// NodeLink is the anchor to the node's detail page inside a row.
type NodeLink struct {
	table NodeResultsTable
	index int
}

// Get locates the first anchor in the row.
func (l NodeLink) Get() playwright.Locator {
	return rowLocator(l.table, l.index).Locator("a").First()
}

// Click follows the link. The step fails when the row has no anchor.
func (l NodeLink) Click(t browser.T) {
	t.Helper()
	l.table.drv.Click(t, l.Get(), "node link in row "+strconv.Itoa(l.index))
}
