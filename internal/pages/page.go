// Package pages holds page objects for the knowledge-graph portal. A page object
// knows its canonical URL and how to locate its parts by test-id; it never holds
// an element handle, so every accessor re-resolves against the live DOM.
package pages

import (
	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/kgportal-e2e/internal/browser"
	"github.com/kuitang/kgportal-e2e/internal/urlutil"
)

// Test-ids the portal exposes.
const (
	TestIDFrame                  = "frame"
	TestIDSearchTextInput        = "searchTextInput"
	TestIDMatchingNodesTable     = "matchingNodesTable"
	TestIDVisualizationContainer = "visualizationContainer"
	TestIDNodeLabel              = "nodeLabel"
)

// Page is a portal screen with a canonical location.
type Page interface {
	// RelativeURL is the path and query the browser shows once the page loads.
	RelativeURL() string
	Driver() *browser.Driver
}

// AbsoluteURL is the configured base URL followed by p's relative URL. The base
// URL is read on every call.
func AbsoluteURL(p Page) string {
	return urlutil.Join(p.Driver().BaseURL(), p.RelativeURL())
}

// AssertLoaded fails the step unless the browser is exactly at AbsoluteURL(p).
func AssertLoaded(t browser.T, p Page) {
	t.Helper()
	p.Driver().AssertURL(t, AbsoluteURL(p))
}

// Visit navigates to p and asserts it loaded, returning p for chaining.
func Visit[P Page](t browser.T, p P) P {
	t.Helper()
	p.Driver().Goto(t, p.RelativeURL())
	AssertLoaded(t, p)
	return p
}

// Base carries what every portal page shares. Embed it in concrete pages.
type Base struct {
	drv   *browser.Driver
	Frame Frame
}

// NewBase binds the shared chrome to drv.
func NewBase(drv *browser.Driver) Base {
	return Base{
		drv:   drv,
		Frame: Frame{Navbar: Navbar{drv: drv}},
	}
}

// Driver returns the driver the page issues commands through.
func (b Base) Driver() *browser.Driver {
	return b.drv
}

// Frame is the chrome around every page.
type Frame struct {
	Navbar Navbar
}

// Navbar is the search bar inside the frame.
type Navbar struct {
	drv *browser.Driver
}

// NodeLabelSearchInput locates the node label search box.
func (n Navbar) NodeLabelSearchInput() playwright.Locator {
	return n.drv.ByTestID(TestIDFrame, TestIDSearchTextInput)
}

// Search replaces the search box contents with text and submits it. The outcome
// is left to the caller to assert.
func (n Navbar) Search(t browser.T, text string) Navbar {
	t.Helper()
	n.drv.ClearAndType(t, n.NodeLabelSearchInput(), text, "node label search input")
	return n
}

// HomePage is the portal landing page.
type HomePage struct {
	Base
}

// NewHomePage returns the landing page bound to drv.
func NewHomePage(drv *browser.Driver) HomePage {
	return HomePage{Base: NewBase(drv)}
}

func (HomePage) RelativeURL() string { return "/" }

// Visit opens the landing page.
func (p HomePage) Visit(t browser.T) HomePage {
	t.Helper()
	return Visit(t, p)
}
