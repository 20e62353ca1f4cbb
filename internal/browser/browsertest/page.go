package browsertest

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Handler renders the document for a requested URL.
type Handler func(u *url.URL) *Element

// Page is a fake playwright.Page. Only the methods the driver calls are
// implemented; anything else panics on the nil embedded interface.
type Page struct {
	playwright.Page

	mu        sync.Mutex
	url       string
	doc       *Element
	handlers  map[string]Handler
	redirects map[string]string
	visited   []string
	actions   []string
}

// NewPage returns a blank page at about:blank.
func NewPage() *Page {
	return &Page{
		url:       "about:blank",
		doc:       Document(),
		handlers:  map[string]Handler{},
		redirects: map[string]string{},
	}
}

// Serve registers h for every URL whose origin and path equal pattern.
func (p *Page) Serve(pattern string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[routeKey(pattern)] = h
}

// Redirect makes navigation to the exact URL from land on to instead.
func (p *Page) Redirect(from, to string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirects[from] = to
}

// Visited lists every URL navigated to, after redirects.
func (p *Page) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visited...)
}

// Actions lists the element interactions performed, in order.
func (p *Page) Actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

func (p *Page) Goto(target string, _ ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return nil, p.navigateLocked(target)
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var b strings.Builder
	b.WriteString("<html><body>")
	p.doc.render(&b)
	b.WriteString("</body></html>")
	return b.String(), nil
}

func (p *Page) Screenshot(_ ...playwright.PageScreenshotOptions) ([]byte, error) {
	return []byte("\x89PNG fake screenshot"), nil
}

func (p *Page) Locator(selector string, _ ...playwright.PageLocatorOptions) playwright.Locator {
	return newLocator(p, nil).css(selector)
}

func (p *Page) navigateLocked(target string) error {
	for hops := 0; ; hops++ {
		next, ok := p.redirects[target]
		if !ok {
			break
		}
		if hops > 10 {
			return fmt.Errorf("net::ERR_TOO_MANY_REDIRECTS at %s", target)
		}
		target = next
	}

	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", target, err)
	}
	h, ok := p.handlers[routeKey(target)]
	if !ok {
		return fmt.Errorf("net::ERR_CONNECTION_REFUSED at %s", target)
	}
	p.url = target
	p.doc = Document(h(u))
	p.visited = append(p.visited, target)
	return nil
}

func (p *Page) recordLocked(format string, args ...any) {
	p.actions = append(p.actions, fmt.Sprintf(format, args...))
}

func (p *Page) resolveLocked(ref string) (string, error) {
	base, err := url.Parse(p.url)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(rel).String(), nil
}

func routeKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Scheme + "://" + u.Host + u.EscapedPath()
}

// Assertions is a fake playwright.PageAssertions that checks the page's URL
// once, without retrying.
type Assertions struct {
	playwright.PageAssertions
	page *Page
}

// NewAssertions returns assertions bound to page.
func NewAssertions(page *Page) *Assertions {
	return &Assertions{page: page}
}

func (a *Assertions) ToHaveURL(urlOrRegExp interface{}, _ ...playwright.PageAssertionsToHaveURLOptions) error {
	want, ok := urlOrRegExp.(string)
	if !ok {
		return fmt.Errorf("browsertest: ToHaveURL supports strings only, got %T", urlOrRegExp)
	}
	if got := a.page.URL(); got != want {
		return fmt.Errorf("%w: page URL expected to be %q, actual %q", playwright.ErrTimeout, want, got)
	}
	return nil
}
