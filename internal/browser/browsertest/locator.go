package browsertest

import (
	"fmt"
	"net/url"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/kgportal-e2e/internal/logutil"
)

type pwLocator = playwright.Locator

var _ playwright.Locator = (*Locator)(nil)

type step struct {
	selector string
	parts    []part
	nth      int
	isNth    bool
}

// Locator is a fake playwright.Locator. Like the real one it stores a query,
// not elements, and resolves it against the current document on every action.
type Locator struct {
	pwLocator

	page  *Page
	steps []step
	err   error
}

func newLocator(p *Page, steps []step) *Locator {
	return &Locator{page: p, steps: steps}
}

func (l *Locator) with(s step) *Locator {
	steps := make([]step, len(l.steps), len(l.steps)+1)
	copy(steps, l.steps)
	return &Locator{page: l.page, steps: append(steps, s), err: l.err}
}

func (l *Locator) css(selector string) *Locator {
	parts, err := parseSelector(selector)
	next := l.with(step{selector: selector, parts: parts})
	if err != nil && next.err == nil {
		next.err = err
	}
	return next
}

// String renders the query the way Playwright prints locators in errors.
func (l *Locator) String() string {
	parts := make([]string, 0, len(l.steps))
	for _, s := range l.steps {
		if s.isNth {
			parts = append(parts, fmt.Sprintf("nth=%d", s.nth))
		} else {
			parts = append(parts, s.selector)
		}
	}
	return "locator(" + logutil.SelectorForLog(parts...) + ")"
}

func (l *Locator) Locator(selectorOrLocator interface{}, _ ...playwright.LocatorLocatorOptions) playwright.Locator {
	selector, ok := selectorOrLocator.(string)
	if !ok {
		next := l.with(step{selector: fmt.Sprintf("%v", selectorOrLocator)})
		next.err = fmt.Errorf("browsertest: nested locator of type %T is not supported", selectorOrLocator)
		return next
	}
	return l.css(selector)
}

func (l *Locator) Nth(index int) playwright.Locator {
	return l.with(step{nth: index, isNth: true})
}

func (l *Locator) First() playwright.Locator {
	return l.Nth(0)
}

func (l *Locator) Count() (int, error) {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	return len(l.resolveLocked()), nil
}

func (l *Locator) Click(_ ...playwright.LocatorClickOptions) error {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.oneLocked()
	if err != nil {
		return err
	}
	l.page.recordLocked("click %s", l)

	if a := el.closest("a"); a != nil {
		if href, ok := a.Attrs["href"]; ok {
			target, err := l.page.resolveLocked(href)
			if err != nil {
				return err
			}
			return l.page.navigateLocked(target)
		}
	}
	return nil
}

func (l *Locator) Clear(_ ...playwright.LocatorClearOptions) error {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.inputLocked()
	if err != nil {
		return err
	}
	el.Value = ""
	l.page.recordLocked("clear %s", l)
	return nil
}

func (l *Locator) PressSequentially(text string, _ ...playwright.LocatorPressSequentiallyOptions) error {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.inputLocked()
	if err != nil {
		return err
	}
	el.Value += text
	l.page.recordLocked("type %q into %s", text, l)
	return nil
}

// Press supports Enter, which submits the enclosing form with a GET.
func (l *Locator) Press(key string, _ ...playwright.LocatorPressOptions) error {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.inputLocked()
	if err != nil {
		return err
	}
	l.page.recordLocked("press %s on %s", key, l)
	if key != "Enter" {
		return nil
	}
	form := el.closest("form")
	if form == nil {
		return nil
	}

	values := url.Values{}
	form.walk(func(field *Element) {
		if name := field.Attrs["name"]; name != "" && (field.Tag == "input" || field.Tag == "textarea") {
			values.Add(name, field.Value)
		}
	})
	action := form.Attrs["action"]
	if action == "" {
		action = l.page.url
	}
	target, err := l.page.resolveLocked(action)
	if err != nil {
		return err
	}
	u, err := url.Parse(target)
	if err != nil {
		return err
	}
	u.RawQuery = values.Encode()
	return l.page.navigateLocked(u.String())
}

func (l *Locator) InputValue(_ ...playwright.LocatorInputValueOptions) (string, error) {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.inputLocked()
	if err != nil {
		return "", err
	}
	return el.Value, nil
}

func (l *Locator) TextContent(_ ...playwright.LocatorTextContentOptions) (string, error) {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.oneLocked()
	if err != nil {
		return "", err
	}
	return el.TextContent(), nil
}

func (l *Locator) resolveLocked() []*Element {
	scopes := []*Element{l.page.doc}
	for _, s := range l.steps {
		if s.isNth {
			if s.nth < 0 || s.nth >= len(scopes) {
				return nil
			}
			scopes = []*Element{scopes[s.nth]}
			continue
		}
		var next []*Element
		seen := map[*Element]bool{}
		for _, scope := range scopes {
			for _, el := range query(scope, s.parts) {
				if !seen[el] {
					seen[el] = true
					next = append(next, el)
				}
			}
		}
		scopes = next
	}
	return scopes
}

// oneLocked enforces Playwright's strictness: actions need exactly one match.
func (l *Locator) oneLocked() (*Element, error) {
	if l.err != nil {
		return nil, l.err
	}
	matches := l.resolveLocked()
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: waiting for %s", playwright.ErrTimeout, l)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("strict mode violation: %s resolved to %d elements", l, len(matches))
	}
}

func (l *Locator) inputLocked() (*Element, error) {
	el, err := l.oneLocked()
	if err != nil {
		return nil, err
	}
	if el.Tag != "input" && el.Tag != "textarea" {
		return nil, fmt.Errorf("element is not an <input>: %s resolved to <%s>", l, el.Tag)
	}
	return el, nil
}
