// Package browsertest provides in-process stand-ins for the Playwright page,
// locator and assertion interfaces, backed by a tiny DOM and CSS matcher. They
// let page objects be exercised without launching a browser.
package browsertest

import (
	"fmt"
	"html"
	"strings"
)

// Element is a node in the fake DOM.
type Element struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Value    string
	Children []*Element
	parent   *Element
}

// E builds an element from a tag and attribute name/value pairs.
func E(tag string, attrs ...string) *Element {
	if len(attrs)%2 != 0 {
		panic(fmt.Sprintf("browsertest: odd attribute list for <%s>", tag))
	}
	el := &Element{Tag: tag, Attrs: map[string]string{}}
	for i := 0; i < len(attrs); i += 2 {
		el.Attrs[attrs[i]] = attrs[i+1]
	}
	el.Value = el.Attrs["value"]
	return el
}

// Append adds children and returns e for chaining.
func (e *Element) Append(children ...*Element) *Element {
	for _, c := range children {
		c.parent = e
		e.Children = append(e.Children, c)
	}
	return e
}

// WithText sets the element's own text and returns e.
func (e *Element) WithText(text string) *Element {
	e.Text = text
	return e
}

// TextContent returns the concatenated text of e and its descendants.
func (e *Element) TextContent() string {
	var b strings.Builder
	e.walk(func(el *Element) { b.WriteString(el.Text) })
	return b.String()
}

func (e *Element) walk(fn func(*Element)) {
	fn(e)
	for _, c := range e.Children {
		c.walk(fn)
	}
}

func (e *Element) closest(tag string) *Element {
	for el := e; el != nil; el = el.parent {
		if el.Tag == tag {
			return el
		}
	}
	return nil
}

func (e *Element) render(b *strings.Builder) {
	if e.Tag == "" {
		for _, c := range e.Children {
			c.render(b)
		}
		return
	}
	b.WriteString("<" + e.Tag)
	for k, v := range e.Attrs {
		b.WriteString(" " + k + `="` + html.EscapeString(v) + `"`)
	}
	b.WriteString(">")
	b.WriteString(html.EscapeString(e.Text))
	for _, c := range e.Children {
		c.render(b)
	}
	b.WriteString("</" + e.Tag + ">")
}

// Document wraps top-level elements in an anonymous root.
func Document(children ...*Element) *Element {
	return (&Element{Attrs: map[string]string{}}).Append(children...)
}

// compound is one simple selector: optional tag plus exact attribute matches.
type compound struct {
	tag   string
	attrs map[string]string
}

// part pairs a compound with the combinator linking it to the previous part.
type part struct {
	child bool // '>' rather than descendant
	sel   compound
}

// parseSelector understands the subset the page objects emit: tag names,
// [attr="value"] / [attr=value], the descendant combinator and '>'.
func parseSelector(s string) ([]part, error) {
	var parts []part
	child := false
	i := 0
	for i < len(s) {
		switch s[i] {
		case ' ':
			i++
			continue
		case '>':
			child = true
			i++
			continue
		}
		var c compound
		c.attrs = map[string]string{}
		start := i
		for i < len(s) && isIdent(s[i]) {
			i++
		}
		c.tag = s[start:i]
		for i < len(s) && s[i] == '[' {
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("browsertest: unterminated attribute in %q", s)
			}
			body := s[i+1 : i+end]
			eq := strings.IndexByte(body, '=')
			if eq < 0 {
				return nil, fmt.Errorf("browsertest: attribute without value in %q", s)
			}
			val := body[eq+1:]
			if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
				val = strings.ReplaceAll(strings.ReplaceAll(val[1:len(val)-1], `\"`, `"`), `\\`, `\`)
			}
			c.attrs[body[:eq]] = val
			i += end + 1
		}
		if c.tag == "" && len(c.attrs) == 0 {
			return nil, fmt.Errorf("browsertest: unsupported selector %q", s)
		}
		parts = append(parts, part{child: child, sel: c})
		child = false
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("browsertest: empty selector")
	}
	return parts, nil
}

func isIdent(ch byte) bool {
	return ch == '-' || ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func (c compound) matches(e *Element) bool {
	if e.Tag == "" {
		return false
	}
	if c.tag != "" && c.tag != e.Tag {
		return false
	}
	for k, v := range c.attrs {
		if got, ok := e.Attrs[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// matchesChain checks parts right to left, walking ancestors below scope.
func matchesChain(e *Element, parts []part, scope *Element) bool {
	last := parts[len(parts)-1]
	if !last.sel.matches(e) {
		return false
	}
	if len(parts) == 1 {
		return true
	}
	rest := parts[:len(parts)-1]
	for anc := e.parent; anc != nil && anc != scope; anc = anc.parent {
		if matchesChain(anc, rest, scope) {
			return true
		}
		if last.child {
			return false
		}
	}
	return false
}

// query returns descendants of scope matching parts, in document order.
func query(scope *Element, parts []part) []*Element {
	var out []*Element
	for _, c := range scope.Children {
		c.walk(func(el *Element) {
			if matchesChain(el, parts, scope) {
				out = append(out, el)
			}
		})
	}
	return out
}
