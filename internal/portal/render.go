package portal

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"sync"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/kgportal-e2e/internal/urlutil"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer manages HTML template rendering with caching and custom functions.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
	mu        sync.RWMutex
}

// NewRenderer parses base.html from fsys and combines it with every other page
// template there.
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcMap:   createFuncMap(),
	}
	if err := r.parseTemplates(fsys); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return r, nil
}

// Render executes the named page template with data.
func (r *Renderer) Render(w http.ResponseWriter, templateName string, data any) error {
	r.mu.RLock()
	tmpl, ok := r.templates[templateName]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template %q not found", templateName)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		return fmt.Errorf("failed to execute template %q: %w", templateName, err)
	}
	return nil
}

// RenderError renders the error page with the given HTTP status code and message.
func (r *Renderer) RenderError(w http.ResponseWriter, code int, message string) {
	r.mu.RLock()
	tmpl, ok := r.templates["error.html"]
	r.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if ok {
		data := map[string]any{
			"Title":        http.StatusText(code),
			"Error":        message,
			"ErrorCode":    code,
			"SearchText":   "",
			"CanonicalURL": "",
		}
		if err := tmpl.ExecuteTemplate(w, "base", data); err == nil {
			return
		}
	}
	fmt.Fprintf(w, "Error %d: %s\n", code, template.HTMLEscapeString(message))
}

func (r *Renderer) parseTemplates(fsys fs.FS) error {
	baseContent, err := fs.ReadFile(fsys, "base.html")
	if err != nil {
		return fmt.Errorf("failed to read base template: %w", err)
	}

	pages, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return err
	}
	for _, name := range pages {
		if name == "base.html" {
			continue
		}
		pageContent, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", name, err)
		}

		tmpl, err := template.New("base").Funcs(r.funcMap).Parse(string(baseContent))
		if err != nil {
			return fmt.Errorf("failed to parse base template for %s: %w", name, err)
		}
		// The page template overrides the content block.
		if tmpl, err = tmpl.Parse(string(pageContent)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		r.mu.Lock()
		r.templates[path.Base(name)] = tmpl
		r.mu.Unlock()
	}

	if len(r.templates) == 0 {
		return fmt.Errorf("no page templates found")
	}
	return nil
}

func createFuncMap() template.FuncMap {
	return template.FuncMap{
		"markdown": renderMarkdown,
		"nodePath": urlutil.NodePath,
		"truncate": truncate,
	}
}

// truncate truncates a string to n characters, adding "..." if truncated.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// renderMarkdown converts markdown to sanitized HTML.
func renderMarkdown(s string) template.HTML {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	doc := parser.NewWithExtensions(extensions).Parse([]byte(s))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})
	htmlContent := markdown.Render(doc, renderer)

	sanitized := bluemonday.UGCPolicy().SanitizeBytes(htmlContent)
	return template.HTML(sanitized)
}
