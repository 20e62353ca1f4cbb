// Package portal is a small stand-in for the knowledge-graph portal. It serves
// the search and node pages with the same test-ids and URLs as the real
// application so the page objects can be run end to end against it.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/kuitang/kgportal-e2e/internal/config"
	"github.com/kuitang/kgportal-e2e/internal/errs"
	"github.com/kuitang/kgportal-e2e/internal/kg"
	"github.com/kuitang/kgportal-e2e/internal/obs"
	"github.com/kuitang/kgportal-e2e/internal/urlutil"
)

// Options tunes portal behavior.
type Options struct {
	// NormalizeSearchRedirect redirects every search to the same URL with
	// normalized=true appended.
	NormalizeSearchRedirect bool
	SearchLimit             int
}

// Server renders portal pages from a node store.
type Server struct {
	store    *kg.Store
	renderer *Renderer
	opts     Options
}

// NewServer creates a server over store using the embedded templates.
func NewServer(store *kg.Store, opts Options) (*Server, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	renderer, err := NewRenderer(sub)
	if err != nil {
		return nil, err
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = kg.DefaultSearchLimit
	}
	return &Server{store: store, renderer: renderer, opts: opts}, nil
}

// Handler returns the routed handler with request-id and access-log middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /node/search", s.handleSearch)
	mux.HandleFunc("GET /node/{id...}", s.handleNode)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.renderErr(w, r, errs.New(errs.NotFound, "page not found: "+r.URL.Path))
	})
	return obs.RequestContextMiddleware(obs.AccessLogMiddleware("portal", mux))
}

type pageData struct {
	Title        string
	CanonicalURL string
	SearchText   string
	NodeCount    int
	Nodes        []kg.Node
	Node         kg.Node
	// Description is markdown; the template sanitizes it on render.
	Description string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		s.renderErr(w, r, err)
		return
	}
	s.render(w, r, "home.html", pageData{Title: "Home", NodeCount: count})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if s.opts.NormalizeSearchRedirect && query.Get("normalized") != "true" {
		http.Redirect(w, r, urlutil.AppendRawQuery(r.URL, "normalized", "true"), http.StatusFound)
		return
	}

	text := query.Get("text")
	nodes, err := s.store.Search(r.Context(), text, s.opts.SearchLimit)
	if err != nil {
		s.renderErr(w, r, err)
		return
	}
	obs.From(r.Context()).Debug("portal_search", "text", text, "matches", len(nodes))
	s.render(w, r, "search.html", pageData{
		Title:      "Search",
		SearchText: text,
		Nodes:      nodes,
	})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if strings.TrimSpace(id) == "" {
		s.renderErr(w, r, errs.New(errs.InvalidArgument, "missing node id"))
		return
	}
	node, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.renderErr(w, r, err)
		return
	}
	s.render(w, r, "node.html", pageData{
		Title:       node.DisplayLabel(),
		Node:        node,
		Description: Describe(node),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	status := http.StatusOK
	body := map[string]any{"status": "ok", "nodes": count}
	if err != nil {
		status = http.StatusServiceUnavailable
		body = map[string]any{"status": "unavailable", "error": err.Error()}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	data.CanonicalURL = urlutil.OriginFromRequest(r, "") + r.URL.RequestURI()
	if err := s.renderer.Render(w, name, data); err != nil {
		obs.From(r.Context()).Error("portal_render_failed", "template", name, "error", err.Error())
		s.renderer.RenderError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) renderErr(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	status := errs.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		obs.From(r.Context()).Error("portal_request_failed", "code", code, "error", err.Error())
	}
	s.renderer.RenderError(w, status, errs.MessageOf(err))
}

// Describe renders a node's attributes as markdown for the detail page.
func Describe(n kg.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Id:** `%s`\n\n", n.ID)
	if n.Pos != "" {
		fmt.Fprintf(&b, "**Part of speech:** %s\n\n", n.Pos)
	}
	fmt.Fprintf(&b, "**Datasource:** %s\n\n", n.Datasource)
	if len(n.Aliases) > 0 {
		b.WriteString("**Aliases:**\n\n")
		for _, a := range n.Aliases {
			fmt.Fprintf(&b, "- %s\n", a)
		}
		b.WriteString("\n")
	}
	if n.Other != "" {
		fmt.Fprintf(&b, "```\n%s\n```\n", n.Other)
	}
	return b.String()
}

// LoadNodes fills store from cfg.NodesFile, or with generated test nodes when
// no file is configured. It returns the number of nodes loaded.
func LoadNodes(ctx context.Context, store *kg.Store, cfg *config.Config) (int, error) {
	var nodes []kg.Node
	if cfg.NodesFile != "" {
		f, err := os.Open(cfg.NodesFile)
		if err != nil {
			return 0, errs.Wrap(errs.InvalidArgument, "open nodes file", err)
		}
		defer f.Close()
		if nodes, err = kg.ReadNodesTSV(f); err != nil {
			return 0, errs.Wrap(errs.InvalidArgument, "read "+cfg.NodesFile, err)
		}
	} else {
		nodes = kg.GenerateTestNodes(cfg.FixtureNodeCount, cfg.FixtureSeed)
	}
	if err := store.Put(ctx, nodes...); err != nil {
		return 0, err
	}
	obs.Pkg("portal").Info("portal_nodes_loaded", "count", len(nodes), "file", cfg.NodesFile)
	return len(nodes), nil
}
