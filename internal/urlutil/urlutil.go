package urlutil

import (
	"net/http"
	"net/url"
	"strings"
)

// NormalizeBaseURL trims whitespace and trailing slashes from a configured base URL.
func NormalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/")
}

// Join concatenates a base URL and a relative URL verbatim. Page URLs are compared
// by exact string equality, so nothing is escaped or cleaned here.
func Join(base, relative string) string {
	return base + relative
}

// NodePath returns the portal path for a node detail page.
func NodePath(id string) string {
	return "/node/" + url.PathEscape(id)
}

// AppendRawQuery appends key=value to the URL's raw query, keeping the existing
// query bytes untouched.
func AppendRawQuery(u *url.URL, key, value string) string {
	out := *u
	pair := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	if out.RawQuery == "" {
		out.RawQuery = pair
	} else {
		out.RawQuery += "&" + pair
	}
	return out.RequestURI()
}

// OriginFromRequest returns the request origin (scheme + host) with the provided
// fallback when request host or scheme cannot be resolved.
func OriginFromRequest(r *http.Request, fallback string) string {
	base := NormalizeBaseURL(fallback)
	if r == nil {
		return base
	}

	host := strings.TrimSpace(r.Host)
	if host == "" {
		return base
	}

	return NormalizeBaseURL(requestScheme(r) + "://" + host)
}

func requestScheme(r *http.Request) string {
	proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))
	if proto != "" {
		if comma := strings.Index(proto, ","); comma >= 0 {
			proto = strings.TrimSpace(proto[:comma])
		}
		if proto == "http" || proto == "https" {
			return proto
		}
	}

	if r.TLS != nil {
		return "https"
	}
	return "http"
}
