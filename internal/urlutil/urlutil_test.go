package urlutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestOriginFromRequest_UsesRequestOrigin(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		scheme := rapid.SampledFrom([]string{"http", "https"}).Draw(rt, "scheme")
		host := fmt.Sprintf(
			"%s.%s:%d",
			rapid.StringMatching(`[a-z]{3,12}`).Draw(rt, "host"),
			rapid.StringMatching(`[a-z]{2,8}`).Draw(rt, "tld"),
			rapid.IntRange(1024, 9999).Draw(rt, "port"),
		)
		req := httptest.NewRequest(http.MethodGet, scheme+"://"+host+"/node/search", nil)
		req.Header.Set("X-Forwarded-Proto", scheme)

		got := OriginFromRequest(req, "https://fallback.localhost")
		if got != fmt.Sprintf("%s://%s", scheme, host) {
			rt.Fatalf("unexpected origin: got=%s want=%s://%s", got, scheme, host)
		}
	})
}

func TestOriginFromRequest_UsesFallbackWhenHostMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://portal.example.test/node/search", nil)
	req.Host = ""
	if got := OriginFromRequest(req, "http://127.0.0.1:9000/"); got != "http://127.0.0.1:9000" {
		t.Fatalf("expected fallback origin, got=%s", got)
	}
	if got := OriginFromRequest(nil, " http://fallback/ "); got != "http://fallback" {
		t.Fatalf("expected fallback origin for nil request, got=%s", got)
	}
}

func TestNormalizeBaseURL_TrimsTrailingSlashes(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		host := rapid.StringMatching(`[a-z]{3,12}\.[a-z]{2,6}`).Draw(rt, "host")
		slashes := strings.Repeat("/", rapid.IntRange(0, 3).Draw(rt, "slashes"))
		got := NormalizeBaseURL("  http://" + host + slashes + " ")
		if got != "http://"+host {
			rt.Fatalf("NormalizeBaseURL mismatch: got=%q want=%q", got, "http://"+host)
		}
	})
}

func TestJoin_IsVerbatimConcatenation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := "http://" + rapid.StringMatching(`[a-z]{3,12}:[0-9]{2,5}`).Draw(rt, "host")
		rel := rapid.String().Draw(rt, "relative")
		if got := Join(base, rel); got != base+rel {
			rt.Fatalf("Join mismatch: got=%q want=%q", got, base+rel)
		}
	})
}

func TestNodePath_EscapesSegment(t *testing.T) {
	tests := map[string]string{
		"portal_test_data:7": "/node/portal_test_data:7",
		"/c/en/dog":          "/node/%2Fc%2Fen%2Fdog",
		"two words":          "/node/two%20words",
	}
	for id, want := range tests {
		if got := NodePath(id); got != want {
			t.Errorf("NodePath(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestAppendRawQuery_KeepsExistingQueryBytes(t *testing.T) {
	u, err := url.Parse("http://portal.test/node/search?text=a%20b")
	if err != nil {
		t.Fatal(err)
	}
	got := AppendRawQuery(u, "normalized", "true")
	if got != "/node/search?text=a%20b&normalized=true" {
		t.Fatalf("unexpected request URI: %s", got)
	}

	bare, _ := url.Parse("/node/search")
	if got := AppendRawQuery(bare, "normalized", "true"); got != "/node/search?normalized=true" {
		t.Fatalf("unexpected request URI without query: %s", got)
	}
}
