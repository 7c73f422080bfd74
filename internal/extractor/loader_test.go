package extractor_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"clipgenie/internal/extractor"
)

// newLocalLoader can reach httptest servers on 127.0.0.1.
func newLocalLoader() *extractor.Loader {
	return extractor.NewLoader(time.Second, slog.Default(), extractor.WithPrivateNetworks())
}

func TestLoaderLoadFetchesAndParsesPage(t *testing.T) {
	var gotUserAgent string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><article>Fetched <style>p{}</style>page</article></body></html>`))
	}))
	defer srv.Close()

	loader := newLocalLoader()

	dc, err := loader.Load(context.Background(), srv.URL+"/post", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !strings.Contains(gotUserAgent, "Mozilla/5.0") {
		t.Fatalf("expected browser user agent, got %q", gotUserAgent)
	}

	if dc.Document == nil {
		t.Fatalf("expected parsed document")
	}

	e := extractor.New(extractor.DefaultRules(), 0, slog.Default())
	if got := e.Extract(context.Background(), dc); got != "Fetched page" {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestLoaderLoadFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><main>moved</main></body></html>`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	dc, err := newLocalLoader().Load(context.Background(), srv.URL+"/old", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if dc.URL == nil || dc.URL.Path != "/new" {
		t.Fatalf("expected final URL path /new, got %v", dc.URL)
	}
}

func TestLoaderLoadUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newLocalLoader().Load(context.Background(), srv.URL, "")
	if err == nil || !strings.Contains(err.Error(), "unexpected status: 404") {
		t.Fatalf("expected unexpected status error, got %v", err)
	}
}

func TestLoaderLoadPDFSkipsHTMLParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	dc, err := newLocalLoader().Load(context.Background(), srv.URL+"/a.pdf", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if dc.Document != nil {
		t.Fatalf("expected no HTML document for PDF content")
	}

	if dc.ContentType != "application/pdf" {
		t.Fatalf("unexpected content type: %q", dc.ContentType)
	}
}

func TestLoaderLoadRefusesPrivateAddresses(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`<html><body><article>internal</article></body></html>`))
	}))
	defer srv.Close()

	loader := extractor.NewLoader(time.Second, slog.Default())

	for _, rawURL := range []string{
		srv.URL + "/admin",
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.1/",
		"http://[::1]:1/",
	} {
		t.Run(rawURL, func(t *testing.T) {
			_, err := loader.Load(context.Background(), rawURL, "")
			if !errors.Is(err, extractor.ErrForbiddenAddress) {
				t.Fatalf("expected forbidden address error, got %v", err)
			}
		})
	}

	if hits.Load() != 0 {
		t.Fatalf("expected no request to reach the local server, got %d", hits.Load())
	}
}

func TestParseTargetURL(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"https://example.com/a", false},
		{"  http://example.com  ", false},
		{"", true},
		{"ftp://example.com/file", true},
		{"javascript:alert(1)", true},
		{"https://", true},
	}

	for _, test := range tests {
		_, err := extractor.ParseTargetURL(test.raw)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseTargetURL(%q) error = %v, wantErr %v", test.raw, err, test.wantErr)
		}
	}
}

func TestFromHTMLWithoutURL(t *testing.T) {
	loader := extractor.NewLoader(0, slog.Default())

	dc, err := loader.FromHTML("", "<html><body><p>x</p></body></html>", "")
	if err != nil {
		t.Fatalf("from HTML: %v", err)
	}

	if dc.URL != nil {
		t.Fatalf("expected nil URL, got %v", dc.URL)
	}

	if dc.Document == nil {
		t.Fatalf("expected parsed document")
	}
}

func TestDefaultRulesKeepSiteOrder(t *testing.T) {
	rules := extractor.DefaultRules()

	want := []string{"twitter.com", "reddit.com", "wikipedia.org", "medium.com"}
	if len(rules.Sites) != len(want) {
		t.Fatalf("expected %d site rules, got %d", len(want), len(rules.Sites))
	}

	for i, host := range want {
		if rules.Sites[i].Host != host {
			t.Fatalf("site rule %d: got %q want %q", i, rules.Sites[i].Host, host)
		}
	}

	if rules.Sites[0].Separator != "\n\n" {
		t.Fatalf("expected double newline separator, got %q", rules.Sites[0].Separator)
	}
}

func TestParseRulesRejectsUnknownMode(t *testing.T) {
	data := []byte(`
pdf:
  text_layer: '.textLayer div'
  advisory: 'nope'
sites:
  - host: example.com
    selector: article
    mode: sometimes
generic:
  containers: [article]
`)

	if _, err := extractor.ParseRules(data); err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Fatalf("expected unknown mode error, got %v", err)
	}
}
