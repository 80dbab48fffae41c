package chittorgarh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"IPOWatcher/internal/config"
	"IPOWatcher/internal/domain"
)

const rosterJSON = `{"reportTableData":[
  {"Company":"<a href=\"/ipo/alpha-industries-ipo/2055/\" target=\"_parent\">Alpha Industries</a>","~compare_name":" Alpha Industries Ltd "},
  {"Company":"plain text without a link","~compare_name":"Beta Ltd"},
  {"Company":"<a href=\"/ipo/gamma-ipo/2099/\">Gamma</a>","~compare_name":""}
]}`

func TestFiscalYear(t *testing.T) {
	t.Parallel()

	cases := map[int]string{
		2025: "2025-26",
		1999: "1999-00",
		2089: "2089-90",
	}
	for year, want := range cases {
		if got := fiscalYear(year); got != want {
			t.Fatalf("fiscalYear(%d) = %q, want %q", year, got, want)
		}
	}
}

func TestOfferingID(t *testing.T) {
	t.Parallel()

	if got := offeringID("https://www.chittorgarh.com/ipo/alpha-industries-ipo/2055/"); got != "2055" {
		t.Fatalf("unexpected id: %q", got)
	}
	if got := offeringID("https://www.chittorgarh.com/about/"); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}

func TestCompanyLink(t *testing.T) {
	t.Parallel()

	if got := companyLink(`<a href="/ipo/alpha/2055/" target="_parent">Alpha</a>`); got != "/ipo/alpha/2055/" {
		t.Fatalf("unexpected href: %q", got)
	}
	if got := companyLink("no anchor here"); got != "" {
		t.Fatalf("expected empty href, got %q", got)
	}
}

func TestClientList(t *testing.T) {
	t.Parallel()

	var gotAccept, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/report/2025/2025-26" {
			http.NotFound(w, r)
			return
		}
		gotAccept = r.Header.Get("Accept")
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(rosterJSON))
	}))
	defer server.Close()

	client := NewClient(config.ScraperConfig{
		ListURL: server.URL + "/report/{year}/{fy}",
		BaseURL: "https://www.chittorgarh.com",
	}, nil)

	candidates, err := client.List(context.Background(), 2025)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %#v", len(candidates), candidates)
	}
	if candidates[0].Name != "Alpha Industries Ltd" {
		t.Fatalf("unexpected name: %q", candidates[0].Name)
	}
	if candidates[0].URL != "https://www.chittorgarh.com/ipo/alpha-industries-ipo/2055/" {
		t.Fatalf("unexpected url: %q", candidates[0].URL)
	}
	if gotAccept != "application/json" {
		t.Fatalf("unexpected accept header: %q", gotAccept)
	}
	if gotAgent != "Mozilla/5.0" {
		t.Fatalf("unexpected user agent: %q", gotAgent)
	}
}

func TestClientFetchPageCombines(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ipo/alpha-industries-ipo/2055/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>main page</body></html>"))
	})
	mux.HandleFunc("/documents/subscription/2055/details.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<table><tr><td>sub</td></tr></table>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(config.ScraperConfig{
		BaseURL:         server.URL,
		SubscriptionURL: server.URL + "/documents/subscription/{id}/details.html",
	}, nil)

	payload, err := client.FetchPage(context.Background(), domain.Candidate{
		Name: "Alpha Industries Ltd",
		URL:  "/ipo/alpha-industries-ipo/2055/",
	})
	if err != nil {
		t.Fatalf("FetchPage error: %v", err)
	}

	want := "<html><body>main page</body></html>\n<hr/>\n<!-- Subscription Data -->\n<table><tr><td>sub</td></tr></table>"
	if string(payload) != want {
		t.Fatalf("unexpected combined payload:\n%s", payload)
	}
}

func TestClientFetchPageSubscriptionFallback(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ipo/alpha-industries-ipo/2055/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>main</html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(config.ScraperConfig{
		BaseURL:         server.URL,
		SubscriptionURL: server.URL + "/documents/subscription/{id}/details.html",
	}, nil)

	payload, err := client.FetchPage(context.Background(), domain.Candidate{
		Name: "Alpha Industries Ltd",
		URL:  "/ipo/alpha-industries-ipo/2055/",
	})
	if err != nil {
		t.Fatalf("FetchPage error: %v", err)
	}

	if !strings.HasSuffix(string(payload), "<!-- Subscription data not found -->") {
		t.Fatalf("expected not-found marker, got:\n%s", payload)
	}
}

func TestClientFetchPageRequiresOfferingID(t *testing.T) {
	t.Parallel()

	client := NewClient(config.ScraperConfig{BaseURL: "https://www.chittorgarh.com"}, nil)

	_, err := client.FetchPage(context.Background(), domain.Candidate{
		Name: "Alpha Industries Ltd",
		URL:  "/about/company/",
	})
	if err == nil {
		t.Fatal("expected an error for a page without an offering id")
	}
}

func TestClientProxiesUpstreamButNotSubscription(t *testing.T) {
	t.Parallel()

	var proxiedTargets []string
	var proxiedKeys []string
	var subscriptionHits int

	mux := http.NewServeMux()
	mux.HandleFunc("/proxy", func(w http.ResponseWriter, r *http.Request) {
		proxiedKeys = append(proxiedKeys, r.URL.Query().Get("api_key"))
		target := r.URL.Query().Get("url")
		proxiedTargets = append(proxiedTargets, target)
		if strings.Contains(target, "/report/") {
			_, _ = w.Write([]byte(rosterJSON))
			return
		}
		_, _ = w.Write([]byte("<html>proxied page</html>"))
	})
	mux.HandleFunc("/documents/subscription/2055/details.html", func(w http.ResponseWriter, r *http.Request) {
		subscriptionHits++
		_, _ = w.Write([]byte("<div>sub</div>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(config.ScraperConfig{
		ListURL:         "https://upstream.example/report/{year}/{fy}",
		BaseURL:         "https://upstream.example",
		SubscriptionURL: server.URL + "/documents/subscription/{id}/details.html",
		ProxyURL:        server.URL + "/proxy",
		APIKey:          "secret",
	}, nil)

	if _, err := client.List(context.Background(), 2025); err != nil {
		t.Fatalf("List error: %v", err)
	}
	if _, err := client.FetchPage(context.Background(), domain.Candidate{
		Name: "Alpha Industries Ltd",
		URL:  "https://upstream.example/ipo/alpha-industries-ipo/2055/",
	}); err != nil {
		t.Fatalf("FetchPage error: %v", err)
	}

	if len(proxiedTargets) != 2 {
		t.Fatalf("expected 2 proxied requests, got %v", proxiedTargets)
	}
	if proxiedTargets[0] != "https://upstream.example/report/2025/2025-26" {
		t.Fatalf("unexpected proxied listing target: %q", proxiedTargets[0])
	}
	if proxiedTargets[1] != "https://upstream.example/ipo/alpha-industries-ipo/2055/" {
		t.Fatalf("unexpected proxied page target: %q", proxiedTargets[1])
	}
	for _, key := range proxiedKeys {
		if key != "secret" {
			t.Fatalf("proxy call missing api key: %v", proxiedKeys)
		}
	}
	if subscriptionHits != 1 {
		t.Fatalf("subscription should be fetched directly once, got %d hits", subscriptionHits)
	}
}
