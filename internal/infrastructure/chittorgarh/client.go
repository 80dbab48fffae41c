// Package chittorgarh talks to the upstream listing site: the cloud
// report API for the yearly roster and the offering pages themselves.
package chittorgarh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"IPOWatcher/internal/config"
	"IPOWatcher/internal/domain"
	"IPOWatcher/internal/ports"
)

const userAgent = "Mozilla/5.0"

var offeringIDExpr = regexp.MustCompile(`/ipo/[^/]+/(\d+)/`)

// Client lists offerings from the report API and downloads their pages.
// When an API key is configured, listing and page requests route through
// the scraping proxy; the subscription snapshot is always fetched direct.
type Client struct {
	cfg     config.ScraperConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ ports.Lister = (*Client)(nil)
var _ ports.PageFetcher = (*Client)(nil)

// NewClient wires an HTTP client honoring the configured timeout and
// request rate.
func NewClient(cfg config.ScraperConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// List pulls the report rows for a year and keeps the ones carrying both
// a display name and a page link.
func (c *Client) List(ctx context.Context, year int) ([]domain.Candidate, error) {
	listURL := strings.NewReplacer(
		"{year}", strconv.Itoa(year),
		"{fy}", fiscalYear(year),
	).Replace(c.cfg.ListURL)

	body, status, err := c.fetch(ctx, c.proxied(listURL), true)
	if err != nil {
		return nil, fmt.Errorf("fetch listing %d: %w", year, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("listing %d: upstream returned %d", year, status)
	}

	var report struct {
		ReportTableData []map[string]any `json:"reportTableData"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("decode listing %d: %w", year, err)
	}

	candidates := make([]domain.Candidate, 0, len(report.ReportTableData))
	for _, row := range report.ReportTableData {
		name, _ := row["~compare_name"].(string)
		name = strings.TrimSpace(name)
		fragment, _ := row["Company"].(string)
		href := companyLink(fragment)
		if name == "" || href == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{Name: name, URL: c.absoluteURL(href)})
	}

	c.logger.Debug("listing fetched",
		"year", year,
		"rows", len(report.ReportTableData),
		"candidates", len(candidates))
	return candidates, nil
}

// FetchPage downloads an offering page plus its subscription snapshot and
// returns the combined payload that gets archived.
func (c *Client) FetchPage(ctx context.Context, cand domain.Candidate) ([]byte, error) {
	pageURL := c.absoluteURL(cand.URL)

	id := offeringID(pageURL)
	if id == "" {
		return nil, fmt.Errorf("no offering id in %s", pageURL)
	}

	body, status, err := c.fetch(ctx, c.proxied(pageURL), false)
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", cand.Name, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("page %s: upstream returned %d", cand.Name, status)
	}

	sub := c.subscriptionSection(ctx, id, cand.Name)

	combined := fmt.Sprintf("%s\n<hr/>\n<!-- Subscription Data -->\n%s", body, sub)
	return []byte(combined), nil
}

// subscriptionSection fetches the live subscription numbers for an
// offering. Failures degrade to an HTML comment so the combined artifact
// still parses.
func (c *Client) subscriptionSection(ctx context.Context, id, name string) string {
	subURL := strings.Replace(c.cfg.SubscriptionURL, "{id}", id, 1)

	body, status, err := c.fetch(ctx, subURL, false)
	if err != nil {
		c.logger.Warn("subscription fetch failed", "name", name, "error", err)
		return "<!-- Subscription fetch error -->"
	}
	if status != http.StatusOK {
		return "<!-- Subscription data not found -->"
	}
	return string(body)
}

func (c *Client) fetch(ctx context.Context, rawURL string, wantJSON bool) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", strings.TrimSuffix(c.cfg.BaseURL, "/")+"/")
	if wantJSON {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// proxied wraps a target URL in the scraping proxy when a key is set. The
// key travels only in the query string; it is never logged.
func (c *Client) proxied(target string) string {
	if c.cfg.APIKey == "" || c.cfg.ProxyURL == "" {
		return target
	}
	q := url.Values{}
	q.Set("api_key", c.cfg.APIKey)
	q.Set("url", target)
	return c.cfg.ProxyURL + "?" + q.Encode()
}

func (c *Client) absoluteURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return strings.TrimSuffix(c.cfg.BaseURL, "/") + href
	}
	return href
}

// fiscalYear renders the April-to-March fiscal segment of the report URL,
// "2025-26" for 2025.
func fiscalYear(year int) string {
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

// companyLink pulls the page href out of the HTML fragment the report API
// ships in its Company column.
func companyLink(fragment string) string {
	if fragment == "" {
		return ""
	}
	frag, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(frag.Find("a").First().AttrOr("href", ""))
}

// offeringID extracts the numeric id from an offering page URL.
func offeringID(pageURL string) string {
	if m := offeringIDExpr.FindStringSubmatch(pageURL); m != nil {
		return m[1]
	}
	return ""
}
