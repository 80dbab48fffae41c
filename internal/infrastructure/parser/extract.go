package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"IPOWatcher/internal/domain"
	"IPOWatcher/internal/ports"
)

// tableRules map document keys to marker strings, checked in order. A
// table is keyed by the first rule whose marker appears in the nearest
// preceding <h2> sibling, then by the first rule matching the table's own
// text. Unmatched tables get a running numeric key.
var tableRules = []struct {
	key     string
	markers []string
}{
	{"ipo_details", []string{"IPO Details", "Face Value"}},
	{"reservation", []string{"Maximum Allottees", "Anchor Investor Shares Offered", "Investor Category"}},
	{"anchor_investors", []string{"Anchor lock-in period", "Bid Date"}},
	{"timeline", []string{"Initiation of Refunds", "Cut-off time for UPI"}},
	{"lots", []string{"Lot Size Calculator", "Retail (Min)", "Retail (Max)"}},
	{"promoters_holdings", []string{"Share Holding Pre Issue", "Share Holding Post Issue"}},
	{"company_financials", []string{"Amount in ₹ Crore", "Assets", "Total Borrowing"}},
	{"KPI", []string{"ROE", "KPI"}},
	{"EPS", []string{"EPS (Rs)", "Post IPO"}},
	{"bidding_details", []string{"Subscription (times)", "Shares bid for"}},
	{"listing_details", []string{"ISIN", "NSE Symbol", "BSE Script Code"}},
	{"listing_day_trading", []string{"Last Trade", "Price Details"}},
	{"review", []string{"Brokers"}},
	{"objectives", []string{"Objects of the Issue", "Expected Amount (in Millions)"}},
	{"dhrp_status", []string{"Filed with SEBI/Exchange", "Description", "Addendum to DRHP"}},
}

// Extractor turns a stored offering page into the structured document the
// API serves: every table becomes a list of rows keyed by content markers,
// and the well-known card sections become nested objects.
type Extractor struct{}

var _ ports.Extractor = (*Extractor)(nil)

// NewExtractor builds a stateless page extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses the combined offering HTML into a document.
func (e *Extractor) Extract(payload []byte) (domain.Document, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	doc := domain.Document{}
	extractTables(page, doc)
	extractSections(page, doc)
	doc["listing_gain_percent"] = listingGainPercent(doc)

	return doc, nil
}

func extractTables(page *goquery.Document, doc domain.Document) {
	counter := 1

	page.Find("table").Each(func(_ int, table *goquery.Selection) {
		headers, rows := tableShape(table)
		if len(headers) == 0 && len(rows) == 0 {
			// Layout and ad placeholders; they do not consume a numeric key.
			return
		}

		key, ok := matchRule(precedingHeading(table))
		if !ok {
			key, ok = matchRule(table.Text())
		}
		if !ok {
			key = strconv.Itoa(counter)
		}

		base := key
		for n := 1; ; n++ {
			if _, taken := doc[key]; !taken {
				break
			}
			key = fmt.Sprintf("%s_%d", base, n)
		}

		doc[key] = tableValue(headers, rows)
		counter++
	})
}

func matchRule(text string) (string, bool) {
	for _, rule := range tableRules {
		for _, marker := range rule.markers {
			if strings.Contains(text, marker) {
				return rule.key, true
			}
		}
	}
	return "", false
}

func precedingHeading(table *goquery.Selection) string {
	for sib := table.Prev(); sib.Length() > 0; sib = sib.Prev() {
		if goquery.NodeName(sib) == "h2" {
			return strippedText(sib)
		}
	}
	return ""
}

// tableShape pulls headers and data rows out of a table. Headers come from
// <thead> cells when present, else from a leading all-<th> row. Rows
// shorter than the header set are padded; merged cells do that.
func tableShape(table *goquery.Selection) ([]string, [][]string) {
	var headers []string

	thead := table.Find("thead").First()
	if thead.Length() > 0 {
		thead.Find("th").Each(func(_ int, th *goquery.Selection) {
			headers = append(headers, strippedText(th))
		})
	}

	trs := table.Find("tr")
	var dataTRs *goquery.Selection
	switch {
	case len(headers) > 0:
		dataTRs = trs.FilterFunction(func(_ int, tr *goquery.Selection) bool {
			return tr.ParentsFiltered("thead").Length() == 0
		})
	case trs.Length() > 0 && trs.First().Find("th").Length() > 0:
		trs.First().Find("th").Each(func(_ int, th *goquery.Selection) {
			headers = append(headers, strippedText(th))
		})
		dataTRs = trs.Slice(1, trs.Length())
	default:
		dataTRs = trs
	}

	var rows [][]string
	dataTRs.Each(func(_ int, tr *goquery.Selection) {
		var values []string
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			values = append(values, strippedText(cell))
		})
		if len(values) == 0 {
			return
		}
		for len(headers) > 0 && len(values) < len(headers) {
			values = append(values, "")
		}
		rows = append(rows, values)
	})

	return headers, rows
}

// tableValue renders rows as maps when they line up with the headers and
// as plain lists otherwise, so a headerless detail table stays a pair
// list.
func tableValue(headers []string, rows [][]string) []any {
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		if len(headers) > 0 && len(row) == len(headers) {
			m := make(map[string]any, len(headers))
			for i, h := range headers {
				m[h] = row[i]
			}
			out = append(out, m)
			continue
		}

		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
		}
		out = append(out, values)
	}
	return out
}

func extractSections(page *goquery.Document, doc domain.Document) {
	if links := prospectusLinks(page); len(links) > 0 {
		doc["prospectus_links"] = links
	}
	if promoters, ok := promotersText(page); ok {
		doc["promoters"] = promoters
	}
	if contact, ok := contactDetails(page); ok {
		doc["company_contact_details"] = contact
	}
	if registrar, ok := registrarDetails(page); ok {
		doc["ipo_registrar_details"] = registrar
	}
	if about, ok := aboutCompany(page); ok {
		doc["about_company"] = about
	}
	if managers := leadManagers(page); len(managers) > 0 {
		doc["ipo_lead_managers"] = managers
	}
}

func prospectusLinks(page *goquery.Document) []any {
	header := cardHeader(page, "Prospectus")
	if header == nil {
		return nil
	}

	var links []any
	header.Closest("div.card").Find("li").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a").First()
		if a.Length() == 0 {
			return
		}
		href := strings.TrimSpace(a.AttrOr("href", ""))
		// Document-host links duplicate the filings listed elsewhere.
		if strings.Contains(href, "chittorgarh.net") {
			return
		}
		links = append(links, map[string]any{
			"title": strings.TrimSpace(a.AttrOr("title", "")),
			"href":  href,
			"text":  strippedText(a),
		})
	})
	return links
}

func promotersText(page *goquery.Document) (string, bool) {
	var heading *goquery.Selection
	page.Find("h2[itemprop='about']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(strippedText(sel), "Promoter Holding") {
			heading = sel
			return false
		}
		return true
	})
	if heading == nil {
		return "", false
	}

	info := heading.Closest("div[itemtype='http://schema.org/Table']").Find("div.mb-2").First()
	if info.Length() == 0 {
		return "", false
	}
	return strippedText(info), true
}

func contactDetails(page *goquery.Document) (map[string]any, bool) {
	var contact map[string]any
	page.Find("div.card-header").EachWithBreak(func(_ int, header *goquery.Selection) bool {
		if !strings.Contains(strippedText(header), "Contact Details") {
			return true
		}
		address := header.Closest("div.card").Find("address").First()
		if address.Length() == 0 {
			// A bare header without an address block; keep looking.
			return true
		}
		contact = parseAddress(address)
		return false
	})
	return contact, contact != nil
}

var (
	phoneExpr     = regexp.MustCompile(`Phone\s*:\s*([+\d\s-]+)`)
	emailExpr     = regexp.MustCompile(`Email\s*:\s*([\w.-]+@[\w.-]+)`)
	phoneLineExpr = regexp.MustCompile(`^[+\d\s-]+$`)
)

func parseAddress(address *goquery.Selection) map[string]any {
	full := linesText(address)

	var phone, email string
	if m := phoneExpr.FindStringSubmatch(full); m != nil {
		phone = strings.TrimSpace(m[1])
	}
	if m := emailExpr.FindStringSubmatch(full); m != nil {
		email = strings.TrimSpace(m[1])
	}
	website := firstHTTPLink(address)

	// The first line that is not contact noise is the company name; the
	// rest form the postal address.
	var companyName string
	var addressParts []string
	for _, line := range strings.Split(full, "\n") {
		if line == "" {
			continue
		}
		if strings.Contains(line, "Phone:") || strings.Contains(line, "Email:") ||
			strings.Contains(line, "Website:") || phoneLineExpr.MatchString(line) ||
			strings.Contains(line, "@") || strings.Contains(line, "http") {
			continue
		}
		if companyName == "" {
			companyName = line
		} else {
			addressParts = append(addressParts, line)
		}
	}

	contact := map[string]any{
		"company_name": companyName,
		"address":      strings.Join(addressParts, ", "),
	}
	if phone != "" {
		contact["phone"] = phone
	}
	if email != "" {
		contact["email"] = email
	}
	if website != "" {
		contact["website"] = website
	}
	return contact
}

func registrarDetails(page *goquery.Document) (map[string]any, bool) {
	header := cardHeader(page, "Registrar")
	if header == nil {
		return nil, false
	}
	p := header.Closest("div.card").Find("p").First()
	if p.Length() == 0 {
		return nil, false
	}

	registrar := map[string]any{}

	name := p.Find("strong").First()
	if name.Length() == 0 {
		name = p.Find("a").First()
	}
	if name.Length() > 0 {
		registrar["name"] = strippedText(name)
	}

	full := linesText(p)
	if m := phoneExpr.FindStringSubmatch(full); m != nil {
		registrar["phone"] = strings.TrimSpace(m[1])
	}
	if m := emailExpr.FindStringSubmatch(full); m != nil {
		registrar["email"] = strings.TrimSpace(m[1])
	}
	if website := firstHTTPLink(p); website != "" {
		registrar["website"] = website
	}

	if len(registrar) == 0 {
		return nil, false
	}
	return registrar, true
}

func aboutCompany(page *goquery.Document) (map[string]any, bool) {
	summary := page.Find("div.ipo-summary").First()
	if summary.Length() == 0 {
		return nil, false
	}
	heading := summary.Find("h2").FilterFunction(func(_ int, h *goquery.Selection) bool {
		return strings.HasPrefix(strings.TrimSpace(h.Text()), "About")
	}).First()
	if heading.Length() == 0 {
		return nil, false
	}
	content := summary.Find("div#ipoSummary").First()
	if content.Length() == 0 {
		return nil, false
	}

	var paragraphs []string
	content.Find("p").Each(func(_ int, p *goquery.Selection) {
		paragraphs = append(paragraphs, strippedText(p))
	})
	description := strings.Join(paragraphs, " ")
	description = strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", "").Replace(description))

	strengths := make([]any, 0)
	content.Find("ol").First().Find("li").Each(func(_ int, li *goquery.Selection) {
		strengths = append(strengths, strippedText(li))
	})

	return map[string]any{
		"description":           description,
		"competitive_strengths": strengths,
	}, true
}

func leadManagers(page *goquery.Document) []any {
	header := cardHeader(page, "Lead Manager")
	if header == nil {
		return nil
	}

	var managers []any
	// Reports live in <ul> lists in the same card; the managers are the <ol>.
	header.Closest("div.card").Find("ol").First().Find("li").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a").First()
		if a.Length() == 0 {
			return
		}
		managers = append(managers, map[string]any{
			"name":         strippedText(a),
			"profile_link": strings.TrimSpace(a.AttrOr("href", "")),
			"title":        strings.TrimSpace(a.AttrOr("title", "")),
		})
	})
	return managers
}

// cardHeader finds the first card-header div whose text mentions marker.
func cardHeader(page *goquery.Document, marker string) *goquery.Selection {
	var found *goquery.Selection
	page.Find("div.card-header").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(strippedText(sel), marker) {
			found = sel
			return false
		}
		return true
	})
	return found
}

func firstHTTPLink(sel *goquery.Selection) string {
	var href string
	sel.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if h := a.AttrOr("href", ""); strings.Contains(h, "http") {
			href = strings.TrimSpace(h)
			return false
		}
		return true
	})
	return href
}

// Venue preference when a trading row quotes several exchanges.
var listingVenues = []string{"NSE", "BSE", "NSE SME", "BSE SME"}

// listingGainPercent derives the day-one gain from the listing-day trading
// table: ((open - issue) / issue) * 100, rounded to two decimals and
// rendered like "12.5%". Nil when either price is missing.
func listingGainPercent(doc domain.Document) any {
	rows, _ := doc["listing_day_trading"].([]any)

	issue := tradePrice(rows, "final issue price")
	open := tradePrice(rows, "open")
	if issue == nil || open == nil || *issue == 0 {
		return nil
	}

	gain := (*open - *issue) / *issue * 100
	return formatGain(gain)
}

// tradePrice finds the trading row labelled label in its "Price Details"
// cell and returns the first quoted venue price.
func tradePrice(rows []any, label string) *float64 {
	for _, item := range rows {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		detail, _ := row["Price Details"].(string)
		if !strings.EqualFold(strings.TrimSpace(detail), label) {
			continue
		}

		for _, venue := range listingVenues {
			raw, _ := row[venue].(string)
			if raw == "" {
				continue
			}
			clean := strings.TrimSpace(strings.NewReplacer("₹", "", ",", "").Replace(raw))
			price, err := strconv.ParseFloat(clean, 64)
			if err != nil {
				return nil
			}
			return &price
		}
	}
	return nil
}

// formatGain keeps at most two decimals but never renders a bare integer,
// so gains read "12.5%", "12.0%", "-3.25%".
func formatGain(gain float64) string {
	s := strconv.FormatFloat(gain, 'f', 2, 64)
	return strings.TrimSuffix(s, "0") + "%"
}

// strippedText trims every text node and joins the pieces with no
// separator, so "Sep 1, 2025 <b>to</b> Sep 3, 2025" yields
// "Sep 1, 2025toSep 3, 2025". Date-range parsing depends on that shape.
func strippedText(sel *goquery.Selection) string {
	return joinText(sel, "")
}

// linesText joins trimmed text nodes with newlines, one fragment per line.
func linesText(sel *goquery.Selection) string {
	return joinText(sel, "\n")
}

func joinText(sel *goquery.Selection, sep string) string {
	var parts []string
	for _, node := range sel.Nodes {
		collectText(node, &parts)
	}
	return strings.Join(parts, sep)
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
			*parts = append(*parts, trimmed)
		}
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, parts)
	}
}
