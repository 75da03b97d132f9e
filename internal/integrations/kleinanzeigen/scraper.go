package kleinanzeigen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"deal-checker/internal/domain"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxPageBytes     = 10 << 20

	// Page copy shown when the seller has set up the marketplace's escrow payment.
	safePayMarker = "Sicher bezahlen eingerichtet"
	// "Verhandlungsbasis", appended to negotiable prices.
	negotiableMarker = "VB"
)

// HTTPStatusError is returned when the listing page answers with a non-2xx status.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("kleinanzeigen: unexpected status %d from %s", e.StatusCode, e.URL)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Scraper fetches listing pages and extracts their item fields.
type Scraper struct {
	httpClient *http.Client
	userAgent  string
}

type Option func(*Scraper)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Scraper) {
		s.httpClient = httpClient
	}
}

func WithUserAgent(ua string) Option {
	return func(s *Scraper) {
		s.userAgent = strings.TrimSpace(ua)
	}
}

// New creates a Scraper. Requests are bounded only by the caller's context.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		httpClient: &http.Client{},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{}
	}
	if s.userAgent == "" {
		s.userAgent = defaultUserAgent
	}
	return s
}

// Extract downloads the listing at url and maps its metadata onto an Item.
func (s *Scraper) Extract(ctx context.Context, url string) (domain.Item, error) {
	if strings.TrimSpace(url) == "" {
		return domain.Item{}, errors.New("kleinanzeigen: url must not be empty")
	}
	raw, err := s.fetch(ctx, url)
	if err != nil {
		return domain.Item{}, err
	}
	item, err := ParseItem(raw)
	if err != nil {
		return domain.Item{}, fmt.Errorf("kleinanzeigen: parse %s: %w", url, err)
	}
	return item, nil
}

func (s *Scraper) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("kleinanzeigen: create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kleinanzeigen: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: url}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("kleinanzeigen: read response body: %w", err)
	}
	return buf, nil
}

// ParseItem extracts an Item from a listing page. Every field is looked up
// independently; a missing node leaves only that field empty.
func ParseItem(page []byte) (domain.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return domain.Item{}, err
	}

	item := domain.Item{
		Price:       metaContent(doc, `meta[itemprop="price"]`),
		Currency:    metaContent(doc, `meta[itemprop="currency"]`),
		Title:       metaContent(doc, `meta[property="og:title"]`),
		Country:     metaContent(doc, `meta[property="og:country-name"]`),
		Latitude:    metaContent(doc, `meta[property="og:latitude"]`),
		Longitude:   metaContent(doc, `meta[property="og:longitude"]`),
		Locality:    metaContent(doc, `meta[property="og:locality"]`),
		Region:      metaContent(doc, `meta[property="og:region"]`),
		Category:    metaContent(doc, `meta[itemprop="category"]`),
		ImageURL:    metaContent(doc, `meta[property="og:image"]`),
		Description: strippedText(doc.Find("p#viewad-description-text").First()),
	}

	shipping := doc.Find("span.boxedarticle--details--shipping").First()
	item.ShippingAvailable = shipping.Length() > 0
	item.ShippingInfo = strippedText(shipping)

	// Heuristics over page copy; neither flag has structured markup.
	item.SafePayEnabled = bytes.Contains(page, []byte(safePayMarker))
	if price := doc.Find("p#viewad-price").First(); price.Length() > 0 {
		item.PriceNegotiable = strings.Contains(price.Text(), negotiableMarker)
	}

	return item, nil
}

func metaContent(doc *goquery.Document, selector string) *string {
	v, ok := doc.Find(selector).First().Attr("content")
	if !ok {
		return nil
	}
	return &v
}

// strippedText joins the trimmed text nodes below sel without separators.
// It returns nil when sel is empty.
func strippedText(sel *goquery.Selection) *string {
	if sel.Length() == 0 {
		return nil
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(sel.Get(0))
	s := b.String()
	return &s
}
