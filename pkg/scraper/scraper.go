package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/xhad/research/internal/logger"
	"github.com/xhad/research/internal/models"
	"golang.org/x/time/rate"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 20 << 20

type ScraperConfig struct {
	MaxDepth          int     // 0 loads only the given pages
	RateLimit         float64 // requests per second
	IgnorePatterns    []string
	AllowedExtensions []string
	Timeout           time.Duration
	Headers           map[string]string // sent with every request unless overridden per Load
	OnProgress        func(url string)
	Logger            *slog.Logger
}

// FetchError reports a URL that could not be turned into a document.
// It never aborts the rest of the batch.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxDepth < 0 {
		return nil, fmt.Errorf("max depth cannot be negative")
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{".html", ".htm", "/", ""}
	}
	if config.Logger == nil {
		config.Logger = logger.Discard()
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		log:     config.Logger.With("component", "scraper"),
	}, nil
}

func New() *Scraper {
	s, _ := NewWithConfig(ScraperConfig{})
	return s
}

// Load fetches every URL and returns one document per page that produced
// text. Failures are returned per URL as *FetchError values.
func (s *Scraper) Load(ctx context.Context, urls []string, headers map[string]string) ([]models.Document, []error) {
	var documents []models.Document
	var errs []error

	merged := make(map[string]string, len(s.config.Headers)+len(headers))
	for k, v := range s.config.Headers {
		merged[k] = v
	}
	for k, v := range headers {
		merged[k] = v
	}

	visited := make(map[string]bool)
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, &FetchError{URL: raw, Err: fmt.Errorf("invalid URL")})
			continue
		}

		c := crawl{
			scraper:  s,
			headers:  merged,
			visited:  visited,
			baseHost: parsed.Host,
		}
		if err := c.scrapeRecursive(ctx, raw, 0, &documents); err != nil {
			s.log.Warn("failed to load url", "url", raw, "error", err)
			errs = append(errs, &FetchError{URL: raw, Err: err})
		}
	}

	return documents, errs
}

type crawl struct {
	scraper  *Scraper
	headers  map[string]string
	visited  map[string]bool
	baseHost string
}

func (c *crawl) shouldProcessURL(urlStr string) bool {
	return c.scraper.shouldProcessURL(urlStr, c.baseHost)
}

func (s *Scraper) shouldProcessURL(urlStr, baseHost string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	// Check if URL is from the same host
	if parsedURL.Host != baseHost {
		return false
	}

	// Check extensions
	ext := strings.ToLower(parsedURL.Path)
	validExt := false
	for _, allowedExt := range s.config.AllowedExtensions {
		if strings.HasSuffix(ext, allowedExt) {
			validExt = true
			break
		}
	}
	if !validExt {
		return false
	}

	// Check ignore patterns
	for _, pattern := range s.config.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return false
		}
	}

	return true
}

func (c *crawl) scrapeRecursive(ctx context.Context, urlStr string, depth int, documents *[]models.Document) error {
	if depth > c.scraper.config.MaxDepth || c.visited[urlStr] {
		return nil
	}
	// The pages the caller asked for are always fetched; filters only apply to followed links.
	if depth > 0 && !c.shouldProcessURL(urlStr) {
		return nil
	}

	c.visited[urlStr] = true
	if c.scraper.config.OnProgress != nil {
		c.scraper.config.OnProgress(urlStr)
	}

	page, err := c.scraper.fetch(ctx, urlStr, c.headers)
	if err != nil {
		return err
	}
	if page.content == "" {
		return fmt.Errorf("no text content found")
	}

	*documents = append(*documents, models.Document{
		URL:     urlStr,
		Title:   page.title,
		Content: page.content,
		Metadata: map[string]interface{}{
			"source":       urlStr,
			"depth":        depth,
			"time":         time.Now(),
			"contentType":  page.contentType,
			"lastModified": page.lastModified,
		},
	})

	if page.html == nil || depth >= c.scraper.config.MaxDepth {
		return nil
	}

	base, err := url.Parse(urlStr)
	if err != nil {
		return nil
	}

	// Find and follow links
	page.html.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, exists := selection.Attr("href")
		if !exists {
			return
		}

		absoluteURL, err := url.Parse(href)
		if err != nil {
			c.scraper.log.Debug("skipping link", "href", href, "error", err)
			return
		}
		if !absoluteURL.IsAbs() {
			absoluteURL = base.ResolveReference(absoluteURL)
		}
		absoluteURL.Fragment = ""

		if err := c.scrapeRecursive(ctx, absoluteURL.String(), depth+1, documents); err != nil {
			c.scraper.log.Debug("error scraping linked page", "url", absoluteURL.String(), "error", err)
		}
	})

	return nil
}

type page struct {
	title        string
	content      string
	contentType  string
	lastModified string
	html         *goquery.Document
}

func (s *Scraper) fetch(ctx context.Context, urlStr string, headers map[string]string) (*page, error) {
	// Apply rate limiting
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	contentType := resp.Header.Get("Content-Type")
	result := &page{
		contentType:  contentType,
		lastModified: resp.Header.Get("Last-Modified"),
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	body := io.LimitReader(resp.Body, maxBodySize)

	switch {
	case mediaType == "application/pdf" || strings.HasSuffix(strings.ToLower(req.URL.Path), ".pdf"):
		text, err := extractPDF(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse pdf: %w", err)
		}
		result.content = cleanContent(text)
	case mediaType == "text/plain":
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		result.content = cleanContent(string(data))
	default:
		doc, err := goquery.NewDocumentFromReader(body)
		if err != nil {
			return nil, err
		}
		result.html = doc
		result.title = strings.TrimSpace(doc.Find("title").First().Text())
		result.content = extractMainContent(doc)
	}

	s.log.Debug("fetched page", "url", urlStr, "content_type", contentType, "chars", len(result.content))
	return result, nil
}

func extractPDF(body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	text, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func cleanContent(content string) string {
	// Remove extra whitespace
	content = strings.Join(strings.Fields(content), " ")

	// Remove common noise
	noisePatterns := []string{
		"Cookie Policy",
		"Accept Cookies",
		"Privacy Policy",
		"Terms of Service",
	}

	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}

	return strings.Join(strings.Fields(content), " ")
}

func extractMainContent(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, footer, iframe").Remove()

	// Try to find main content area
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documentation",
		"#documentation",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = blockText(selected)
			break
		}
	}

	// Fallback to body if no main content found
	if strings.TrimSpace(content) == "" {
		content = blockText(doc.Find("body"))
	}

	return cleanParagraphs(content)
}

// blockText keeps block level elements on their own lines so the splitter
// can prefer paragraph boundaries.
func blockText(sel *goquery.Selection) string {
	sel.Find("p, h1, h2, h3, h4, h5, h6, li, tr, div, br, section").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n\n")
	})
	return sel.Text()
}

// cleanParagraphs normalizes whitespace inside paragraphs and keeps blank
// lines between them.
func cleanParagraphs(text string) string {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		if cleaned := cleanContent(para); cleaned != "" {
			paragraphs = append(paragraphs, cleaned)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
