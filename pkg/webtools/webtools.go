// Package webtools registers the built-in web tool pack: fetching URLs,
// parsing HTML, and extracting readable article content.
package webtools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/nounverse/verbs/pkg/tool"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxBytes  = 2 << 20
	defaultUserAgent = "verbs/1.0"
)

// Options configures web tool registration.
type Options struct {
	// Client issues outbound requests. Defaults to an http.Client with
	// a 30 second timeout.
	Client *http.Client
	// UserAgent is sent on every outbound request.
	UserAgent string
	// MaxBytes caps how much of a response body is read.
	MaxBytes int64
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = &http.Client{Timeout: defaultTimeout}
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultMaxBytes
	}
	return o
}

// Register adds the web tool pack to the registry.
func Register(registry *tool.Registry, opts Options) error {
	if registry == nil {
		return errors.New("registry is required")
	}
	opts = opts.withDefaults()

	tools := []tool.Definition{
		fetchTool(opts),
		parseHTMLTool(),
		readTool(opts),
	}

	for _, def := range tools {
		if err := registry.Register(def); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", def.ID, err)
		}
	}
	return nil
}

func fetchTool(opts Options) tool.Definition {
	return tool.Definition{
		ID:          "web.fetch",
		Name:        "Fetch URL",
		Description: "Fetch a URL over HTTP and return status, headers, and body.",
		Audience:    tool.AudienceBoth,
		Idempotent:  true,
		Permissions: []tool.Permission{{Resource: "network", Action: "read"}},
		Tags:        []string{"web", "network"},
		Parameters: []tool.ParameterSpec{
			{Name: "url", Type: tool.TypeString, Description: "Absolute http or https URL", Required: true},
			{Name: "method", Type: tool.TypeString, Description: "HTTP method", Default: "GET", Enum: []interface{}{"GET", "HEAD"}},
			{Name: "headers", Type: tool.TypeObject, Description: "Extra request headers"},
			{Name: "timeout", Type: tool.TypeNumber, Description: "Request timeout in seconds"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			rawURL, _ := args["url"].(string)
			method, _ := args["method"].(string)

			page, err := fetch(ctx, opts, rawURL, method, toStringMap(args["headers"]), parseDurationSeconds(args["timeout"], 0))
			if err != nil {
				return nil, err
			}

			return map[string]interface{}{
				"url":          page.url,
				"status":       page.status,
				"content_type": page.contentType,
				"body":         string(page.body),
				"bytes":        len(page.body),
				"truncated":    page.truncated,
				"headers":      page.headers,
			}, nil
		},
	}
}

func parseHTMLTool() tool.Definition {
	return tool.Definition{
		ID:          "web.parse-html",
		Name:        "Parse HTML",
		Description: "Parse an HTML document and extract title, text, links, and optional CSS selector matches.",
		Audience:    tool.AudienceBoth,
		Idempotent:  true,
		Tags:        []string{"web", "html"},
		Parameters: []tool.ParameterSpec{
			{Name: "html", Type: tool.TypeString, Description: "HTML document to parse", Required: true},
			{Name: "selector", Type: tool.TypeString, Description: "CSS selector to match"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			html, _ := args["html"].(string)

			doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
			if err != nil {
				return nil, fmt.Errorf("parse html: %w", err)
			}

			links := make([]map[string]interface{}, 0)
			doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
				href, _ := s.Attr("href")
				links = append(links, map[string]interface{}{
					"href": href,
					"text": collapseWhitespace(s.Text()),
				})
			})

			result := map[string]interface{}{
				"title": collapseWhitespace(doc.Find("title").First().Text()),
				"text":  collapseWhitespace(doc.Find("body").Text()),
				"links": links,
			}

			if selector, _ := args["selector"].(string); selector != "" {
				matches := make([]map[string]interface{}, 0)
				doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
					inner, _ := s.Html()
					matches = append(matches, map[string]interface{}{
						"text": collapseWhitespace(s.Text()),
						"html": inner,
					})
				})
				result["matches"] = matches
				result["match_count"] = len(matches)
			}

			return result, nil
		},
	}
}

func readTool(opts Options) tool.Definition {
	return tool.Definition{
		ID:          "web.read",
		Name:        "Read article",
		Description: "Fetch a URL and extract the readable article content.",
		Audience:    tool.AudienceBoth,
		Idempotent:  true,
		Permissions: []tool.Permission{{Resource: "network", Action: "read"}},
		Tags:        []string{"web", "network", "readability"},
		Parameters: []tool.ParameterSpec{
			{Name: "url", Type: tool.TypeString, Description: "Absolute http or https URL", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			rawURL, _ := args["url"].(string)

			page, err := fetch(ctx, opts, rawURL, "GET", nil, 0)
			if err != nil {
				return nil, err
			}
			if page.status < 200 || page.status >= 300 {
				return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, page.status)
			}

			pageURL, err := url.Parse(page.url)
			if err != nil {
				return nil, fmt.Errorf("parse url: %w", err)
			}

			article, err := readability.FromReader(strings.NewReader(string(page.body)), pageURL)
			if err != nil {
				return nil, fmt.Errorf("extract article: %w", err)
			}

			return map[string]interface{}{
				"url":       page.url,
				"title":     article.Title,
				"byline":    article.Byline,
				"excerpt":   article.Excerpt,
				"site_name": article.SiteName,
				"text":      article.TextContent,
				"length":    article.Length,
			}, nil
		},
	}
}

// page is the outcome of one outbound fetch.
type page struct {
	url         string
	status      int
	contentType string
	body        []byte
	truncated   bool
	headers     map[string]interface{}
}

// fetch issues one bounded HTTP request. Only http and https URLs are
// allowed; everything else is rejected before a connection is made.
func fetch(ctx context.Context, opts Options, rawURL, method string, headers map[string]string, timeout time.Duration) (*page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}
	if method == "" {
		method = http.MethodGet
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	truncated := false
	if int64(len(body)) > opts.MaxBytes {
		body = body[:opts.MaxBytes]
		truncated = true
	}

	respHeaders := make(map[string]interface{}, len(resp.Header))
	for k := range resp.Header {
		respHeaders[k] = resp.Header.Get(k)
	}

	return &page{
		url:         parsed.String(),
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        body,
		truncated:   truncated,
		headers:     respHeaders,
	}, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func toStringMap(value interface{}) map[string]string {
	raw, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func parseDurationSeconds(value interface{}, fallback time.Duration) time.Duration {
	switch v := value.(type) {
	case float64:
		if v > 0 {
			return time.Duration(v * float64(time.Second))
		}
	case int:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return fallback
}
