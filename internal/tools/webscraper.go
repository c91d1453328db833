package tools

import (
	"context"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"quizd/internal/assistant"
	"quizd/internal/httpclient"
)

const scrapedContentMaxBytes = 15000

// WebScraper fetches a page and returns its readable text.
type WebScraper struct {
	client *http.Client
}

func NewWebScraper(client *http.Client) *WebScraper {
	return &WebScraper{client: client}
}

func (t *WebScraper) Name() string { return "web_scraper" }

func (t *WebScraper) Definition() assistant.Tool {
	return assistant.Tool{
		Type: "function",
		Function: &assistant.FunctionSpec{
			Name:        t.Name(),
			Description: "Fetch a web page and return its content. Use for quiz pages and any linked pages that must be read.",
			Parameters: assistant.ParameterSchema{
				Type: "object",
				Properties: map[string]assistant.Property{
					"url": {
						Type:        "string",
						Description: "Full URL to fetch (http/https)",
					},
					"format": {
						Type:        "string",
						Description: "Return raw HTML or readable markdown-like text",
						Enum:        []string{"html", "markdown"},
					},
				},
				Required: []string{"url"},
			},
		},
	}
}

func (t *WebScraper) Execute(ctx context.Context, _ Environment, args map[string]any) (string, error) {
	urlStr := stringArg(args, "url")
	if urlStr == "" {
		return "", fmt.Errorf("url parameter required")
	}

	parsed, err := neturl.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL must use http or https scheme")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "quizd/1.0 (Web Content Fetcher)")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := httpclient.ReadAllWithLimit(resp.Body, 2*1024*1024)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if stringArg(args, "format") == "html" {
		html := string(body)
		if len(html) > scrapedContentMaxBytes {
			html = html[:scrapedContentMaxBytes] + "\n\n[Content truncated...]"
		}
		return html, nil
	}

	content, err := htmlToText(string(body))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	return fmt.Sprintf("Source: %s\n\n%s", resp.Request.URL.String(), content), nil
}

// htmlToText converts HTML to clean markdown-like text.
func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	// Remove noise elements
	doc.Find("script, style, nav, footer, header, aside, iframe").Remove()

	var content strings.Builder

	if title := doc.Find("title").Text(); title != "" {
		content.WriteString("# " + strings.TrimSpace(title) + "\n\n")
	}

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			level := s.Get(0).Data[1] - '0'
			prefix := strings.Repeat("#", int(level))
			content.WriteString(prefix + " " + text + "\n\n")
		}
	})

	doc.Find("p, pre, code, article, section").Each(func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			content.WriteString(text + "\n\n")
		}
	})

	doc.Find("ul, ol").Each(func(i int, s *goquery.Selection) {
		s.Find("li").Each(func(j int, li *goquery.Selection) {
			if text := strings.TrimSpace(li.Text()); text != "" {
				content.WriteString("- " + text + "\n")
			}
		})
		content.WriteString("\n")
	})

	result := content.String()
	if len(result) > scrapedContentMaxBytes {
		result = result[:scrapedContentMaxBytes] + "\n\n[Content truncated...]"
	}

	return result, nil
}
