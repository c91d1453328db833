package tools

import (
	"context"
	"fmt"
	"net/http"
	neturl "net/url"
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"quizd/internal/assistant"
	"quizd/internal/httpclient"
)

// Downloader retrieves remote files. Textual payloads are returned inline;
// binary payloads go to the assistant file store so code_interpreter can
// open them. Repeat downloads of the same URL are served from cache to keep
// the model from re-fetching large datasets every turn.
type Downloader struct {
	client   *http.Client
	maxBytes int64
	cache    *lru.Cache[string, string]
}

func NewDownloader(client *http.Client, maxBytes int64) *Downloader {
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}
	cache, _ := lru.New[string, string](128)
	return &Downloader{client: client, maxBytes: maxBytes, cache: cache}
}

func (t *Downloader) Name() string { return "web_downloader" }

func (t *Downloader) Definition() assistant.Tool {
	return assistant.Tool{
		Type: "function",
		Function: &assistant.FunctionSpec{
			Name:        t.Name(),
			Description: "Download a file from a URL. Text files (csv, json, txt) are returned inline; binary files are uploaded for code_interpreter and a file ID is returned.",
			Parameters: assistant.ParameterSchema{
				Type: "object",
				Properties: map[string]assistant.Property{
					"url": {
						Type:        "string",
						Description: "Full URL of the file to download",
					},
				},
				Required: []string{"url"},
			},
		},
	}
}

func (t *Downloader) Execute(ctx context.Context, env Environment, args map[string]any) (string, error) {
	urlStr := stringArg(args, "url")
	if urlStr == "" {
		return "", fmt.Errorf("url parameter required")
	}

	if cached, ok := t.cache.Get(urlStr); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	data, err := httpclient.ReadAllWithLimit(resp.Body, t.maxBytes)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if isTextual(resp.Header.Get("Content-Type"), urlStr) {
		out := string(data)
		t.cache.Add(urlStr, out)
		return out, nil
	}

	fileID, err := env.UploadFile(ctx, filenameFromURL(urlStr), data)
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}

	out := fmt.Sprintf("File downloaded and uploaded for code_interpreter. File ID: %s", fileID)
	t.cache.Add(urlStr, out)
	return out, nil
}

func isTextual(contentType, urlStr string) bool {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "text/"),
		strings.Contains(ct, "json"),
		strings.Contains(ct, "csv"),
		strings.Contains(ct, "xml"):
		return true
	}
	switch strings.ToLower(path.Ext(urlPath(urlStr))) {
	case ".txt", ".csv", ".json", ".md", ".xml", ".tsv":
		return true
	}
	return false
}

func urlPath(urlStr string) string {
	u, err := neturl.Parse(urlStr)
	if err != nil {
		return urlStr
	}
	return u.Path
}

func filenameFromURL(urlStr string) string {
	name := path.Base(urlPath(urlStr))
	if name == "" || name == "." || name == "/" {
		return "download.bin"
	}
	return name
}
