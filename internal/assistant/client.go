package assistant

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	quizderrors "quizd/internal/errors"
	"quizd/internal/httpclient"
	"quizd/internal/logging"
)

const (
	betaHeader = "assistants=v2"

	// Error payloads can be verbose; keep only enough to diagnose.
	maxErrorBodyBytes = 2048
	// Generated chart files; anything larger is not worth inlining.
	maxFileContentBytes = 8 << 20
)

// Config carries the settings needed to reach the Assistants API.
type Config struct {
	APIKey string
	// BaseURL is the routed Assistants endpoint (threads, runs, messages).
	BaseURL string
	// FileBaseURL is the direct endpoint used for file upload/download and
	// audio transcription.
	FileBaseURL string
	Timeout     time.Duration
	Logger      logging.Logger
	// HTTPClient overrides the default outbound client, mainly for tests.
	HTTPClient *http.Client
}

// Client is a thin REST client for the OpenAI Assistants v2 API.
type Client struct {
	apiKey      string
	baseURL     string
	fileBaseURL string
	httpClient  *http.Client
	logger      logging.Logger
}

// NewClient constructs a client from config, applying defaults for anything unset.
func NewClient(cfg Config) *Client {
	logger := logging.OrNop(cfg.Logger)

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = httpclient.New(timeout, logger)
	}

	fileBaseURL := cfg.FileBaseURL
	if fileBaseURL == "" {
		fileBaseURL = cfg.BaseURL
	}

	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		fileBaseURL: strings.TrimRight(fileBaseURL, "/"),
		httpClient:  client,
		logger:      logger,
	}
}

// CreateAssistant registers an assistant with instructions and tools.
func (c *Client) CreateAssistant(ctx context.Context, req CreateAssistantRequest) (Assistant, error) {
	var out Assistant
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/assistants", req, &out)
	return out, err
}

// CreateThread opens a new conversational context.
func (c *Client) CreateThread(ctx context.Context) (Thread, error) {
	var out Thread
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/threads", map[string]any{}, &out)
	return out, err
}

// AddMessage appends a message to a thread.
func (c *Client) AddMessage(ctx context.Context, threadID, role, content string) error {
	payload := map[string]any{"role": role, "content": content}
	url := fmt.Sprintf("%s/threads/%s/messages", c.baseURL, threadID)
	return c.doJSON(ctx, http.MethodPost, url, payload, nil)
}

// CreateRun starts the assistant over a thread.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (Run, error) {
	payload := map[string]any{"assistant_id": assistantID}
	url := fmt.Sprintf("%s/threads/%s/runs", c.baseURL, threadID)
	var out Run
	err := c.doJSON(ctx, http.MethodPost, url, payload, &out)
	return out, err
}

// GetRun fetches the current state of a run.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	url := fmt.Sprintf("%s/threads/%s/runs/%s", c.baseURL, threadID, runID)
	var out Run
	err := c.doJSON(ctx, http.MethodGet, url, nil, &out)
	return out, err
}

// SubmitToolOutputs unblocks a run waiting on tool results.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (Run, error) {
	payload := map[string]any{"tool_outputs": outputs}
	url := fmt.Sprintf("%s/threads/%s/runs/%s/submit_tool_outputs", c.baseURL, threadID, runID)
	var out Run
	err := c.doJSON(ctx, http.MethodPost, url, payload, &out)
	return out, err
}

// LatestAssistantText returns the newest assistant-authored text in a thread.
func (c *Client) LatestAssistantText(ctx context.Context, threadID string) (string, error) {
	messages, err := c.listMessages(ctx, threadID)
	if err != nil {
		return "", err
	}
	for _, msg := range messages {
		if msg.Role != "assistant" {
			continue
		}
		for _, content := range msg.Content {
			if content.Type == "text" && content.Text != nil && content.Text.Value != "" {
				return content.Text.Value, nil
			}
		}
	}
	return "", quizderrors.NewPermanentError(
		fmt.Errorf("thread %s has no assistant text message", threadID),
		"agent produced no answer",
	)
}

// LatestImageFileID returns the newest assistant-generated image file in a
// thread, or an empty string when none exists.
func (c *Client) LatestImageFileID(ctx context.Context, threadID string) (string, error) {
	messages, err := c.listMessages(ctx, threadID)
	if err != nil {
		return "", err
	}
	for _, msg := range messages {
		if msg.Role != "assistant" {
			continue
		}
		for _, content := range msg.Content {
			if content.Type == "image_file" && content.ImageFile != nil {
				return content.ImageFile.FileID, nil
			}
		}
	}
	return "", nil
}

func (c *Client) listMessages(ctx context.Context, threadID string) ([]Message, error) {
	url := fmt.Sprintf("%s/threads/%s/messages", c.baseURL, threadID)
	var out messageList
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// UploadFile stores data in the assistant file store for later tool use.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (FileObject, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return FileObject{}, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return FileObject{}, fmt.Errorf("write upload payload: %w", err)
	}
	if err := writer.WriteField("purpose", "assistants"); err != nil {
		return FileObject{}, fmt.Errorf("write upload purpose: %w", err)
	}
	if err := writer.Close(); err != nil {
		return FileObject{}, fmt.Errorf("finalize upload form: %w", err)
	}

	var out FileObject
	err = c.doMultipart(ctx, c.fileBaseURL+"/files", writer.FormDataContentType(), &body, &out)
	return out, err
}

// FileContentDataURI downloads a generated file and returns it as a PNG data URI.
func (c *Client) FileContentDataURI(ctx context.Context, fileID string) (string, error) {
	url := fmt.Sprintf("%s/files/%s/content", c.fileBaseURL, fileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", wrapRequestError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.statusError(resp)
	}

	data, err := httpclient.ReadAllWithLimit(resp.Body, maxFileContentBytes)
	if err != nil {
		return "", fmt.Errorf("read file content: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// TranscribeAudio sends an audio payload to the transcription endpoint and
// returns the recognized text.
func (c *Client) TranscribeAudio(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build transcription form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write transcription payload: %w", err)
	}
	if err := writer.WriteField("model", "whisper-1"); err != nil {
		return "", fmt.Errorf("write transcription model: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize transcription form: %w", err)
	}

	var out transcription
	if err := c.doMultipart(ctx, c.fileBaseURL+"/audio/transcriptions", writer.FormDataContentType(), &body, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapRequestError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) doMultipart(ctx context.Context, url, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapRequestError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("OpenAI-Beta", betaHeader)
}

// statusError turns a non-2xx response into a classified error. The response
// body is truncated and never includes our own credentials.
func (c *Client) statusError(resp *http.Response) error {
	body, readErr := httpclient.ReadAllWithLimit(resp.Body, maxErrorBodyBytes)
	detail := strings.TrimSpace(string(body))
	if readErr != nil {
		detail = ""
	}

	c.logger.Warn("assistants API %s returned HTTP %d: %s", resp.Request.URL.Path, resp.StatusCode, detail)

	message := fmt.Sprintf("assistants API returned HTTP %d", resp.StatusCode)
	if detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}
	return quizderrors.FromHTTPStatus(resp.StatusCode, message)
}

func wrapRequestError(err error) error {
	return quizderrors.NewTransientError(err, fmt.Sprintf("assistants API unreachable: %v", err))
}
