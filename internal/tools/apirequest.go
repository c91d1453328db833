package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"quizd/internal/assistant"
	"quizd/internal/httpclient"
)

// latestFilePlaceholder marks a payload value that must be replaced with the
// newest chart the assistant generated, encoded as a base64 data URI.
const latestFilePlaceholder = "__LATEST_FILE__"

// APIRequest performs an arbitrary HTTP request on behalf of the assistant,
// typically to submit quiz answers to a grading endpoint.
type APIRequest struct {
	client *http.Client
}

func NewAPIRequest(client *http.Client) *APIRequest {
	return &APIRequest{client: client}
}

func (t *APIRequest) Name() string { return "api_request" }

func (t *APIRequest) Definition() assistant.Tool {
	return assistant.Tool{
		Type: "function",
		Function: &assistant.FunctionSpec{
			Name: t.Name(),
			Description: "Send an HTTP request to an API endpoint and return the response body. " +
				"For POST, supply a JSON payload object. A payload value of \"" + latestFilePlaceholder + "\" " +
				"is replaced with the most recently generated chart as a base64 data URI.",
			Parameters: assistant.ParameterSchema{
				Type: "object",
				Properties: map[string]assistant.Property{
					"url": {
						Type:        "string",
						Description: "Full URL of the API endpoint",
					},
					"method": {
						Type:        "string",
						Description: "HTTP method: GET or POST",
					},
					"payload": {
						Type:        "object",
						Description: "JSON payload for POST requests",
					},
				},
				Required: []string{"url", "method"},
			},
		},
	}
}

func (t *APIRequest) Execute(ctx context.Context, env Environment, args map[string]any) (string, error) {
	urlStr := stringArg(args, "url")
	if urlStr == "" {
		return "", fmt.Errorf("url parameter required")
	}

	method := strings.ToUpper(stringArg(args, "method"))
	if method == "" {
		method = http.MethodGet
	}

	var body *bytes.Reader
	switch method {
	case http.MethodGet:
		body = bytes.NewReader(nil)
	case http.MethodPost:
		payload, _ := args["payload"].(map[string]any)
		if payload == nil {
			payload = map[string]any{}
		}
		if err := substitutePlaceholders(ctx, env, payload); err != nil {
			return "", err
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	default:
		return "", fmt.Errorf("unsupported method %q", method)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := httpclient.ReadAllWithLimit(resp.Body, 4*1024*1024)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	return fmt.Sprintf("HTTP %d\n%s", resp.StatusCode, string(data)), nil
}

// substitutePlaceholders walks the payload and replaces placeholder values
// in place. Nested objects and arrays are handled because grading endpoints
// often expect the chart under a nested key.
func substitutePlaceholders(ctx context.Context, env Environment, payload map[string]any) error {
	var dataURI string
	var resolve func(value any) (any, error)

	resolve = func(value any) (any, error) {
		switch v := value.(type) {
		case string:
			if v != latestFilePlaceholder {
				return v, nil
			}
			if dataURI == "" {
				uri, err := env.LatestImageDataURI(ctx)
				if err != nil {
					return nil, fmt.Errorf("resolve latest file: %w", err)
				}
				if uri == "" {
					return nil, fmt.Errorf("no generated file available for %s", latestFilePlaceholder)
				}
				dataURI = uri
			}
			return dataURI, nil
		case map[string]any:
			for key, inner := range v {
				resolved, err := resolve(inner)
				if err != nil {
					return nil, err
				}
				v[key] = resolved
			}
			return v, nil
		case []any:
			for i, inner := range v {
				resolved, err := resolve(inner)
				if err != nil {
					return nil, err
				}
				v[i] = resolved
			}
			return v, nil
		default:
			return v, nil
		}
	}

	_, err := resolve(payload)
	return err
}
