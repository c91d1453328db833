package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebScraperExtractsReadableText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Quiz 7</title><script>alert(1)</script></head>
			<body><nav>skip me</nav><h1>Question</h1><p>What is 6 times 7?</p>
			<ul><li>option a</li><li>option b</li></ul></body></html>`))
	}))
	defer srv.Close()

	tool := NewWebScraper(srv.Client())
	out, err := tool.Execute(context.Background(), newFakeEnv(), map[string]any{"url": srv.URL})
	require.NoError(t, err)

	assert.Contains(t, out, "# Quiz 7")
	assert.Contains(t, out, "What is 6 times 7?")
	assert.Contains(t, out, "- option a")
	assert.NotContains(t, out, "alert(1)")
	assert.NotContains(t, out, "skip me")
}

func TestWebScraperHTMLFormatReturnsRawPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p id="q">What is 6 times 7?</p></body></html>`))
	}))
	defer srv.Close()

	tool := NewWebScraper(srv.Client())
	out, err := tool.Execute(context.Background(), newFakeEnv(), map[string]any{"url": srv.URL, "format": "html"})
	require.NoError(t, err)
	assert.Contains(t, out, `<p id="q">`)
}

func TestWebScraperRejectsBadScheme(t *testing.T) {
	tool := NewWebScraper(http.DefaultClient)
	_, err := tool.Execute(context.Background(), newFakeEnv(), map[string]any{"url": "ftp://example.com/f"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")
}

func TestWebScraperRequiresURL(t *testing.T) {
	tool := NewWebScraper(http.DefaultClient)
	_, err := tool.Execute(context.Background(), newFakeEnv(), map[string]any{})
	require.Error(t, err)
}

func TestDownloaderReturnsTextInline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	}))
	defer srv.Close()

	env := newFakeEnv()
	tool := NewDownloader(srv.Client(), 0)
	out, err := tool.Execute(context.Background(), env, map[string]any{"url": srv.URL + "/data.csv"})
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", out)
	assert.Empty(t, env.uploads)
}

func TestDownloaderUploadsBinary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0x50, 0x4b, 0x03, 0x04})
	}))
	defer srv.Close()

	env := newFakeEnv()
	tool := NewDownloader(srv.Client(), 0)
	out, err := tool.Execute(context.Background(), env, map[string]any{"url": srv.URL + "/bundle.zip"})
	require.NoError(t, err)
	assert.Contains(t, out, "File ID: file-bundle.zip")
	assert.Equal(t, []byte{0x50, 0x4b, 0x03, 0x04}, env.uploads["bundle.zip"])
}

func TestDownloaderServesRepeatRequestsFromCache(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	tool := NewDownloader(srv.Client(), 0)
	url := srv.URL + "/notes.txt"

	first, err := tool.Execute(context.Background(), newFakeEnv(), map[string]any{"url": url})
	require.NoError(t, err)
	second, err := tool.Execute(context.Background(), newFakeEnv(), map[string]any{"url": url})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, hits)
}

func TestTranscriberDownloadsAndTranscribes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("fake-audio-bytes"))
	}))
	defer srv.Close()

	env := newFakeEnv()
	env.transcript = "the answer is forty two"

	tool := NewTranscriber(srv.Client(), 0)
	out, err := tool.Execute(context.Background(), env, map[string]any{"url": srv.URL + "/clip.mp3"})
	require.NoError(t, err)
	assert.Equal(t, "the answer is forty two", out)
}

func TestAPIRequestPostSubstitutesLatestFile(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"correct":true}`))
	}))
	defer srv.Close()

	env := newFakeEnv()
	env.imageURI = "data:image/png;base64,aGVsbG8="

	tool := NewAPIRequest(srv.Client())
	out, err := tool.Execute(context.Background(), env, map[string]any{
		"url":    srv.URL,
		"method": "POST",
		"payload": map[string]any{
			"answer": "42",
			"chart":  "__LATEST_FILE__",
			"nested": map[string]any{"image": "__LATEST_FILE__"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "HTTP 200")
	assert.Contains(t, out, `"correct":true`)
	assert.Equal(t, "42", received["answer"])
	assert.Equal(t, env.imageURI, received["chart"])
	nested := received["nested"].(map[string]any)
	assert.Equal(t, env.imageURI, nested["image"])
}

func TestAPIRequestPlaceholderWithoutGeneratedFile(t *testing.T) {
	tool := NewAPIRequest(http.DefaultClient)
	_, err := tool.Execute(context.Background(), newFakeEnv(), map[string]any{
		"url":     "http://127.0.0.1:0/never-reached",
		"method":  "POST",
		"payload": map[string]any{"chart": "__LATEST_FILE__"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no generated file")
}

func TestAPIRequestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte("pong"))
	}))
	defer srv.Close()

	tool := NewAPIRequest(srv.Client())
	out, err := tool.Execute(context.Background(), newFakeEnv(), map[string]any{"url": srv.URL, "method": "GET"})
	require.NoError(t, err)
	assert.Contains(t, out, "pong")
}

func TestAPIRequestRejectsUnsupportedMethod(t *testing.T) {
	tool := NewAPIRequest(http.DefaultClient)
	_, err := tool.Execute(context.Background(), newFakeEnv(), map[string]any{"url": "https://example.com", "method": "DELETE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported method")
}
