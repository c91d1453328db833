package httpclient

import (
	"net/http"
	"time"

	"quizd/internal/logging"
)

// New returns an http.Client configured for outbound requests. Every request
// and response status is traced through the provided logger at debug level.
func New(timeout time.Duration, logger logging.Logger) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: Transport(logger),
	}
}

// Transport wraps the default transport with request tracing.
func Transport(logger logging.Logger) http.RoundTripper {
	var base http.RoundTripper = http.DefaultTransport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		base = t.Clone()
	}
	return &loggingRoundTripper{base: base, logger: logging.OrNop(logger)}
}

type loggingRoundTripper struct {
	base   http.RoundTripper
	logger logging.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	started := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(started)

	if err != nil {
		t.logger.Debug("%s %s failed after %s: %v", req.Method, req.URL, elapsed, err)
		return nil, err
	}

	t.logger.Debug("%s %s -> %d (%s)", req.Method, req.URL, resp.StatusCode, elapsed)
	return resp, nil
}
