package handlers

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"quizd/internal/agent"
	"quizd/internal/logging"
	"quizd/internal/observability"
)

// QuizHandler authenticates quiz requests and relays them to the agent.
type QuizHandler struct {
	invoker agent.Invoker
	secret  string
	logger  logging.Logger
	metrics *observability.MetricsCollector
}

func NewQuizHandler(invoker agent.Invoker, secret string, logger logging.Logger, metrics *observability.MetricsCollector) *QuizHandler {
	return &QuizHandler{
		invoker: invoker,
		secret:  secret,
		logger:  logging.OrNop(logger),
		metrics: metrics,
	}
}

// SolveQuiz handles POST /api/quiz_solver. The secret check runs before any
// field validation so requests with a bad secret learn nothing about the
// expected shape, and strictly before the agent is invoked.
func (h *QuizHandler) SolveQuiz(c *gin.Context) {
	// Decode in two steps: bodies like `null` or `[1,2]` are valid JSON but
	// not objects, and must fail parsing, not authentication.
	var raw json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil || !isJSONObject(raw) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON payload."})
		return
	}

	var req QuizRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON payload."})
		return
	}

	if !h.secretMatches(req.Secret) {
		h.logger.Warn("rejected quiz request with mismatched secret, request_id=%s", requestID(c))
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Forbidden: secret mismatch."})
		return
	}

	var missing []string
	if req.Email == "" {
		missing = append(missing, "email")
	}
	if req.URL == "" {
		missing = append(missing, "url")
	}
	if len(missing) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Missing required field(s): " + strings.Join(missing, ", ") + ".",
		})
		return
	}

	prompt := BuildPrompt(req.Email, req.URL, req.Notes)
	h.logger.Info("quiz solver invoked for %s, request_id=%s", req.URL, requestID(c))

	start := time.Now()
	result, err := h.invoker.Invoke(c.Request.Context(), prompt)
	if err != nil {
		h.metrics.RecordSolverRun(c.Request.Context(), "error", time.Since(start))
		h.logger.Error("agent run failed: %v", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Upstream agent failure."})
		return
	}

	h.metrics.RecordSolverRun(c.Request.Context(), "success", time.Since(start))
	c.JSON(http.StatusOK, QuizResponse{
		RunID:    result.RunID,
		ThreadID: result.ThreadID,
		Answer:   result.Answer,
	})
}

// secretMatches compares in constant time. A service configured without a
// secret accepts nothing.
func (h *QuizHandler) secretMatches(supplied string) bool {
	if h.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(h.secret), []byte(supplied)) == 1
}

func requestID(c *gin.Context) string {
	return c.GetString("request_id")
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// BuildPrompt assembles the agent prompt. The notes section is omitted
// entirely when no notes were supplied; the configured secret never appears.
func BuildPrompt(email, url, notes string) string {
	var b strings.Builder
	b.WriteString("Solve the quiz at the following URL and submit the answers as the page instructs.\n\n")
	b.WriteString("Quiz URL: " + url + "\n")
	b.WriteString("User email: " + email + "\n")
	if notes != "" {
		b.WriteString("\nAdditional notes:\n" + notes + "\n")
	}
	return b.String()
}
