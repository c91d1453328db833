package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizd/internal/agent"
	quizderrors "quizd/internal/errors"
)

type spyInvoker struct {
	prompts []string
	result  *agent.Result
	err     error
}

func (s *spyInvoker) Invoke(_ context.Context, prompt string) (*agent.Result, error) {
	s.prompts = append(s.prompts, prompt)
	return s.result, s.err
}

func newQuizRouter(spy *spyInvoker, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/quiz_solver", NewQuizHandler(spy, secret, nil, nil).SolveQuiz)
	return router
}

func postQuiz(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/quiz_solver", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSolveQuizSuccess(t *testing.T) {
	spy := &spyInvoker{result: &agent.Result{RunID: "r1", ThreadID: "t1", Answer: "42"}}
	router := newQuizRouter(spy, "S")

	rec := postQuiz(router, `{"email":"a@b.com","secret":"S","url":"https://x/quiz-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"run_id":"r1","thread_id":"t1","answer":"42"}`, rec.Body.String())
	require.Len(t, spy.prompts, 1)
}

func TestSolveQuizSecretMismatchNeverInvokesAgent(t *testing.T) {
	spy := &spyInvoker{result: &agent.Result{RunID: "r1", ThreadID: "t1", Answer: "42"}}
	router := newQuizRouter(spy, "OTHER")

	rec := postQuiz(router, `{"email":"a@b.com","secret":"S","url":"https://x/quiz-1"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Forbidden: secret mismatch."}`, rec.Body.String())
	assert.Empty(t, spy.prompts)
}

func TestSolveQuizMissingSecretTreatedAsMismatch(t *testing.T) {
	spy := &spyInvoker{}
	router := newQuizRouter(spy, "S")

	rec := postQuiz(router, `{"email":"a@b.com","url":"https://x/quiz-1"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, spy.prompts)
}

func TestSolveQuizEmptyConfiguredSecretRejectsEverything(t *testing.T) {
	spy := &spyInvoker{}
	router := newQuizRouter(spy, "")

	rec := postQuiz(router, `{"email":"a@b.com","secret":"","url":"https://x/quiz-1"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, spy.prompts)
}

func TestSolveQuizMalformedBody(t *testing.T) {
	spy := &spyInvoker{}
	router := newQuizRouter(spy, "S")

	rec := postQuiz(router, `not-json`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid JSON payload."}`, rec.Body.String())
	assert.Empty(t, spy.prompts)
}

func TestSolveQuizNonObjectBody(t *testing.T) {
	spy := &spyInvoker{}
	router := newQuizRouter(spy, "S")

	rec := postQuiz(router, `"just a string"`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, spy.prompts)
}

func TestSolveQuizNullBody(t *testing.T) {
	spy := &spyInvoker{}
	router := newQuizRouter(spy, "S")

	rec := postQuiz(router, `null`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid JSON payload."}`, rec.Body.String())
	assert.Empty(t, spy.prompts)
}

func TestSolveQuizArrayBody(t *testing.T) {
	spy := &spyInvoker{}
	router := newQuizRouter(spy, "S")

	rec := postQuiz(router, `[{"secret":"S"}]`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, spy.prompts)
}

func TestSolveQuizMissingFields(t *testing.T) {
	spy := &spyInvoker{}
	router := newQuizRouter(spy, "S")

	rec := postQuiz(router, `{"secret":"S"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing required field(s): email, url."}`, rec.Body.String())
	assert.Empty(t, spy.prompts)
}

func TestSolveQuizUpstreamFailure(t *testing.T) {
	spy := &spyInvoker{err: quizderrors.NewTransientError(context.DeadlineExceeded, "run did not finish in time")}
	router := newQuizRouter(spy, "S")

	rec := postQuiz(router, `{"email":"a@b.com","secret":"S","url":"https://x/quiz-1"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Upstream agent failure.", body.Error)
}

func TestSolveQuizResponseNeverEchoesSecret(t *testing.T) {
	spy := &spyInvoker{result: &agent.Result{RunID: "r1", ThreadID: "t1", Answer: "42"}}
	router := newQuizRouter(spy, "hunter2-secret")

	rec := postQuiz(router, `{"email":"a@b.com","secret":"hunter2-secret","url":"https://x/quiz-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2-secret")
	require.Len(t, spy.prompts, 1)
	assert.NotContains(t, spy.prompts[0], "hunter2-secret")
}

func TestSolveQuizPromptCarriesRequestFields(t *testing.T) {
	spy := &spyInvoker{result: &agent.Result{RunID: "r1", ThreadID: "t1", Answer: "ok"}}
	router := newQuizRouter(spy, "S")

	rec := postQuiz(router, `{"email":"a@b.com","secret":"S","url":"https://x/quiz-1","notes":"answer in grams"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, spy.prompts, 1)
	prompt := spy.prompts[0]
	assert.Contains(t, prompt, "https://x/quiz-1")
	assert.Contains(t, prompt, "a@b.com")
	assert.Contains(t, prompt, "answer in grams")
}

func TestBuildPromptOmitsNotesSectionWhenAbsent(t *testing.T) {
	with := BuildPrompt("a@b.com", "https://x/quiz-1", "check units")
	without := BuildPrompt("a@b.com", "https://x/quiz-1", "")

	assert.Contains(t, with, "Additional notes:")
	assert.Contains(t, with, "check units")
	assert.NotContains(t, without, "notes")
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	first := BuildPrompt("a@b.com", "https://x/quiz-1", "n")
	second := BuildPrompt("a@b.com", "https://x/quiz-1", "n")
	assert.Equal(t, first, second)
}
