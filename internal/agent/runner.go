package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quizd/internal/assistant"
	quizderrors "quizd/internal/errors"
	"quizd/internal/logging"
	"quizd/internal/tools"
)

// Result is the outcome of one completed agent run.
type Result struct {
	RunID    string
	ThreadID string
	Answer   string
}

// Invoker submits a prompt to the agent and waits for its final answer.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (*Result, error)
}

const assistantInstructions = `You are an expert quiz solver. You will receive a quiz URL and must fetch it, work out every question, and submit the answers.

Guidelines:
- Use web_scraper to read the quiz page and any page it links to.
- Use web_downloader for data files; text files come back inline, binary files return a file ID you can open with code_interpreter.
- Use audio_transcriber for audio clips.
- Use code_interpreter for computation, data analysis, and chart generation.
- Submit answers with api_request. When a submission needs a generated chart, pass "__LATEST_FILE__" as the value and it will be replaced with the chart as a base64 data URI.
- Follow the page's submission format exactly. When finished, reply with a short summary of the answers you submitted.`

// Config assembles a Runner.
type Config struct {
	Client       *assistant.Client
	Registry     *tools.Registry
	Model        string
	PollInterval time.Duration
	RunTimeout   time.Duration
	Logger       logging.Logger
}

// Runner drives assistant runs: it lazily provisions one assistant, then
// for each prompt creates a thread, starts a run, and polls until the run
// reaches a terminal state, executing tool calls along the way.
type Runner struct {
	client       *assistant.Client
	registry     *tools.Registry
	model        string
	pollInterval time.Duration
	runTimeout   time.Duration
	logger       logging.Logger

	mu          sync.Mutex
	assistantID string
}

func NewRunner(cfg Config) *Runner {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = 10 * time.Minute
	}
	return &Runner{
		client:       cfg.Client,
		registry:     cfg.Registry,
		model:        cfg.Model,
		pollInterval: pollInterval,
		runTimeout:   runTimeout,
		logger:       logging.OrNop(cfg.Logger),
	}
}

// Invoke runs the agent over a fresh thread and blocks until it produces an
// answer or fails.
func (r *Runner) Invoke(ctx context.Context, prompt string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.runTimeout)
	defer cancel()

	assistantID, err := r.ensureAssistant(ctx)
	if err != nil {
		return nil, fmt.Errorf("provision assistant: %w", err)
	}

	thread, err := r.client.CreateThread(ctx)
	if err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}

	if err := r.client.AddMessage(ctx, thread.ID, "user", prompt); err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}

	run, err := r.client.CreateRun(ctx, thread.ID, assistantID)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	r.logger.Info("run %s started on thread %s", run.ID, thread.ID)
	env := &runSession{client: r.client, threadID: thread.ID}

	for {
		switch run.Status {
		case assistant.RunStatusCompleted:
			answer, err := r.client.LatestAssistantText(ctx, thread.ID)
			if err != nil {
				return nil, err
			}
			r.logger.Info("run %s completed", run.ID)
			return &Result{RunID: run.ID, ThreadID: thread.ID, Answer: answer}, nil

		case assistant.RunStatusRequiresAction:
			run, err = r.handleRequiredAction(ctx, env, thread.ID, run)
			if err != nil {
				return nil, err
			}

		case assistant.RunStatusFailed, assistant.RunStatusCancelled, assistant.RunStatusExpired:
			reason := run.Status
			if run.LastError != nil && run.LastError.Message != "" {
				reason = fmt.Sprintf("%s: %s", run.Status, run.LastError.Message)
			}
			return nil, quizderrors.NewPermanentError(
				fmt.Errorf("run %s ended without an answer", run.ID), "run "+reason)

		default: // queued, in_progress
			select {
			case <-ctx.Done():
				return nil, quizderrors.NewTransientError(ctx.Err(), "run did not finish in time")
			case <-time.After(r.pollInterval):
			}
			run, err = r.client.GetRun(ctx, thread.ID, run.ID)
			if err != nil {
				return nil, fmt.Errorf("poll run: %w", err)
			}
		}
	}
}

// handleRequiredAction executes the requested tool calls and submits their
// outputs. The thread ID comes from the thread this runner created, not from
// the run payload, which upstreams do not always echo back.
func (r *Runner) handleRequiredAction(ctx context.Context, env tools.Environment, threadID string, run assistant.Run) (assistant.Run, error) {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return assistant.Run{}, quizderrors.NewPermanentError(
			fmt.Errorf("run %s requires action but lists no tool calls", run.ID), "malformed run state")
	}

	calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
	r.logger.Debug("run %s requested %d tool call(s)", run.ID, len(calls))

	outputs := r.registry.ExecuteAll(ctx, env, calls)

	next, err := r.client.SubmitToolOutputs(ctx, threadID, run.ID, outputs)
	if err != nil {
		return assistant.Run{}, fmt.Errorf("submit tool outputs: %w", err)
	}
	return next, nil
}

// ensureAssistant provisions the assistant once and reuses it for every run.
func (r *Runner) ensureAssistant(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.assistantID != "" {
		return r.assistantID, nil
	}

	toolDefs := append([]assistant.Tool{{Type: "code_interpreter"}}, r.registry.Definitions()...)
	created, err := r.client.CreateAssistant(ctx, assistant.CreateAssistantRequest{
		Name:         "quizd-solver",
		Instructions: assistantInstructions,
		Model:        r.model,
		Tools:        toolDefs,
	})
	if err != nil {
		return "", err
	}

	r.assistantID = created.ID
	r.logger.Info("assistant %s created with %d tool(s)", created.ID, len(toolDefs))
	return created.ID, nil
}

// runSession scopes tool side effects to the thread that requested them.
type runSession struct {
	client   *assistant.Client
	threadID string
}

func (s *runSession) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	file, err := s.client.UploadFile(ctx, filename, data)
	if err != nil {
		return "", err
	}
	return file.ID, nil
}

func (s *runSession) LatestImageDataURI(ctx context.Context) (string, error) {
	fileID, err := s.client.LatestImageFileID(ctx, s.threadID)
	if err != nil {
		return "", err
	}
	if fileID == "" {
		return "", nil
	}
	return s.client.FileContentDataURI(ctx, fileID)
}

func (s *runSession) TranscribeAudio(ctx context.Context, filename string, data []byte) (string, error) {
	return s.client.TranscribeAudio(ctx, filename, data)
}
