package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
	"golang.org/x/sync/errgroup"

	"quizd/internal/assistant"
	"quizd/internal/logging"
	"quizd/internal/observability"
)

// Environment gives tools access to run-scoped collaborator operations.
// The agent runner supplies one per run so tools can reach the file store
// and the thread that requested them.
type Environment interface {
	// UploadFile stores data in the assistant file store and returns the file ID.
	UploadFile(ctx context.Context, filename string, data []byte) (string, error)
	// LatestImageDataURI returns the newest generated image in the current
	// thread as a data URI, or an empty string when none exists.
	LatestImageDataURI(ctx context.Context) (string, error)
	// TranscribeAudio converts an audio payload to text.
	TranscribeAudio(ctx context.Context, filename string, data []byte) (string, error)
}

// Tool executes one assistant function call.
type Tool interface {
	Name() string
	Definition() assistant.Tool
	Execute(ctx context.Context, env Environment, args map[string]any) (string, error)
}

// Registry dispatches assistant function calls to registered tools.
type Registry struct {
	tools         map[string]Tool
	order         []string
	maxConcurrent int
	logger        logging.Logger
	metrics       *observability.MetricsCollector
}

// NewRegistry creates a registry that executes at most maxConcurrent tool
// calls in parallel.
func NewRegistry(maxConcurrent int, logger logging.Logger) *Registry {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Registry{
		tools:         make(map[string]Tool),
		maxConcurrent: maxConcurrent,
		logger:        logging.OrNop(logger),
	}
}

// SetMetrics attaches a collector for per-tool execution counts.
func (r *Registry) SetMetrics(metrics *observability.MetricsCollector) {
	r.metrics = metrics
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *Registry) Register(tool Tool) {
	name := tool.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Definitions returns the function declarations for assistant creation,
// in registration order.
func (r *Registry) Definitions() []assistant.Tool {
	defs := make([]assistant.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// ExecuteAll runs every tool call and returns one output per call, in call
// order. Failures become error strings in the output so the run can continue;
// the assistant decides what to do with them.
func (r *Registry) ExecuteAll(ctx context.Context, env Environment, calls []assistant.ToolCall) []assistant.ToolOutput {
	outputs := make([]assistant.ToolOutput, len(calls))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.maxConcurrent)

	for i, call := range calls {
		group.Go(func() error {
			outputs[i] = assistant.ToolOutput{
				ToolCallID: call.ID,
				Output:     r.dispatch(groupCtx, env, call),
			}
			return nil
		})
	}

	_ = group.Wait()
	return outputs
}

func (r *Registry) dispatch(ctx context.Context, env Environment, call assistant.ToolCall) string {
	tool, ok := r.tools[call.Function.Name]
	if !ok {
		r.logger.Warn("assistant requested unknown tool %q", call.Function.Name)
		return fmt.Sprintf("Error: unknown tool %q", call.Function.Name)
	}

	args, err := ParseArguments(call.Function.Arguments)
	if err != nil {
		r.logger.Warn("tool %s received unparseable arguments: %v", call.Function.Name, err)
		return fmt.Sprintf("Error: invalid arguments: %v", err)
	}

	r.logger.Debug("executing tool %s", call.Function.Name)
	result, err := tool.Execute(ctx, env, args)
	if err != nil {
		r.logger.Warn("tool %s failed: %v", call.Function.Name, err)
		r.metrics.RecordToolExecution(ctx, call.Function.Name, "error")
		return fmt.Sprintf("Error: %v", err)
	}
	r.metrics.RecordToolExecution(ctx, call.Function.Name, "success")
	return result
}

// ParseArguments decodes a function-call argument payload. Models sometimes
// emit slightly broken JSON, so a failed decode goes through jsonrepair
// before giving up.
func ParseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args, nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, fmt.Errorf("repair arguments: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		return nil, fmt.Errorf("decode repaired arguments: %w", err)
	}
	return args, nil
}

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)
	return value
}
