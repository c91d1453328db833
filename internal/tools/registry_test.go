package tools

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizd/internal/assistant"
)

type fakeEnv struct {
	mu         sync.Mutex
	uploads    map[string][]byte
	imageURI   string
	transcript string
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{uploads: make(map[string][]byte)}
}

func (e *fakeEnv) UploadFile(_ context.Context, filename string, data []byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.uploads[filename] = data
	return "file-" + filename, nil
}

func (e *fakeEnv) LatestImageDataURI(context.Context) (string, error) {
	return e.imageURI, nil
}

func (e *fakeEnv) TranscribeAudio(_ context.Context, _ string, _ []byte) (string, error) {
	return e.transcript, nil
}

type stubTool struct {
	name    string
	result  string
	err     error
	gotArgs map[string]any
}

func (t *stubTool) Name() string { return t.name }

func (t *stubTool) Definition() assistant.Tool {
	return assistant.Tool{Type: "function", Function: &assistant.FunctionSpec{Name: t.name}}
}

func (t *stubTool) Execute(_ context.Context, _ Environment, args map[string]any) (string, error) {
	t.gotArgs = args
	return t.result, t.err
}

func TestRegistryExecuteAllPreservesCallOrder(t *testing.T) {
	reg := NewRegistry(4, nil)
	reg.Register(&stubTool{name: "alpha", result: "A"})
	reg.Register(&stubTool{name: "beta", result: "B"})

	calls := []assistant.ToolCall{
		{ID: "call-1", Function: assistant.FunctionCall{Name: "beta", Arguments: "{}"}},
		{ID: "call-2", Function: assistant.FunctionCall{Name: "alpha", Arguments: "{}"}},
	}

	outputs := reg.ExecuteAll(context.Background(), newFakeEnv(), calls)
	require.Len(t, outputs, 2)
	assert.Equal(t, "call-1", outputs[0].ToolCallID)
	assert.Equal(t, "B", outputs[0].Output)
	assert.Equal(t, "call-2", outputs[1].ToolCallID)
	assert.Equal(t, "A", outputs[1].Output)
}

func TestRegistryDispatchUnknownTool(t *testing.T) {
	reg := NewRegistry(1, nil)

	outputs := reg.ExecuteAll(context.Background(), newFakeEnv(), []assistant.ToolCall{
		{ID: "call-1", Function: assistant.FunctionCall{Name: "nope", Arguments: "{}"}},
	})

	require.Len(t, outputs, 1)
	assert.Contains(t, outputs[0].Output, "Error: unknown tool")
}

func TestRegistryDispatchToolError(t *testing.T) {
	reg := NewRegistry(1, nil)
	reg.Register(&stubTool{name: "broken", err: errors.New("boom")})

	outputs := reg.ExecuteAll(context.Background(), newFakeEnv(), []assistant.ToolCall{
		{ID: "call-1", Function: assistant.FunctionCall{Name: "broken", Arguments: "{}"}},
	})

	require.Len(t, outputs, 1)
	assert.Equal(t, "Error: boom", outputs[0].Output)
}

func TestParseArgumentsRepairsBrokenJSON(t *testing.T) {
	args, err := ParseArguments(`{url: "https://example.com", "method": "GET",}`)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", args["url"])
	assert.Equal(t, "GET", args["method"])
}

func TestParseArgumentsEmptyPayload(t *testing.T) {
	args, err := ParseArguments("")
	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestRegistryDefinitionsFollowRegistrationOrder(t *testing.T) {
	reg := NewRegistry(1, nil)
	reg.Register(&stubTool{name: "one"})
	reg.Register(&stubTool{name: "two"})
	reg.Register(&stubTool{name: "three"})

	defs := reg.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "one", defs[0].Function.Name)
	assert.Equal(t, "two", defs[1].Function.Name)
	assert.Equal(t, "three", defs[2].Function.Name)
}
