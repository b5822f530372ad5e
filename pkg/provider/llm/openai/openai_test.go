package openai

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/voicehive/voicehive/pkg/provider/llm"
)

// TestConvertMessage_System checks that system role is converted correctly.
func TestConvertMessage_System(t *testing.T) {
	msg := llm.Message{Role: "system", Content: "You are a hotel receptionist."}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfSystem == nil {
		t.Fatal("expected OfSystem to be set")
	}
}

// TestConvertMessage_User checks that user role is converted correctly.
func TestConvertMessage_User(t *testing.T) {
	msg := llm.Message{Role: "user", Content: "I'd like to book a room."}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfUser == nil {
		t.Fatal("expected OfUser to be set")
	}
}

// TestConvertMessage_Assistant checks that assistant role is converted.
func TestConvertMessage_Assistant(t *testing.T) {
	msg := llm.Message{Role: "assistant", Content: "Of course, for which dates?"}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfAssistant == nil {
		t.Fatal("expected OfAssistant to be set")
	}
}

// TestConvertMessage_AssistantWithToolCalls checks tool call conversion.
func TestConvertMessage_AssistantWithToolCalls(t *testing.T) {
	msg := llm.Message{
		Role: "assistant",
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "check_availability", Arguments: `{"check_in_date":"2026-12-10"}`},
		},
	}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfAssistant == nil {
		t.Fatal("expected OfAssistant to be set")
	}
	if len(param.OfAssistant.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(param.OfAssistant.ToolCalls))
	}
	tc := param.OfAssistant.ToolCalls[0]
	if tc.ID != "call_1" {
		t.Errorf("expected ID call_1, got %s", tc.ID)
	}
	if tc.Function.Name != "check_availability" {
		t.Errorf("expected function name check_availability, got %s", tc.Function.Name)
	}
	if tc.Function.Arguments != `{"check_in_date":"2026-12-10"}` {
		t.Errorf("unexpected arguments: %s", tc.Function.Arguments)
	}
}

// TestConvertMessage_Tool checks tool response message conversion.
func TestConvertMessage_Tool(t *testing.T) {
	msg := llm.Message{Role: "tool", Content: `{"available":true}`, ToolCallID: "call_1"}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfTool == nil {
		t.Fatal("expected OfTool to be set")
	}
	if param.OfTool.ToolCallID != "call_1" {
		t.Errorf("expected tool call ID call_1, got %s", param.OfTool.ToolCallID)
	}
}

// TestConvertMessage_UnknownRole checks that an unknown role errors.
func TestConvertMessage_UnknownRole(t *testing.T) {
	if _, err := convertMessage(llm.Message{Role: "narrator"}); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

// TestBuildParams checks temperature, token cap and tool wiring.
func TestBuildParams(t *testing.T) {
	p := &Provider{model: "gpt-4o-mini"}
	params, err := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You are a hotel receptionist.",
		Messages: []llm.Message{
			{Role: "user", Content: "A double room please."},
		},
		Temperature: 0.7,
		MaxTokens:   200,
		Tools: []llm.ToolDefinition{{
			Name:        "check_availability",
			Description: "Check room availability.",
			Parameters:  map[string]any{"type": "object"},
		}},
	})
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if len(params.Messages) != 2 {
		t.Errorf("messages = %d, want system + user", len(params.Messages))
	}
	if got := params.Temperature.Or(0); got != 0.7 {
		t.Errorf("temperature = %v, want 0.7", got)
	}
	if got := params.MaxCompletionTokens.Or(0); got != 200 {
		t.Errorf("max tokens = %d, want 200", got)
	}
	if len(params.Tools) != 1 || params.Tools[0].Function.Name != "check_availability" {
		t.Errorf("tools not wired: %+v", params.Tools)
	}
}

// TestNew_Validation checks constructor argument validation.
func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o-mini"); err == nil {
		t.Error("expected error for empty api key")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Error("expected error for empty model")
	}
}

// recordingTransport counts requests so tests can prove which client carried
// the traffic.
type recordingTransport struct {
	calls int
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.calls++
	body := `{"id":"cmpl-1","choices":[{"message":{"role":"assistant","content":"Certainly."},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

// TestComplete_UsesInjectedHTTPClient proves WithHTTPClient routes requests
// through the shared pooled client instead of a per-provider default.
func TestComplete_UsesInjectedHTTPClient(t *testing.T) {
	rt := &recordingTransport{}
	p, err := New("key", "gpt-4o-mini", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if rt.calls == 0 {
		t.Fatal("injected client was never used")
	}
	if resp.Content != "Certainly." {
		t.Errorf("content = %q", resp.Content)
	}
}
