// Package respond produces the assistant's reply for one user turn.
//
// The Coordinator assembles the prompt (persona, hotel, language, state,
// detected intents, flow reasoning, last three turns), issues the LLM
// request with the full tool catalogue, executes requested tools through the
// dispatcher, and re-issues once for the final wording. LLM failure is never
// fatal: the coordinator falls back to a per-intent template response.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/voicehive/voicehive/internal/intent"
	"github.com/voicehive/voicehive/internal/tools"
	"github.com/voicehive/voicehive/pkg/provider/llm"
)

const (
	// DefaultRoundTimeout bounds one LLM round-trip.
	DefaultRoundTimeout = 10 * time.Second

	// DefaultLoopTimeout bounds the whole tool loop.
	DefaultLoopTimeout = 20 * time.Second

	// historyTurns is how many prior turns are replayed verbatim.
	historyTurns = 3

	firstRoundMaxTokens  = 200
	secondRoundMaxTokens = 150
	temperature          = 0.7
)

// ErrNoProvider is returned when no LLM provider is configured; every
// response then uses the template fallback.
var ErrNoProvider = errors.New("respond: no llm provider configured")

// Turn is one prior conversation entry replayed to the model.
type Turn struct {
	// Role is "user" or "assistant".
	Role string

	// Content is the turn's text.
	Content string
}

// Input carries everything the coordinator needs for one reply.
type Input struct {
	// Utterance is the current user text.
	Utterance string

	// Language is the session's detected language code.
	Language string

	// State is the conversation state after the flow decision.
	State string

	// HotelName labels the persona; taken from the session's PMS data.
	HotelName string

	// Detection is the turn's intent result; the primary intent keys the
	// fallback template.
	Detection intent.Result

	// Reasoning is the flow decision's reasoning string.
	Reasoning string

	// History is the prior user/assistant turns, oldest first. Only the
	// last three are replayed.
	History []Turn
}

// Response is the coordinator's output. Always usable, even when the LLM
// failed.
type Response struct {
	// Text is the assistant's reply.
	Text string

	// Language echoes the input language.
	Language string

	// FallbackUsed reports that the template path produced Text.
	FallbackUsed bool

	// LLMLatencyMS is the wall-clock time of the whole tool loop.
	LLMLatencyMS int64

	// ToolsInvoked lists the function names executed, in order.
	ToolsInvoked []string

	// Usage aggregates token accounting across rounds.
	Usage llm.Usage
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithRoundTimeout bounds one LLM round-trip. The default is 10 s.
func WithRoundTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.roundTimeout = d
	}
}

// WithLoopTimeout bounds the whole tool loop. The default is 20 s.
func WithLoopTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.loopTimeout = d
	}
}

// Coordinator turns flow decisions into natural-language replies. Safe for
// concurrent use.
type Coordinator struct {
	provider     llm.Provider
	dispatcher   *tools.Dispatcher
	logger       *slog.Logger
	roundTimeout time.Duration
	loopTimeout  time.Duration
	toolDefs     []llm.ToolDefinition
}

// NewCoordinator creates a response coordinator.
func NewCoordinator(provider llm.Provider, dispatcher *tools.Dispatcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		provider:     provider,
		dispatcher:   dispatcher,
		logger:       slog.Default(),
		roundTimeout: DefaultRoundTimeout,
		loopTimeout:  DefaultLoopTimeout,
		toolDefs:     toolDefinitions(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// toolDefinitions converts the dispatcher catalogue into LLM tool
// declarations.
func toolDefinitions() []llm.ToolDefinition {
	defs := tools.Definitions()
	out := make([]llm.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		out = append(out, llm.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.ParametersSchema(),
		})
	}
	return out
}

// Respond produces the reply for one user turn. It never returns an error;
// every failure path yields a template response with FallbackUsed set.
func (c *Coordinator) Respond(ctx context.Context, call tools.CallContext, in Input) Response {
	start := time.Now()

	lctx, cancel := context.WithTimeout(ctx, c.loopTimeout)
	defer cancel()

	resp, toolsInvoked, usage, err := c.toolLoop(lctx, call, in)
	latency := time.Since(start).Milliseconds()

	if err != nil || strings.TrimSpace(resp) == "" {
		if err != nil {
			c.logger.Warn("llm request failed, using template fallback",
				"call_id", call.CallID(),
				"intent", string(in.Detection.PrimaryIntent()),
				"error", err)
		}
		return Response{
			Text:         templateFor(in.Detection.PrimaryIntent(), in.Language),
			Language:     in.Language,
			FallbackUsed: true,
			LLMLatencyMS: latency,
			ToolsInvoked: toolsInvoked,
			Usage:        usage,
		}
	}

	return Response{
		Text:         resp,
		Language:     in.Language,
		LLMLatencyMS: latency,
		ToolsInvoked: toolsInvoked,
		Usage:        usage,
	}
}

// toolLoop runs up to two LLM round-trips: one with the tool catalogue, and
// when the model calls tools, one more without tools for the final wording.
func (c *Coordinator) toolLoop(ctx context.Context, call tools.CallContext, in Input) (string, []string, llm.Usage, error) {
	messages := c.buildMessages(in)
	var usage llm.Usage

	first, err := c.complete(ctx, llm.CompletionRequest{
		SystemPrompt: c.systemPrompt(in),
		Messages:     messages,
		Tools:        c.toolDefs,
		Temperature:  temperature,
		MaxTokens:    firstRoundMaxTokens,
	})
	if err != nil {
		return "", nil, usage, err
	}
	usage = addUsage(usage, first.Usage)

	if len(first.ToolCalls) == 0 {
		return first.Content, nil, usage, nil
	}

	// Execute every requested tool and feed the results back.
	assistant := llm.Message{Role: "assistant", Content: first.Content, ToolCalls: first.ToolCalls}
	messages = append(messages, assistant)

	invoked := make([]string, 0, len(first.ToolCalls))
	for _, tc := range first.ToolCalls {
		invoked = append(invoked, tc.Name)

		args := map[string]any{}
		if tc.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
				c.logger.Warn("malformed tool arguments",
					"call_id", call.CallID(), "function", tc.Name, "error", err)
			}
		}

		result := c.dispatcher.Execute(ctx, call, tc.Name, args)
		messages = append(messages, llm.Message{
			Role:       "tool",
			Content:    result.JSON(),
			ToolCallID: tc.ID,
		})
	}

	second, err := c.complete(ctx, llm.CompletionRequest{
		SystemPrompt: c.systemPrompt(in),
		Messages:     messages,
		Temperature:  temperature,
		MaxTokens:    secondRoundMaxTokens,
		// No tools on the second round: the model must answer in text.
	})
	if err != nil {
		return "", invoked, usage, err
	}
	usage = addUsage(usage, second.Usage)

	return second.Content, invoked, usage, nil
}

func (c *Coordinator) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if c.provider == nil {
		return nil, ErrNoProvider
	}
	rctx, cancel := context.WithTimeout(ctx, c.roundTimeout)
	defer cancel()
	return c.provider.Complete(rctx, req)
}

// systemPrompt states the persona and the turn's conversational situation.
func (c *Coordinator) systemPrompt(in Input) string {
	hotel := in.HotelName
	if hotel == "" {
		hotel = "the hotel"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a friendly and professional telephone receptionist for %s.\n", hotel)
	fmt.Fprintf(&b, "Respond in the caller's language: %s.\n", in.Language)
	fmt.Fprintf(&b, "Keep replies short and natural for a phone conversation, at most two sentences.\n")
	fmt.Fprintf(&b, "Current conversation state: %s.\n", in.State)
	if names := in.Detection.Names(); len(names) > 0 {
		fmt.Fprintf(&b, "Detected intents: %s.\n", strings.Join(names, ", "))
	}
	if in.Reasoning != "" {
		fmt.Fprintf(&b, "Dialog guidance: %s\n", in.Reasoning)
	}
	b.WriteString("Use the available functions for any booking, availability or reservation question instead of guessing.")
	return b.String()
}

// buildMessages replays the last three turns and appends the current
// utterance.
func (c *Coordinator) buildMessages(in Input) []llm.Message {
	history := in.History
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, t := range history {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Content})
	}
	return append(messages, llm.Message{Role: "user", Content: in.Utterance})
}

func addUsage(a, b llm.Usage) llm.Usage {
	return llm.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}
