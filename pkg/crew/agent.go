package crew

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tmc/langchaingo/llms"

	"github.com/pbellamy/research-crew/pkg/thoughts"
)

// CostFunc estimates the dollar cost of one model call. Nil disables cost
// tracking.
type CostFunc func(inputTokens, outputTokens int) float64

// agentCore carries what every agent needs: a model, a thought log, and
// request/cost counters.
type agentCore struct {
	id        string
	agentType string
	model     llms.Model
	costFn    CostFunc
	logger    *slog.Logger
	thoughts  *thoughts.Logger

	mu       sync.Mutex
	requests int
	cost     float64
}

func newAgentCore(agentType string, model llms.Model, costFn CostFunc, logger *slog.Logger, tl *thoughts.Logger) agentCore {
	if logger == nil {
		logger = slog.Default()
	}
	return agentCore{
		id:        shortID(),
		agentType: agentType,
		model:     model,
		costFn:    costFn,
		logger:    logger,
		thoughts:  tl,
	}
}

// invoke sends one system+user exchange to the model and returns the first
// choice, accumulating usage counters.
func (a *agentCore) invoke(ctx context.Context, system, user string) (string, error) {
	var msgs []llms.MessageContent
	if system != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, user))

	resp, err := a.model.GenerateContent(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	choice := resp.Choices[0]
	in, out := usageTokens(choice.GenerationInfo, len(system)+len(user), len(choice.Content))

	a.mu.Lock()
	a.requests++
	if a.costFn != nil {
		a.cost += a.costFn(in, out)
	}
	a.mu.Unlock()

	return choice.Content, nil
}

// Cost returns the dollars accumulated across this agent's model calls.
func (a *agentCore) Cost() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cost
}

func (a *agentCore) think(t thoughts.Type, content string, metadata map[string]any) {
	a.thoughts.Log(a.id, a.agentType, t, content, metadata)
}

// usageTokens pulls token counts out of the backend's generation info,
// falling back to a length/4 approximation when the backend reports none.
func usageTokens(info map[string]any, promptLen, completionLen int) (int, int) {
	in := intFrom(info, "input_tokens", "PromptTokens", "prompt_tokens")
	out := intFrom(info, "output_tokens", "CompletionTokens", "completion_tokens")
	if in == 0 {
		in = promptLen / 4
	}
	if out == 0 {
		out = completionLen / 4
	}
	return in, out
}

func intFrom(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
