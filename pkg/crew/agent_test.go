package crew

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"

	"github.com/pbellamy/research-crew/pkg/search"
)

// fakeModel replays canned replies in order. When the list runs out the
// last reply repeats.
type fakeModel struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
	prompts []string
}

func (m *fakeModel) GenerateContent(ctx context.Context, msgs []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(msgs) > 0 {
		if last, ok := msgs[len(msgs)-1].Parts[0].(llms.TextContent); ok {
			m.prompts = append(m.prompts, last.Text)
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	idx := m.calls
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	m.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.replies[idx]}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)})
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

type fakeSearcher struct {
	fn func(ctx context.Context, query string, useCache bool) (*search.Response, error)
}

func (s *fakeSearcher) Search(ctx context.Context, query string, useCache bool) (*search.Response, error) {
	return s.fn(ctx, query, useCache)
}

func staticSearcher(results ...search.Result) *fakeSearcher {
	return &fakeSearcher{fn: func(ctx context.Context, query string, useCache bool) (*search.Response, error) {
		return &search.Response{Results: results, Query: query}, nil
	}}
}
