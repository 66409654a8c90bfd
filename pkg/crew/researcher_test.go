package crew

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbellamy/research-crew/pkg/search"
)

func someResults() []search.Result {
	return []search.Result{
		{Title: "First hit", URL: "https://one.test/page", Content: "content one", Score: 0.9, Domain: "one.test"},
		{Title: "Second hit", URL: "https://two.test/page", Content: "content two", Score: 0.7, Domain: "two.test"},
	}
}

const queryReply = `1. battery cell chemistry comparison lithium iron phosphate
2. charging station deployment statistics europe
3. consumer sentiment electric vehicle ownership survey`

func TestExecuteProducesFinding(t *testing.T) {
	model := &fakeModel{replies: []string{
		queryReply,
		"analysis of search one",
		"analysis of search two",
		"analysis of search three",
		"final synthesis across searches",
	}}
	team := NewResearcherTeam(model, staticSearcher(someResults()...), nil, nil, nil)

	item := WorkItem{ID: "w1", Description: "battery technology", Round: 1}
	f, err := team.Execute(context.Background(), item, "state of EVs")
	require.NoError(t, err)

	assert.Equal(t, "w1", f.ItemID)
	assert.Equal(t, "battery technology", f.Angle)
	assert.Equal(t, "final synthesis across searches", f.Text)
	assert.Equal(t, 3, f.Searches)
	assert.Len(t, f.QueryDetails, 3)
	assert.Equal(t, "battery cell chemistry comparison lithium iron phosphate", f.QueryDetails[0].Query)
	assert.False(t, f.Err)

	// Two URLs repeated across three searches dedupe to two sources.
	assert.Len(t, f.Sources, 2)
}

func TestExecuteQueryGenerationFailure(t *testing.T) {
	team := NewResearcherTeam(&fakeModel{err: errors.New("quota")}, staticSearcher(), nil, nil, nil)

	_, err := team.Execute(context.Background(), WorkItem{ID: "w1", Description: "d"}, "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query generation failed")
}

func TestExecuteSearchFailuresDegrade(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	searcher := &fakeSearcher{fn: func(ctx context.Context, query string, useCache bool) (*search.Response, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil, errors.New("tavily http 500")
	}}
	model := &fakeModel{replies: []string{
		queryReply,
		queryReply, // adaptive pass regenerates queries
		"unused synthesis path",
	}}
	team := NewResearcherTeam(model, searcher, nil, nil, nil)

	f, err := team.Execute(context.Background(), WorkItem{ID: "w1", Description: "d"}, "q")
	require.NoError(t, err)

	assert.Zero(t, f.Searches)
	assert.Contains(t, f.Text, "No usable search results")
	assert.Equal(t, 3, calls, "search budget caps total attempts")
}

func TestExecuteAdaptivePassFillsGaps(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	searcher := &fakeSearcher{fn: func(ctx context.Context, query string, useCache bool) (*search.Response, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		// Only the final attempt returns anything.
		if n < 3 {
			return &search.Response{Query: query}, nil
		}
		return &search.Response{Results: someResults(), Query: query}, nil
	}}
	model := &fakeModel{replies: []string{
		"1. first broad query about the topic\n2. second broad query about the topic",
		"1. follow-up query exploring complementary aspects",
		"analysis of the only productive search",
		"synthesis built from one search",
	}}
	team := NewResearcherTeam(model, searcher, nil, nil, nil)

	f, err := team.Execute(context.Background(), WorkItem{ID: "w1", Description: "d"}, "q")
	require.NoError(t, err)

	assert.Equal(t, 1, f.Searches)
	assert.Equal(t, "synthesis built from one search", f.Text)
}

func TestDedupeSourcesKeepsHighestScore(t *testing.T) {
	in := []Source{
		{URL: "https://a.test", Score: 0.4, Title: "low"},
		{URL: "https://b.test", Score: 0.9},
		{URL: "https://a.test", Score: 0.8, Title: "high"},
	}

	out := dedupeSources(in)
	require.Len(t, out, 2)
	assert.Equal(t, "high", out[0].Title)
	assert.InDelta(t, 0.8, out[0].Score, 0.001)

	// Idempotent: a second pass changes nothing.
	assert.Equal(t, out, dedupeSources(out))
}
